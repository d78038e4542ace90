package effects

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand/v2"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
)

// ResizeCanvas grows the canvas by the given margins and fills the new area
// with Color. The bitmap itself is not scaled.
type ResizeCanvas struct {
	Left, Right, Top, Bottom int
	Color                    color.NRGBA
}

func (ResizeCanvas) Name() string { return "resize_canvas" }

func (r ResizeCanvas) Apply(img image.Image) (image.Image, error) {
	if r.Left < 0 || r.Right < 0 || r.Top < 0 || r.Bottom < 0 {
		return nil, invalid("resize_canvas", "negative margin")
	}
	b := img.Bounds()
	canvas := imaging.New(b.Dx()+r.Left+r.Right, b.Dy()+r.Top+r.Bottom, r.Color)
	return imaging.Paste(canvas, img, image.Pt(r.Left, r.Top)), nil
}

// Border draws a solid frame of Width pixels around the bitmap.
type Border struct {
	Color color.NRGBA
	Width int
}

// DefaultBorder is a 2px black border.
var DefaultBorder = Border{Color: color.NRGBA{A: 255}, Width: 2}

func (Border) Name() string { return "border" }

func (b Border) Apply(img image.Image) (image.Image, error) {
	if b.Width <= 0 {
		return nil, invalid("border", "width %d must be positive", b.Width)
	}
	return ResizeCanvas{Left: b.Width, Right: b.Width, Top: b.Width, Bottom: b.Width, Color: b.Color}.Apply(img)
}

// DropShadow places a blurred dark silhouette of the bitmap behind it.
// The canvas grows so the shadow fits; the new area is transparent.
type DropShadow struct {
	Darkness float64 // 0..1
	Size     int     // blur radius in pixels
	Offset   image.Point
}

// DefaultDropShadow matches the look of the capture editor.
var DefaultDropShadow = DropShadow{Darkness: 0.6, Size: 7, Offset: image.Pt(-1, -1)}

func (DropShadow) Name() string { return "drop_shadow" }

func (d DropShadow) Apply(img image.Image) (image.Image, error) {
	if d.Darkness < 0 || d.Darkness > 1 {
		return nil, invalid("drop_shadow", "darkness %.2f outside 0..1", d.Darkness)
	}
	if d.Size < 0 {
		return nil, invalid("drop_shadow", "size %d is negative", d.Size)
	}

	b := img.Bounds()
	padL := max(0, d.Size-d.Offset.X)
	padT := max(0, d.Size-d.Offset.Y)
	padR := max(0, d.Size+d.Offset.X)
	padB := max(0, d.Size+d.Offset.Y)
	width, height := b.Dx()+padL+padR, b.Dy()+padT+padB

	// Silhouette: black, alpha scaled by darkness.
	shadow := image.NewNRGBA(image.Rect(0, 0, width, height))
	ox, oy := padL+d.Offset.X, padT+d.Offset.Y
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			shadow.SetNRGBA(ox+x, oy+y, color.NRGBA{A: uint8(float64(a>>8) * d.Darkness)})
		}
	}

	var blurred draw.Image = shadow
	if d.Size > 0 {
		g := gift.New(gift.GaussianBlur(float32(d.Size) / 2))
		dst := image.NewNRGBA(g.Bounds(shadow.Bounds()))
		g.Draw(dst, shadow)
		blurred = dst
	}
	return imaging.Overlay(blurred, img, image.Pt(padL, padT), 1.0), nil
}

// Edge flags for TornEdge.
const (
	EdgeTop = 1 << iota
	EdgeRight
	EdgeBottom
	EdgeLeft

	EdgeAll = EdgeTop | EdgeRight | EdgeBottom | EdgeLeft
)

// TornEdge cuts a jagged, torn-paper outline into the selected edges. Pixels
// outside the outline become transparent. Teeth are at most ToothHeight deep
// and spaced HorizontalRange (top/bottom) or VerticalRange (left/right)
// pixels apart. A zero Seed picks a random one.
type TornEdge struct {
	ToothHeight     int
	HorizontalRange int
	VerticalRange   int
	Edges           int
	Shadow          bool
	Seed            uint64
}

// DefaultTornEdge tears all four edges and adds a shadow.
var DefaultTornEdge = TornEdge{ToothHeight: 12, HorizontalRange: 20, VerticalRange: 20, Edges: EdgeAll, Shadow: true}

func (TornEdge) Name() string { return "torn_edge" }

func (t TornEdge) Apply(img image.Image) (image.Image, error) {
	if t.ToothHeight <= 0 {
		return nil, invalid("torn_edge", "tooth height %d must be positive", t.ToothHeight)
	}
	if t.HorizontalRange <= 0 || t.VerticalRange <= 0 {
		return nil, invalid("torn_edge", "tooth range must be positive")
	}

	seed := t.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	out := imaging.Clone(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	depth := min(t.ToothHeight, w/2, h/2)

	var top, bottom, left, right []int
	if t.Edges&EdgeTop != 0 {
		top = teeth(rng, w, t.HorizontalRange, depth)
	}
	if t.Edges&EdgeBottom != 0 {
		bottom = teeth(rng, w, t.HorizontalRange, depth)
	}
	if t.Edges&EdgeLeft != 0 {
		left = teeth(rng, h, t.VerticalRange, depth)
	}
	if t.Edges&EdgeRight != 0 {
		right = teeth(rng, h, t.VerticalRange, depth)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cut := (top != nil && y < top[x]) ||
				(bottom != nil && y >= h-bottom[x]) ||
				(left != nil && x < left[y]) ||
				(right != nil && x >= w-right[y])
			if cut {
				i := out.PixOffset(x, y)
				out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = 0, 0, 0, 0
			}
		}
	}

	if !t.Shadow {
		return out, nil
	}
	return DefaultDropShadow.Apply(out)
}

// teeth returns a cut depth for every position along an edge of length n,
// linearly interpolated between random points spaced step apart.
func teeth(rng *rand.Rand, n, step, depth int) []int {
	cut := make([]int, n)
	if depth <= 0 || n == 0 {
		return cut
	}
	prev := rng.IntN(depth + 1)
	for start := 0; start < n; start += step {
		next := rng.IntN(depth + 1)
		end := min(start+step, n)
		for i := start; i < end; i++ {
			cut[i] = prev + (next-prev)*(i-start)/step
		}
		prev = next
	}
	return cut
}
