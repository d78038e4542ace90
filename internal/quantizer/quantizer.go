// Package quantizer reduces full-color bitmaps to an indexed palette.
//
// The output pipeline talks to it through the Quantizer interface, so the
// palette technique can be swapped. PaletteQuantizer is the shipped
// implementation: it keeps every color when the image already fits in the
// requested palette, and otherwise clusters the colors (k-means, with a
// dominant-color fallback) and maps each pixel to the nearest palette entry
// in CIE Lab space.
package quantizer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

const (
	// MinPaletteSize is the smallest palette Quantize accepts.
	MinPaletteSize = 2
	// MaxPaletteSize is the largest palette Quantize accepts.
	MaxPaletteSize = 256
)

// ErrPaletteSize is returned for palette sizes outside [MinPaletteSize, MaxPaletteSize].
var ErrPaletteSize = errors.New("palette size out of range")

// Quantizer is the color reduction contract used by the output pipeline.
type Quantizer interface {
	// CountColors returns the number of distinct colors (including alpha) in img.
	CountColors(img image.Image) int
	// Quantize returns an indexed copy of img using at most paletteSize colors.
	Quantize(img image.Image, paletteSize int) (*image.Paletted, error)
}

// Method selects how PaletteQuantizer builds a palette for images with more
// colors than requested.
type Method int

const (
	MethodKMeans Method = iota
	MethodDominantColor
)

func (m Method) String() string {
	switch m {
	case MethodDominantColor:
		return "dominantcolor"
	default:
		return "kmeans"
	}
}

// ParseMethod maps "kmeans" or "dominantcolor" to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "kmeans":
		return MethodKMeans, nil
	case "dominantcolor", "dominant":
		return MethodDominantColor, nil
	}
	return MethodKMeans, fmt.Errorf("unknown palette method %q", s)
}

// defaultMaxSamples bounds the k-means dataset on large images.
const defaultMaxSamples = 12000

// PaletteQuantizer is a Quantizer backed by palette clustering.
// The zero value uses k-means and the default logger.
type PaletteQuantizer struct {
	Method     Method
	MaxSamples int
	Logger     *slog.Logger
}

// New returns a PaletteQuantizer using method.
func New(method Method, logger *slog.Logger) *PaletteQuantizer {
	return &PaletteQuantizer{Method: method, Logger: logger}
}

func (q *PaletteQuantizer) logger() *slog.Logger {
	if q.Logger != nil {
		return q.Logger
	}
	return slog.Default()
}

// CountColors implements Quantizer.
func (q *PaletteQuantizer) CountColors(img image.Image) int {
	return CountColors(img)
}

// CountColors returns the number of distinct non-premultiplied RGBA colors in img.
func CountColors(img image.Image) int {
	return len(histogram(img))
}

// Quantize implements Quantizer.
func (q *PaletteQuantizer) Quantize(img image.Image, paletteSize int) (*image.Paletted, error) {
	pal, err := q.Palette(img, paletteSize)
	if err != nil {
		return nil, err
	}
	return remap(img, pal), nil
}

// Palette builds a palette of at most paletteSize colors for img.
// Images that already fit get their exact colors, most frequent first.
func (q *PaletteQuantizer) Palette(img image.Image, paletteSize int) (color.Palette, error) {
	if paletteSize < MinPaletteSize || paletteSize > MaxPaletteSize {
		return nil, fmt.Errorf("%w: %d", ErrPaletteSize, paletteSize)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("cannot quantize empty image")
	}

	hist := histogram(img)
	if len(hist) <= paletteSize {
		return exactPalette(hist), nil
	}

	var pal color.Palette
	switch q.Method {
	case MethodDominantColor:
		pal = dominantPalette(img, paletteSize)
	default:
		pal = q.kmeansPalette(img, paletteSize)
		if len(pal) == 0 {
			q.logger().Warn("kmeans returned empty palette, falling back to dominantcolor")
			pal = dominantPalette(img, paletteSize)
		}
	}
	if len(pal) == 0 {
		return nil, fmt.Errorf("failed to build a %d color palette", paletteSize)
	}

	q.logger().Debug("built palette",
		"method", q.Method.String(),
		"source_colors", len(hist),
		"palette_colors", len(pal))
	return pal, nil
}

func histogram(img image.Image) map[color.NRGBA]int {
	b := img.Bounds()
	hist := make(map[color.NRGBA]int)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[nrgbaAt(img, x, y)]++
		}
	}
	return hist
}

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	if m, ok := img.(*image.NRGBA); ok {
		return m.NRGBAAt(x, y)
	}
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func exactPalette(hist map[color.NRGBA]int) color.Palette {
	colors := make([]color.NRGBA, 0, len(hist))
	for c := range hist {
		colors = append(colors, c)
	}
	slices.SortFunc(colors, func(a, b color.NRGBA) int {
		if d := hist[b] - hist[a]; d != 0 {
			return d
		}
		return int(packNRGBA(a)) - int(packNRGBA(b))
	})

	pal := make(color.Palette, len(colors))
	for i, c := range colors {
		pal[i] = c
	}
	return pal
}

func packNRGBA(c color.NRGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

func (q *PaletteQuantizer) kmeansPalette(img image.Image, k int) color.Palette {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	maxSamples := q.MaxSamples
	if maxSamples <= 0 {
		maxSamples = defaultMaxSamples
	}
	// Subsample to keep kmeans tractable on large images.
	step := 1
	if width*height > maxSamples {
		step = int(math.Sqrt(float64(width*height)/float64(maxSamples))) + 1
	}

	dataset := make(clusters.Observations, 0, min(width*height, maxSamples))
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c := nrgbaAt(img, x, y)
			dataset = append(dataset, clusters.Coordinates{
				float64(c.R) / 255.0,
				float64(c.G) / 255.0,
				float64(c.B) / 255.0,
				float64(c.A) / 255.0,
			})
		}
	}
	if len(dataset) < k {
		k = len(dataset)
	}
	if k <= 0 {
		return nil
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, k)
	if err != nil || len(cc) == 0 {
		q.logger().Debug("kmeans partition failed", "k", k, "error", err)
		return nil
	}

	// Sort by cluster population so dominant colors come first.
	slices.SortFunc(cc, func(a, b clusters.Cluster) int {
		return len(b.Observations) - len(a.Observations)
	})

	seen := make(map[color.NRGBA]bool, len(cc))
	pal := make(color.Palette, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 4 || len(c.Observations) == 0 {
			continue
		}
		col := color.NRGBA{
			R: unit8(c.Center[0]),
			G: unit8(c.Center[1]),
			B: unit8(c.Center[2]),
			A: unit8(c.Center[3]),
		}
		if seen[col] {
			continue
		}
		seen[col] = true
		pal = append(pal, col)
	}
	return pal
}

func dominantPalette(img image.Image, k int) color.Palette {
	candidates := dominantcolor.FindWeight(img, k)
	pal := make(color.Palette, 0, k)
	seen := make(map[color.NRGBA]bool, len(candidates))
	for _, c := range candidates {
		col := color.NRGBAModel.Convert(c.RGBA).(color.NRGBA)
		if seen[col] {
			continue
		}
		seen[col] = true
		pal = append(pal, col)
	}
	// dominantcolor ignores transparency; keep one fully transparent entry.
	if len(pal) < k && hasTransparentPixel(img) {
		pal = append(pal, color.NRGBA{})
	}
	return pal
}

func hasTransparentPixel(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a == 0 {
				return true
			}
		}
	}
	return false
}

func unit8(v float64) uint8 {
	return uint8(math.Round(max(0, min(1, v)) * 255))
}

// labColor is a palette entry prepared for distance lookups.
type labColor struct {
	l, a, b float64
	alpha   float64
}

func toLab(c color.NRGBA) labColor {
	col := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	l, a, b := col.Lab()
	return labColor{l: l, a: a, b: b, alpha: float64(c.A) / 255}
}

// remap draws img into a Paletted image, choosing for every distinct source
// color the palette entry closest in Lab space (alpha weighted as a fourth axis).
func remap(img image.Image, pal color.Palette) *image.Paletted {
	b := img.Bounds()
	dst := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), pal)

	labs := make([]labColor, len(pal))
	for i, c := range pal {
		labs[i] = toLab(color.NRGBAModel.Convert(c).(color.NRGBA))
	}

	lookup := make(map[color.NRGBA]uint8)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := (y - b.Min.Y) * dst.Stride
		for x := b.Min.X; x < b.Max.X; x++ {
			c := nrgbaAt(img, x, y)
			idx, ok := lookup[c]
			if !ok {
				idx = nearest(labs, toLab(c))
				lookup[c] = idx
			}
			dst.Pix[row+x-b.Min.X] = idx
		}
	}
	return dst
}

func nearest(labs []labColor, c labColor) uint8 {
	best := 0
	bestDist := math.MaxFloat64
	for i, p := range labs {
		dl, da, db, dA := p.l-c.l, p.a-c.a, p.b-c.b, p.alpha-c.alpha
		d := dl*dl + da*da + db*db + dA*dA
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return uint8(best)
}
