package capture

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	disimaging "github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/capture-output-mcp/internal/imaging"
)

// Element defaults.
var (
	defaultLineColor      = color.NRGBA{R: 255, A: 255}
	defaultHighlightColor = color.NRGBA{R: 255, G: 255, A: 128}
)

const (
	defaultThickness = 2
	defaultPixelSize = 8
	arrowHeadLength  = 12
)

func parseColor(hex string, def color.NRGBA) (color.NRGBA, error) {
	if hex == "" {
		return def, nil
	}
	return imaging.ParseHexColor(hex)
}

// render draws e onto dst.
func render(dst *image.NRGBA, e Element) error {
	if err := e.Validate(); err != nil {
		return err
	}
	line, err := parseColor(e.LineColor, defaultLineColor)
	if err != nil {
		return err
	}
	var fill color.NRGBA
	if e.Kind == KindHighlight {
		fill = defaultHighlightColor
	}
	if fill, err = parseColor(e.FillColor, fill); err != nil {
		return err
	}
	thickness := e.LineThickness
	if thickness == 0 {
		thickness = defaultThickness
	}

	switch e.Kind {
	case KindRectangle:
		r := e.Rect()
		if fill.A > 0 {
			fillRect(dst, r, fill)
		}
		strokeRect(dst, r, thickness, line)
	case KindEllipse:
		drawEllipse(dst, e.Rect(), thickness, line, fill)
	case KindLine:
		drawLine(dst, image.Pt(e.X, e.Y), image.Pt(e.X+e.Width, e.Y+e.Height), thickness, line)
	case KindArrow:
		from, to := image.Pt(e.X, e.Y), image.Pt(e.X+e.Width, e.Y+e.Height)
		drawLine(dst, from, to, thickness, line)
		drawArrowHead(dst, from, to, thickness, line)
	case KindText:
		drawText(dst, image.Pt(e.X, e.Y), e.Text, line)
	case KindHighlight:
		fillRect(dst, e.Rect(), fill)
	case KindObfuscate:
		size := e.PixelSize
		if size == 0 {
			size = defaultPixelSize
		}
		pixelate(dst, e.Rect(), size)
	}
	return nil
}

func fillRect(dst *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

func strokeRect(dst *image.NRGBA, r image.Rectangle, t int, c color.NRGBA) {
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), c)
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y+t, r.Min.X+t, r.Max.Y-t), c)
	fillRect(dst, image.Rect(r.Max.X-t, r.Min.Y+t, r.Max.X, r.Max.Y-t), c)
}

func blend(dst *image.NRGBA, x, y int, c color.NRGBA) {
	if !image.Pt(x, y).In(dst.Bounds()) {
		return
	}
	if c.A == 0xff {
		dst.SetNRGBA(x, y, c)
		return
	}
	fillRect(dst, image.Rect(x, y, x+1, y+1), c)
}

func drawEllipse(dst *image.NRGBA, r image.Rectangle, t int, line, fill color.NRGBA) {
	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	rx, ry := float64(r.Dx())/2, float64(r.Dy())/2
	irx, iry := rx-float64(t), ry-float64(t)

	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			if dx*dx/(rx*rx)+dy*dy/(ry*ry) > 1 {
				continue
			}
			inner := irx > 0 && iry > 0 && dx*dx/(irx*irx)+dy*dy/(iry*iry) <= 1
			switch {
			case !inner:
				blend(dst, x, y, line)
			case fill.A > 0:
				blend(dst, x, y, fill)
			}
		}
	}
}

// drawLine plots a Bresenham line with a square brush of size t.
func drawLine(dst *image.NRGBA, from, to image.Point, t int, c color.NRGBA) {
	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx, sy := sign(to.X-from.X), sign(to.Y-from.Y)
	err := dx + dy
	half := t / 2

	x, y := from.X, from.Y
	for {
		fillRect(dst, image.Rect(x-half, y-half, x-half+t, y-half+t), c)
		if x == to.X && y == to.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func drawArrowHead(dst *image.NRGBA, from, to image.Point, t int, c color.NRGBA) {
	if from == to {
		return
	}
	angle := math.Atan2(float64(to.Y-from.Y), float64(to.X-from.X))
	length := float64(arrowHeadLength + t)
	for _, spread := range []float64{math.Pi / 6, -math.Pi / 6} {
		a := angle + math.Pi + spread
		tip := image.Pt(to.X+int(math.Round(length*math.Cos(a))), to.Y+int(math.Round(length*math.Sin(a))))
		drawLine(dst, to, tip, t, c)
	}
}

// drawText draws s with its top-left corner at p.
func drawText(dst *image.NRGBA, p image.Point, s string, c color.NRGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(p.X, p.Y+face.Ascent),
	}
	d.DrawString(s)
}

// pixelate replaces r with blocks of size pixels averaged from the source.
func pixelate(dst *image.NRGBA, r image.Rectangle, size int) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() || size <= 1 {
		return
	}
	region := disimaging.Crop(dst, r)
	w := max(1, r.Dx()/size)
	h := max(1, r.Dy()/size)
	small := disimaging.Resize(region, w, h, disimaging.Box)
	blocks := disimaging.Resize(small, r.Dx(), r.Dy(), disimaging.NearestNeighbor)
	draw.Draw(dst, r, blocks, image.Point{}, draw.Src)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
