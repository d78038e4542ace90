package effects

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"

	imgutil "github.com/ironsheep/capture-output-mcp/internal/imaging"
)

// Grayscale converts the bitmap to shades of gray, keeping transparency.
type Grayscale struct{}

func (Grayscale) Name() string { return "grayscale" }

func (Grayscale) Apply(img image.Image) (image.Image, error) {
	return withSourceAlpha(effect.Grayscale(img), img), nil
}

// Monochrome maps every pixel to black or white. Pixels with luminance at or
// above Threshold become white.
type Monochrome struct {
	Threshold uint8
}

func (Monochrome) Name() string { return "monochrome" }

func (m Monochrome) Apply(img image.Image) (image.Image, error) {
	return withSourceAlpha(segment.Threshold(img, m.Threshold), img), nil
}

// Invert inverts the color channels.
type Invert struct{}

func (Invert) Name() string { return "invert" }

func (Invert) Apply(img image.Image) (image.Image, error) {
	return effect.Invert(img), nil
}

// Adjust changes brightness, contrast and gamma. All three are factors where
// 1.0 leaves the channel unchanged.
type Adjust struct {
	Brightness float64
	Contrast   float64
	Gamma      float64
}

// DefaultAdjust is the neutral adjustment.
var DefaultAdjust = Adjust{Brightness: 1, Contrast: 1, Gamma: 1}

func (Adjust) Name() string { return "adjust" }

func (a Adjust) Apply(img image.Image) (image.Image, error) {
	if a.Brightness < 0 || a.Brightness > 2 {
		return nil, invalid("adjust", "brightness %.2f outside 0..2", a.Brightness)
	}
	if a.Contrast < 0 || a.Contrast > 2 {
		return nil, invalid("adjust", "contrast %.2f outside 0..2", a.Contrast)
	}
	if a.Gamma <= 0 {
		return nil, invalid("adjust", "gamma %.2f must be positive", a.Gamma)
	}

	out := img
	// bild expresses brightness and contrast as a change in [-1, 1].
	if a.Brightness != 1 {
		out = adjust.Brightness(out, a.Brightness-1)
	}
	if a.Contrast != 1 {
		out = adjust.Contrast(out, a.Contrast-1)
	}
	if a.Gamma != 1 {
		out = adjust.Gamma(out, a.Gamma)
	}
	return out, nil
}

// withSourceAlpha returns gray unchanged for opaque sources. Otherwise it
// builds an NRGBA image with the gray levels and the alpha of src. bild works
// on premultiplied pixels, so gray levels are unpremultiplied first.
func withSourceAlpha(gray image.Image, src image.Image) image.Image {
	if !imgutil.HasAlpha(src) {
		return gray
	}
	b := src.Bounds()
	gb := gray.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			_, _, _, a := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			a8 := uint8(a >> 8)
			if a8 == 0 {
				continue
			}
			g := uint32(color.GrayModel.Convert(gray.At(gb.Min.X+x, gb.Min.Y+y)).(color.Gray).Y)
			if a8 < 0xff {
				g = min(255, g*255/uint32(a8))
			}
			out.SetNRGBA(x, y, color.NRGBA{uint8(g), uint8(g), uint8(g), a8})
		}
	}
	return out
}
