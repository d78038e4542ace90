package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// HasAlpha reports whether the pixel format of img carries an alpha channel.
//
// The decision is made on the format, not on the pixel values: an NRGBA image
// whose pixels are all opaque still has an alpha channel. Paletted images have
// one when any palette entry is translucent.
//
// Format mapping:
//   - *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64 -> true
//   - *image.Alpha, *image.Alpha16 -> true
//   - *image.Gray, *image.Gray16, *image.YCbCr, *image.CMYK -> false
//   - *image.Paletted -> true if any palette entry has A < 0xffff
//   - other types -> true unless the image reports itself Opaque
func HasAlpha(img image.Image) bool {
	switch m := img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64,
		*image.Alpha, *image.Alpha16:
		return true
	case *image.Gray, *image.Gray16, *image.YCbCr, *image.CMYK:
		return false
	case *image.Paletted:
		for _, c := range m.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}

// HasTransparency reports whether img has an alpha channel and is not fully
// opaque. Go decoders return alpha-capable types for opaque PNG files, so
// callers that care about actual transparency use this instead of HasAlpha.
func HasTransparency(img image.Image) bool {
	if !HasAlpha(img) {
		return false
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}

// WithoutAlpha returns an opaque copy of img composited over white.
//
// The result is always a new *image.RGBA whose every pixel has A = 255 and
// whose bounds start at (0,0). img itself is never modified.
func WithoutAlpha(img image.Image) *image.RGBA {
	return Flatten(img, color.White)
}

// Flatten composites img over an opaque background color into a new *image.RGBA.
func Flatten(img image.Image, bg color.Color) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(opaque(bg)), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// Clone copies img into a private *image.NRGBA with bounds starting at (0,0).
// Use it when the source is backed by something the caller is about to close.
func Clone(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

func opaque(c color.Color) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 0xff
	return n
}
