package effects

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// Resize scales the bitmap. A zero Width or Height is derived from the other
// dimension. With KeepAspect set and both given, the image is fitted inside
// Width x Height.
type Resize struct {
	Width      int
	Height     int
	KeepAspect bool
}

func (Resize) Name() string { return "resize" }

func (r Resize) Apply(img image.Image) (image.Image, error) {
	if r.Width < 0 || r.Height < 0 {
		return nil, invalid("resize", "negative size %dx%d", r.Width, r.Height)
	}
	if r.Width == 0 && r.Height == 0 {
		return nil, invalid("resize", "width or height is required")
	}

	b := img.Bounds()
	w, h := r.Width, r.Height
	if r.KeepAspect && w > 0 && h > 0 {
		scale := math.Min(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
		w = max(1, int(math.Round(float64(b.Dx())*scale)))
		h = max(1, int(math.Round(float64(b.Dy())*scale)))
	}
	if w == b.Dx() && h == b.Dy() {
		return img, nil
	}
	return resize.Resize(uint(w), uint(h), img, resize.Lanczos3), nil
}

// Rotate turns the bitmap clockwise by Angle degrees. Right angles are exact;
// other angles grow the canvas and fill the corners with transparency.
type Rotate struct {
	Angle float64
}

func (Rotate) Name() string { return "rotate" }

func (r Rotate) Apply(img image.Image) (image.Image, error) {
	angle := math.Mod(r.Angle, 360)
	if angle < 0 {
		angle += 360
	}
	// imaging rotates counter-clockwise.
	switch angle {
	case 0:
		return img, nil
	case 90:
		return imaging.Rotate270(img), nil
	case 180:
		return imaging.Rotate180(img), nil
	case 270:
		return imaging.Rotate90(img), nil
	}
	return imaging.Rotate(img, 360-angle, color.Transparent), nil
}
