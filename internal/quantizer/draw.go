package quantizer

import (
	"image"
	"image/color"
	"image/color/palette"
)

// DrawQuantizer adapts a PaletteQuantizer to draw.Quantizer so it can be
// plugged into gif.Options.
type DrawQuantizer struct {
	Q *PaletteQuantizer
}

// Quantize appends up to cap(p)-len(p) colors chosen for m to p.
// If no palette can be built, the tail of the Plan9 palette is used.
func (d DrawQuantizer) Quantize(p color.Palette, m image.Image) color.Palette {
	n := cap(p) - len(p)
	if n <= 0 {
		n = MaxPaletteSize - len(p)
	}
	if n < MinPaletteSize {
		return p
	}

	q := d.Q
	if q == nil {
		q = &PaletteQuantizer{}
	}
	pal, err := q.Palette(m, min(n, MaxPaletteSize))
	if err != nil {
		q.logger().Warn("gif palette fallback to plan9", "error", err)
		return append(p, palette.Plan9[:min(n, len(palette.Plan9))]...)
	}
	return append(p, pal...)
}
