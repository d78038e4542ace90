package effects

import (
	"image"

	"github.com/ironsheep/capture-output-mcp/internal/quantizer"
)

// ReduceColors quantizes the bitmap to at most Colors colors as an effect
// step. Unlike the automatic reduction done at save time it always runs.
type ReduceColors struct {
	Colors    int
	Quantizer quantizer.Quantizer
}

func (ReduceColors) Name() string { return "reduce_colors" }

func (r ReduceColors) Apply(img image.Image) (image.Image, error) {
	if r.Colors < quantizer.MinPaletteSize || r.Colors > quantizer.MaxPaletteSize {
		return nil, invalid("reduce_colors", "colors %d outside %d..%d",
			r.Colors, quantizer.MinPaletteSize, quantizer.MaxPaletteSize)
	}
	q := r.Quantizer
	if q == nil {
		q = &quantizer.PaletteQuantizer{}
	}
	out, err := q.Quantize(img, r.Colors)
	if err != nil {
		return nil, err
	}
	return out, nil
}
