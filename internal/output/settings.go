package output

import (
	"errors"
	"fmt"

	"github.com/ironsheep/capture-output-mcp/internal/codec"
	"github.com/ironsheep/capture-output-mcp/internal/container"
	"github.com/ironsheep/capture-output-mcp/internal/effects"
	"github.com/ironsheep/capture-output-mcp/internal/quantizer"
)

var (
	// ErrInvalidArgument is returned for missing or out-of-range arguments.
	ErrInvalidArgument = container.ErrInvalidArgument
	// ErrFileAlreadyExists is returned by SaveToFile when overwriting is not
	// allowed and the target exists.
	ErrFileAlreadyExists = errors.New("file already exists")
)

// DefaultJPEGQuality is used by DefaultSettings.
const DefaultJPEGQuality = 80

// Settings control a single save. They are passed by value and not changed
// by the Saver.
type Settings struct {
	Format      codec.Format
	JPEGQuality int
	Effects     []effects.Effect
	// ReduceColors requests quantization regardless of the image content.
	ReduceColors bool
	// DisableReduceColors turns off both explicit and automatic reduction.
	DisableReduceColors bool
	// SaveBackgroundOnly saves the raw bitmap without annotations or effects
	// from the capture editor.
	SaveBackgroundOnly bool
	// ReduceColorsTo is the palette size; 0 means 256.
	ReduceColorsTo int
	// Tags overrides the metadata stamped into the file; nil means the
	// default software tag.
	Tags []codec.Tag
}

// DefaultSettings returns PNG settings with the default JPEG quality.
func DefaultSettings() Settings {
	return Settings{Format: codec.FormatPNG, JPEGQuality: DefaultJPEGQuality}
}

// Validate rejects out-of-range values. JPEG quality is not clamped; the
// encoder treats 0 as 1.
func (s Settings) Validate() error {
	if !s.Format.Valid() {
		return fmt.Errorf("%w: unknown format %s", ErrInvalidArgument, s.Format)
	}
	if s.JPEGQuality < 0 || s.JPEGQuality > 100 {
		return fmt.Errorf("%w: JPEG quality %d outside 0..100", ErrInvalidArgument, s.JPEGQuality)
	}
	if s.ReduceColorsTo != 0 &&
		(s.ReduceColorsTo < quantizer.MinPaletteSize || s.ReduceColorsTo > quantizer.MaxPaletteSize) {
		return fmt.Errorf("%w: palette size %d outside %d..%d", ErrInvalidArgument,
			s.ReduceColorsTo, quantizer.MinPaletteSize, quantizer.MaxPaletteSize)
	}
	return nil
}

func (s Settings) paletteSize() int {
	if s.ReduceColorsTo == 0 {
		return quantizer.MaxPaletteSize
	}
	return s.ReduceColorsTo
}

func (s Settings) codecOptions() codec.Options {
	return codec.Options{JPEGQuality: s.JPEGQuality, Tags: s.Tags}
}
