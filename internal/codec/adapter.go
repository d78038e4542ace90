// Package codec encodes bitmaps into the supported output formats.
//
// Adapter maps a Format to an Encoder, strips alpha for formats that cannot
// store it, stamps metadata tags and optionally runs an external PNG
// optimizer over the result.
package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ironsheep/capture-output-mcp/internal/imaging"
	"github.com/ironsheep/capture-output-mcp/internal/quantizer"
)

// AdapterOptions configure NewAdapter.
type AdapterOptions struct {
	// Optimizer post-processes PNG output when its command is set.
	Optimizer *Optimizer
	// Quantizer builds GIF palettes; nil uses a default PaletteQuantizer.
	Quantizer *quantizer.PaletteQuantizer
	Logger    *slog.Logger
}

// Adapter is the format-independent encoding entry point. It is safe for
// concurrent use.
type Adapter struct {
	mu        sync.RWMutex
	encoders  map[Format]Encoder
	optimizer *Optimizer
	logger    *slog.Logger
}

// NewAdapter returns an Adapter with the built-in encoders registered.
func NewAdapter(opts AdapterOptions) *Adapter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	q := opts.Quantizer
	if q == nil {
		q = &quantizer.PaletteQuantizer{Logger: logger}
	}

	a := &Adapter{
		encoders:  make(map[Format]Encoder),
		optimizer: opts.Optimizer,
		logger:    logger,
	}
	for _, enc := range []Encoder{
		pngEncoder{enc: png.Encoder{CompressionLevel: png.DefaultCompression}},
		jpegEncoder{},
		gifEncoder{q: q},
		bmpEncoder{},
		tiffEncoder{},
	} {
		a.Register(enc)
	}
	return a
}

// Register installs enc for enc.Format(), replacing any previous encoder.
func (a *Adapter) Register(enc Encoder) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.encoders[enc.Format()] = enc
}

// EncoderFor returns the encoder used for f. The container format and
// unknown formats use the PNG encoder.
func (a *Adapter) EncoderFor(f Format) Encoder {
	switch f {
	case FormatBMP, FormatGIF, FormatJPG, FormatTIFF:
	default:
		f = FormatPNG
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.encoders[f]
}

// Encode writes img to w in format.
//
// Sources with an alpha channel are flattened onto white first unless the
// encoder keeps transparency. Tag stamping and optimizer failures are logged
// and do not fail the call; only a missing encoder or an encoding/write error
// does.
func (a *Adapter) Encode(ctx context.Context, w io.Writer, img image.Image, format Format, opts Options) error {
	if img == nil {
		return fmt.Errorf("no image to encode")
	}
	enc := a.EncoderFor(format)
	if enc == nil || !enc.Available() {
		return fmt.Errorf("%w: %s", ErrEncoderUnavailable, format)
	}

	start := time.Now()
	src := img
	if !enc.SupportsAlpha() && imaging.HasAlpha(img) {
		a.logger.Debug("removing alpha channel", "format", format.String())
		src = imaging.WithoutAlpha(img)
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, src, opts); err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	data := buf.Bytes()

	tags := opts.Tags
	if tags == nil {
		tags = DefaultTags
	}
	if len(tags) > 0 {
		if tw, ok := enc.(TagWriter); ok {
			tagged, err := tw.WriteTags(data, tags)
			if err != nil {
				a.logger.Warn("failed to write metadata tags", "format", format.String(), "error", err)
			} else {
				data = tagged
			}
		} else {
			a.logger.Debug("format does not support metadata tags", "format", format.String())
		}
	}

	if format == FormatPNG && a.optimizer.Enabled() {
		optimized, err := a.optimizer.Optimize(ctx, data)
		if err != nil {
			a.logger.Warn("PNG optimizer failed, keeping unoptimized output", "error", err)
		} else {
			a.logger.Debug("PNG optimized",
				"before", humanize.Bytes(uint64(len(data))),
				"after", humanize.Bytes(uint64(len(optimized))))
			data = optimized
		}
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s data: %w", format, err)
	}

	a.logger.Debug("encoded image",
		"format", format.String(),
		"width", src.Bounds().Dx(),
		"height", src.Bounds().Dy(),
		"size", humanize.Bytes(uint64(len(data))),
		"elapsed", time.Since(start))
	return nil
}
