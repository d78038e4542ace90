package codec

import (
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/ironsheep/capture-output-mcp/internal/quantizer"
)

// Options are the per-call encoding parameters.
type Options struct {
	// JPEGQuality is passed to the JPEG encoder unchanged. image/jpeg
	// encodes 0 as 1, its lowest quality.
	JPEGQuality int
	// Tags are stamped into formats that support them. nil means DefaultTags;
	// an empty non-nil slice stamps nothing.
	Tags []Tag
}

// Encoder writes one image format.
type Encoder interface {
	Format() Format
	// Available reports whether the encoder can be used in this process.
	Available() bool
	// SupportsAlpha reports whether transparency survives encoding.
	SupportsAlpha() bool
	Encode(w io.Writer, img image.Image, opts Options) error
}

type pngEncoder struct {
	enc png.Encoder
}

func (pngEncoder) Format() Format      { return FormatPNG }
func (pngEncoder) Available() bool     { return true }
func (pngEncoder) SupportsAlpha() bool { return true }

func (e pngEncoder) Encode(w io.Writer, img image.Image, _ Options) error {
	return e.enc.Encode(w, img)
}

func (pngEncoder) WriteTags(data []byte, tags []Tag) ([]byte, error) {
	return writePNGTags(data, tags)
}

type jpegEncoder struct{}

func (jpegEncoder) Format() Format      { return FormatJPG }
func (jpegEncoder) Available() bool     { return true }
func (jpegEncoder) SupportsAlpha() bool { return false }

func (jpegEncoder) Encode(w io.Writer, img image.Image, opts Options) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: opts.JPEGQuality})
}

func (jpegEncoder) WriteTags(data []byte, tags []Tag) ([]byte, error) {
	return writeJPEGTags(data, tags)
}

type gifEncoder struct {
	q *quantizer.PaletteQuantizer
}

func (gifEncoder) Format() Format      { return FormatGIF }
func (gifEncoder) Available() bool     { return true }
func (gifEncoder) SupportsAlpha() bool { return false }

func (e gifEncoder) Encode(w io.Writer, img image.Image, _ Options) error {
	return gif.Encode(w, img, &gif.Options{
		NumColors: 256,
		Quantizer: quantizer.DrawQuantizer{Q: e.q},
	})
}

type bmpEncoder struct{}

func (bmpEncoder) Format() Format      { return FormatBMP }
func (bmpEncoder) Available() bool     { return true }
func (bmpEncoder) SupportsAlpha() bool { return false }

func (bmpEncoder) Encode(w io.Writer, img image.Image, _ Options) error {
	return bmp.Encode(w, img)
}

type tiffEncoder struct{}

func (tiffEncoder) Format() Format      { return FormatTIFF }
func (tiffEncoder) Available() bool     { return true }
func (tiffEncoder) SupportsAlpha() bool { return false }

// Encode writes single-channel images through x/image/tiff. Everything else
// goes through writeRGBTIFF, since x/image/tiff always adds an alpha sample
// to RGB data.
func (tiffEncoder) Encode(w io.Writer, img image.Image, _ Options) error {
	switch img.(type) {
	case *image.Paletted, *image.Gray:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return writeRGBTIFF(w, img)
}
