package quantizer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"io"
	"log/slog"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// gradient returns an image with width*height distinct opaque colors.
func gradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), uint8((x + y) / 2), 255})
		}
	}
	return img
}

func fourColors() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	colors := []color.NRGBA{
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
		{0, 0, 0, 0},
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, colors[(x/4)+(y/4)*2])
		}
	}
	return img
}

func TestCountColors(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		want int
	}{
		{"single", image.NewNRGBA(image.Rect(0, 0, 5, 5)), 1},
		{"four", fourColors(), 4},
		{"gradient", gradient(32, 16), 32 * 16},
	}

	q := New(MethodKMeans, quietLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := q.CountColors(tt.img); got != tt.want {
				t.Errorf("CountColors: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQuantize_ExactPaletteIsLossless(t *testing.T) {
	src := fourColors()
	q := New(MethodKMeans, quietLogger())

	out, err := q.Quantize(src, 16)
	if err != nil {
		t.Fatalf("Quantize failed: %v", err)
	}
	if len(out.Palette) != 4 {
		t.Errorf("palette size: got %d, want 4", len(out.Palette))
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			want := src.NRGBAAt(x, y)
			got := color.NRGBAModel.Convert(out.At(x, y)).(color.NRGBA)
			if got != want {
				t.Fatalf("pixel (%d,%d): got %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestQuantize_ReducesColors(t *testing.T) {
	for _, method := range []Method{MethodKMeans, MethodDominantColor} {
		for _, size := range []int{2, 16, 256} {
			t.Run(method.String(), func(t *testing.T) {
				q := &PaletteQuantizer{Method: method, MaxSamples: 2000, Logger: quietLogger()}
				src := gradient(64, 64)

				out, err := q.Quantize(src, size)
				if err != nil {
					t.Fatalf("Quantize(%d) failed: %v", size, err)
				}
				if len(out.Palette) > size {
					t.Errorf("palette has %d entries, want <= %d", len(out.Palette), size)
				}
				if got := CountColors(out); got > size {
					t.Errorf("result has %d colors, want <= %d", got, size)
				}
				if out.Bounds() != src.Bounds() {
					t.Errorf("bounds: got %v, want %v", out.Bounds(), src.Bounds())
				}
			})
		}
	}
}

func TestQuantize_InvalidSize(t *testing.T) {
	q := New(MethodKMeans, quietLogger())
	for _, size := range []int{-1, 0, 1, 257} {
		if _, err := q.Quantize(fourColors(), size); !errors.Is(err, ErrPaletteSize) {
			t.Errorf("Quantize(%d): got %v, want ErrPaletteSize", size, err)
		}
	}
}

func TestQuantize_OffsetBounds(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 9, 9))
	src.SetNRGBA(5, 5, color.NRGBA{10, 20, 30, 255})

	out, err := New(MethodKMeans, quietLogger()).Quantize(src, 4)
	if err != nil {
		t.Fatalf("Quantize failed: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("bounds: got %v", out.Bounds())
	}
	if got := color.NRGBAModel.Convert(out.At(0, 0)).(color.NRGBA); got != (color.NRGBA{10, 20, 30, 255}) {
		t.Errorf("origin pixel: got %v", got)
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"", MethodKMeans, false},
		{"kmeans", MethodKMeans, false},
		{"dominantcolor", MethodDominantColor, false},
		{"median-cut", MethodKMeans, true},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMethod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMethod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDrawQuantizer_GIF(t *testing.T) {
	src := gradient(40, 40)
	dq := DrawQuantizer{Q: &PaletteQuantizer{MaxSamples: 500, Logger: quietLogger()}}

	var buf bytes.Buffer
	if err := gif.Encode(&buf, src, &gif.Options{NumColors: 32, Quantizer: dq}); err != nil {
		t.Fatalf("gif.Encode failed: %v", err)
	}

	decoded, err := gif.Decode(&buf)
	if err != nil {
		t.Fatalf("gif.Decode failed: %v", err)
	}
	pm, ok := decoded.(*image.Paletted)
	if !ok {
		t.Fatalf("decoded type %T, want *image.Paletted", decoded)
	}
	if len(pm.Palette) > 32 {
		t.Errorf("gif palette has %d colors, want <= 32", len(pm.Palette))
	}
}
