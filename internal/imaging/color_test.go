package imaging

import (
	"image"
	"image/color"
	"testing"
)

func createInMemoryImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#FF0000", color.NRGBA{255, 0, 0, 255}},
		{"00ff00", color.NRGBA{0, 255, 0, 255}},
		{"#0000FF80", color.NRGBA{0, 0, 255, 128}},
		{"  #101010 ", color.NRGBA{16, 16, 16, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if err != nil {
				t.Fatalf("ParseHexColor(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseHexColor(%q): got %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseHexColor_Invalid(t *testing.T) {
	for _, in := range []string{"", "#", "#FFF", "#GGGGGG", "#FF00FF00FF"} {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseHexColor(in); err == nil {
				t.Errorf("ParseHexColor(%q) should fail", in)
			}
		})
	}
}

func TestHexColor(t *testing.T) {
	if got := HexColor(color.NRGBA{255, 128, 0, 255}); got != "#FF8000" {
		t.Errorf("opaque: got %s, want #FF8000", got)
	}
	if got := HexColor(color.NRGBA{255, 128, 0, 64}); got != "#FF800040" {
		t.Errorf("translucent: got %s, want #FF800040", got)
	}
}
