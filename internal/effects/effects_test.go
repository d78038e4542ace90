package effects

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func solid(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func nrgba(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestApply_EmptyListReturnsNil(t *testing.T) {
	out, err := Apply(solid(2, 2, color.NRGBA{A: 255}), nil)
	if err != nil || out != nil {
		t.Errorf("Apply(nil list): got (%v, %v), want (nil, nil)", out, err)
	}
}

func TestApply_RunsInOrder(t *testing.T) {
	src := solid(10, 20, color.NRGBA{200, 10, 10, 255})
	list := []Effect{
		Border{Color: color.NRGBA{0, 0, 0, 255}, Width: 5},
		Rotate{Angle: 90},
	}

	out, err := Apply(src, list)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	// 10x20 + border 5 = 20x30, rotated = 30x20.
	if got := out.Bounds().Size(); got != image.Pt(30, 20) {
		t.Errorf("size: got %v, want (30,20)", got)
	}
	if src.Bounds().Size() != image.Pt(10, 20) || nrgba(src, 0, 0) != (color.NRGBA{200, 10, 10, 255}) {
		t.Error("source image was modified")
	}
}

func TestApply_PropagatesError(t *testing.T) {
	_, err := Apply(solid(4, 4, color.NRGBA{A: 255}), []Effect{Border{Width: 0}})
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("got %v, want ErrInvalidParameter", err)
	}
}

func near(got, want, tolerance uint8) bool {
	if got > want {
		return got-want <= tolerance
	}
	return want-got <= tolerance
}

func TestGrayscale(t *testing.T) {
	// Luminance weights are 0.3, 0.6 and 0.1.
	tests := []struct {
		name string
		in   color.NRGBA
		want color.NRGBA
	}{
		{"red", color.NRGBA{255, 0, 0, 255}, color.NRGBA{77, 77, 77, 255}},
		{"green", color.NRGBA{0, 255, 0, 255}, color.NRGBA{153, 153, 153, 255}},
		{"blue", color.NRGBA{0, 0, 255, 255}, color.NRGBA{26, 26, 26, 255}},
		{"white", color.NRGBA{255, 255, 255, 255}, color.NRGBA{255, 255, 255, 255}},
		{"half transparent red", color.NRGBA{255, 0, 0, 128}, color.NRGBA{76, 76, 76, 128}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Grayscale{}.Apply(solid(4, 4, tt.in))
			if err != nil {
				t.Fatal(err)
			}
			c := nrgba(out, 1, 1)
			if c.R != c.G || c.G != c.B {
				t.Fatalf("pixel not gray: %v", c)
			}
			if !near(c.R, tt.want.R, 2) || c.A != tt.want.A {
				t.Errorf("got %v, want %v", c, tt.want)
			}
		})
	}

	t.Run("keeps transparency", func(t *testing.T) {
		src := solid(4, 4, color.NRGBA{0, 255, 0, 255})
		src.SetNRGBA(0, 0, color.NRGBA{})
		src.SetNRGBA(1, 0, color.NRGBA{0, 255, 0, 64})
		out, err := Grayscale{}.Apply(src)
		if err != nil {
			t.Fatal(err)
		}
		if got := nrgba(out, 0, 0); got.A != 0 {
			t.Errorf("transparent pixel became %v", got)
		}
		if got := nrgba(out, 1, 0); got.A != 64 || !near(got.R, 153, 4) {
			t.Errorf("translucent pixel lost its gray level: %v", got)
		}
		if got := nrgba(out, 2, 2); got != (color.NRGBA{153, 153, 153, 255}) {
			t.Errorf("opaque pixel: got %v, want {153 153 153 255}", got)
		}
	})
}

func TestMonochrome(t *testing.T) {
	src := solid(2, 1, color.NRGBA{250, 250, 250, 255})
	src.SetNRGBA(1, 0, color.NRGBA{10, 10, 10, 255})

	out, err := Monochrome{Threshold: 128}.Apply(src)
	if err != nil {
		t.Fatal(err)
	}
	if got := nrgba(out, 0, 0); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("light pixel: got %v, want white", got)
	}
	if got := nrgba(out, 1, 0); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("dark pixel: got %v, want black", got)
	}
}

func TestInvert(t *testing.T) {
	out, err := Invert{}.Apply(solid(2, 2, color.NRGBA{255, 0, 100, 255}))
	if err != nil {
		t.Fatal(err)
	}
	if got := nrgba(out, 0, 0); got != (color.NRGBA{0, 255, 155, 255}) {
		t.Errorf("got %v, want {0 255 155 255}", got)
	}
}

func TestAdjust(t *testing.T) {
	src := solid(2, 2, color.NRGBA{100, 100, 100, 255})

	t.Run("neutral returns input", func(t *testing.T) {
		out, err := DefaultAdjust.Apply(src)
		if err != nil {
			t.Fatal(err)
		}
		if out != image.Image(src) {
			t.Error("neutral adjust should return the input")
		}
	})

	t.Run("brighter", func(t *testing.T) {
		out, err := Adjust{Brightness: 1.5, Contrast: 1, Gamma: 1}.Apply(src)
		if err != nil {
			t.Fatal(err)
		}
		if got := nrgba(out, 0, 0); got.R <= 100 {
			t.Errorf("brightness did not increase: %v", got)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, a := range []Adjust{
			{Brightness: -1, Contrast: 1, Gamma: 1},
			{Brightness: 1, Contrast: 3, Gamma: 1},
			{Brightness: 1, Contrast: 1, Gamma: 0},
		} {
			if _, err := a.Apply(src); !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("%+v: got %v, want ErrInvalidParameter", a, err)
			}
		}
	})
}

func TestBorderAndResizeCanvas(t *testing.T) {
	red := color.NRGBA{255, 0, 0, 255}
	blue := color.NRGBA{0, 0, 255, 255}
	src := solid(10, 10, red)

	out, err := Border{Color: blue, Width: 3}.Apply(src)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Bounds().Size(); got != image.Pt(16, 16) {
		t.Errorf("size: got %v, want (16,16)", got)
	}
	if got := nrgba(out, 0, 0); got != blue {
		t.Errorf("border pixel: got %v, want %v", got, blue)
	}
	if got := nrgba(out, 3, 3); got != red {
		t.Errorf("content pixel: got %v, want %v", got, red)
	}

	out, err = ResizeCanvas{Left: 1, Right: 2, Top: 3, Bottom: 4}.Apply(src)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Bounds().Size(); got != image.Pt(13, 17) {
		t.Errorf("canvas size: got %v, want (13,17)", got)
	}
	if got := nrgba(out, 0, 0); got.A != 0 {
		t.Errorf("default canvas fill should be transparent, got %v", got)
	}

	if _, err := (ResizeCanvas{Left: -1}).Apply(src); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative margin: got %v", err)
	}
}

func TestDropShadow(t *testing.T) {
	red := color.NRGBA{255, 0, 0, 255}
	src := solid(20, 20, red)

	out, err := DropShadow{Darkness: 0.8, Size: 4, Offset: image.Pt(3, 3)}.Apply(src)
	if err != nil {
		t.Fatal(err)
	}
	// padL = 4-3 = 1, padR = 4+3 = 7
	if got := out.Bounds().Size(); got != image.Pt(28, 28) {
		t.Errorf("size: got %v, want (28,28)", got)
	}
	if got := nrgba(out, 1+10, 1+10); got != red {
		t.Errorf("content pixel: got %v, want %v", got, red)
	}
	// Below-right of the content, inside the shadow.
	if got := nrgba(out, 22, 22); got.A == 0 || got.R > 10 {
		t.Errorf("shadow pixel should be dark and visible, got %v", got)
	}
	if got := nrgba(out, 0, 0); got.A > 40 {
		t.Errorf("far corner should stay mostly transparent, got %v", got)
	}
}

func TestTornEdge(t *testing.T) {
	src := solid(60, 40, color.NRGBA{0, 128, 0, 255})

	torn := TornEdge{ToothHeight: 6, HorizontalRange: 10, VerticalRange: 10, Edges: EdgeTop, Seed: 42}
	out, err := torn.Apply(src)
	if err != nil {
		t.Fatal(err)
	}
	if out.Bounds() != src.Bounds() {
		t.Errorf("without shadow bounds must not change: got %v", out.Bounds())
	}
	// Centre and bottom rows are never cut when only the top edge is torn.
	if got := nrgba(out, 30, 20); got.A != 255 {
		t.Errorf("centre pixel cut: %v", got)
	}
	for x := 0; x < 60; x++ {
		if got := nrgba(out, x, 39); got.A != 255 {
			t.Fatalf("bottom row cut at x=%d", x)
		}
	}

	again, err := torn.Apply(src)
	if err != nil {
		t.Fatal(err)
	}
	for x := 0; x < 60; x++ {
		for y := 0; y < 7; y++ {
			if nrgba(out, x, y) != nrgba(again, x, y) {
				t.Fatalf("same seed produced different edges at (%d,%d)", x, y)
			}
		}
	}

	withShadow := DefaultTornEdge
	withShadow.Seed = 7
	shadowed, err := withShadow.Apply(src)
	if err != nil {
		t.Fatal(err)
	}
	if !shadowed.Bounds().Size().In(image.Rect(61, 41, 200, 200)) {
		t.Errorf("shadowed torn edge should grow the canvas, got %v", shadowed.Bounds())
	}
}

func TestResize(t *testing.T) {
	src := solid(100, 50, color.NRGBA{10, 20, 30, 255})
	tests := []struct {
		name   string
		effect Resize
		want   image.Point
	}{
		{"exact", Resize{Width: 40, Height: 40}, image.Pt(40, 40)},
		{"width only", Resize{Width: 50}, image.Pt(50, 25)},
		{"height only", Resize{Height: 10}, image.Pt(20, 10)},
		{"fit", Resize{Width: 40, Height: 40, KeepAspect: true}, image.Pt(40, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.effect.Apply(src)
			if err != nil {
				t.Fatal(err)
			}
			if got := out.Bounds().Size(); got != tt.want {
				t.Errorf("size: got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := (Resize{}).Apply(src); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("zero size: got %v", err)
	}
}

func TestRotate(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	marker := color.NRGBA{255, 0, 0, 255}
	src.SetNRGBA(0, 0, marker)

	tests := []struct {
		angle float64
		size  image.Point
		at    image.Point
	}{
		{90, image.Pt(2, 4), image.Pt(1, 0)},
		{-270, image.Pt(2, 4), image.Pt(1, 0)},
		{180, image.Pt(4, 2), image.Pt(3, 1)},
		{270, image.Pt(2, 4), image.Pt(0, 3)},
	}
	for _, tt := range tests {
		out, err := Rotate{Angle: tt.angle}.Apply(src)
		if err != nil {
			t.Fatal(err)
		}
		if got := out.Bounds().Size(); got != tt.size {
			t.Errorf("rotate %v size: got %v, want %v", tt.angle, got, tt.size)
		}
		if got := nrgba(out, tt.at.X, tt.at.Y); got != marker {
			t.Errorf("rotate %v: marker not at %v (got %v)", tt.angle, tt.at, got)
		}
	}

	same, _ := Rotate{Angle: 360}.Apply(src)
	if same != image.Image(src) {
		t.Error("full turn should return the input")
	}
}

func TestReduceColorsEffect(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			src.SetNRGBA(x, y, color.NRGBA{uint8(x * 8), uint8(y * 8), 0, 255})
		}
	}

	out, err := ReduceColors{Colors: 8}.Apply(src)
	if err != nil {
		t.Fatal(err)
	}
	pm, ok := out.(*image.Paletted)
	if !ok {
		t.Fatalf("got %T, want *image.Paletted", out)
	}
	if len(pm.Palette) > 8 {
		t.Errorf("palette has %d colors, want <= 8", len(pm.Palette))
	}

	if _, err := (ReduceColors{Colors: 1}).Apply(src); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("colors=1: got %v", err)
	}
}
