package effects

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestFromSpec(t *testing.T) {
	tests := []struct {
		spec Spec
		want Effect
	}{
		{Spec{Name: "grayscale"}, Grayscale{}},
		{Spec{Name: "Invert"}, Invert{}},
		{Spec{Name: "monochrome", Params: map[string]float64{"threshold": 200}}, Monochrome{Threshold: 200}},
		{Spec{Name: "adjust", Params: map[string]float64{"gamma": 2}}, Adjust{Brightness: 1, Contrast: 1, Gamma: 2}},
		{Spec{Name: "border", Color: "#FF0000", Params: map[string]float64{"width": 4}}, Border{Color: color.NRGBA{255, 0, 0, 255}, Width: 4}},
		{Spec{Name: "drop_shadow"}, DefaultDropShadow},
		{Spec{Name: "drop_shadow", Params: map[string]float64{"offset_x": 5}}, DropShadow{Darkness: 0.6, Size: 7, Offset: image.Pt(5, -1)}},
		{Spec{Name: "resize", Params: map[string]float64{"width": 100}}, Resize{Width: 100, KeepAspect: true}},
		{Spec{Name: "rotate", Params: map[string]float64{"angle": 45}}, Rotate{Angle: 45}},
		{Spec{Name: "reduce_colors", Params: map[string]float64{"colors": 16}}, ReduceColors{Colors: 16}},
		{
			Spec{Name: "torn_edge", Params: map[string]float64{"left": 0, "right": 0, "shadow": 0, "seed": 9}},
			TornEdge{ToothHeight: 12, HorizontalRange: 20, VerticalRange: 20, Edges: EdgeTop | EdgeBottom, Seed: 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.spec.Name, func(t *testing.T) {
			got, err := FromSpec(tt.spec)
			if err != nil {
				t.Fatalf("FromSpec failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestFromSpec_Errors(t *testing.T) {
	if _, err := FromSpec(Spec{Name: "sepia"}); !errors.Is(err, ErrUnknownEffect) {
		t.Errorf("unknown: got %v", err)
	}
	if _, err := FromSpec(Spec{Name: "border", Color: "nope"}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("bad color: got %v", err)
	}
	if _, err := FromSpec(Spec{Name: "monochrome", Params: map[string]float64{"threshold": 300}}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("bad threshold: got %v", err)
	}
}

func TestFromSpecs(t *testing.T) {
	list, err := FromSpecs([]Spec{{Name: "grayscale"}, {Name: "invert"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name() != "grayscale" || list[1].Name() != "invert" {
		t.Errorf("unexpected list: %v", list)
	}

	if _, err := FromSpecs([]Spec{{Name: "grayscale"}, {Name: "bogus"}}); !errors.Is(err, ErrUnknownEffect) {
		t.Errorf("got %v, want ErrUnknownEffect", err)
	}
}

func TestCatalogMatchesFromSpec(t *testing.T) {
	for _, d := range Catalog() {
		if _, err := FromSpec(Spec{Name: d.Name}); errors.Is(err, ErrUnknownEffect) {
			t.Errorf("catalog entry %q is not buildable", d.Name)
		}
	}
}
