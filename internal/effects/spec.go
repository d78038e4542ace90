package effects

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	imgutil "github.com/ironsheep/capture-output-mcp/internal/imaging"
)

// Spec is the serializable description of an effect, as received from the
// MCP tools and the CLI. Params holds numeric parameters; Color carries a hex
// color for effects that take one.
type Spec struct {
	Name   string             `json:"name"`
	Params map[string]float64 `json:"params,omitempty"`
	Color  string             `json:"color,omitempty"`
}

// Description documents an effect for effects_list.
type Description struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`
}

var catalog = []Description{
	{Name: "grayscale", Description: "Convert to shades of gray"},
	{Name: "monochrome", Description: "Black and white by luminance threshold", Params: []string{"threshold"}},
	{Name: "invert", Description: "Invert colors"},
	{Name: "adjust", Description: "Brightness, contrast and gamma factors (1.0 = unchanged)", Params: []string{"brightness", "contrast", "gamma"}},
	{Name: "border", Description: "Solid border around the image", Params: []string{"width", "color"}},
	{Name: "drop_shadow", Description: "Blurred shadow behind the image", Params: []string{"darkness", "size", "offset_x", "offset_y"}},
	{Name: "torn_edge", Description: "Torn paper edges", Params: []string{"tooth_height", "horizontal_range", "vertical_range", "top", "right", "bottom", "left", "shadow", "seed"}},
	{Name: "resize", Description: "Scale the image", Params: []string{"width", "height", "keep_aspect"}},
	{Name: "resize_canvas", Description: "Add margins around the image", Params: []string{"left", "right", "top", "bottom", "color"}},
	{Name: "rotate", Description: "Rotate clockwise by degrees", Params: []string{"angle"}},
	{Name: "reduce_colors", Description: "Quantize to a palette", Params: []string{"colors"}},
}

// Catalog lists the effects FromSpec can build.
func Catalog() []Description {
	out := make([]Description, len(catalog))
	copy(out, catalog)
	return out
}

// FromSpec builds the effect described by s. Missing parameters take the
// effect's default.
func FromSpec(s Spec) (Effect, error) {
	p := params(s.Params)
	name := strings.ToLower(strings.TrimSpace(s.Name))

	switch name {
	case "grayscale", "greyscale":
		return Grayscale{}, nil
	case "monochrome":
		threshold := p.get("threshold", 127)
		if threshold < 0 || threshold > 255 {
			return nil, invalid(name, "threshold %.0f outside 0..255", threshold)
		}
		return Monochrome{Threshold: uint8(threshold)}, nil
	case "invert":
		return Invert{}, nil
	case "adjust":
		return Adjust{
			Brightness: p.get("brightness", DefaultAdjust.Brightness),
			Contrast:   p.get("contrast", DefaultAdjust.Contrast),
			Gamma:      p.get("gamma", DefaultAdjust.Gamma),
		}, nil
	case "border":
		c, err := s.color(DefaultBorder.Color)
		if err != nil {
			return nil, err
		}
		return Border{Color: c, Width: p.getInt("width", DefaultBorder.Width)}, nil
	case "drop_shadow", "dropshadow":
		return DropShadow{
			Darkness: p.get("darkness", DefaultDropShadow.Darkness),
			Size:     p.getInt("size", DefaultDropShadow.Size),
			Offset: image.Pt(
				p.getInt("offset_x", DefaultDropShadow.Offset.X),
				p.getInt("offset_y", DefaultDropShadow.Offset.Y)),
		}, nil
	case "torn_edge", "tornedge":
		d := DefaultTornEdge
		edges := 0
		for flag, key := range map[int]string{EdgeTop: "top", EdgeRight: "right", EdgeBottom: "bottom", EdgeLeft: "left"} {
			if p.getBool(key, d.Edges&flag != 0) {
				edges |= flag
			}
		}
		return TornEdge{
			ToothHeight:     p.getInt("tooth_height", d.ToothHeight),
			HorizontalRange: p.getInt("horizontal_range", d.HorizontalRange),
			VerticalRange:   p.getInt("vertical_range", d.VerticalRange),
			Edges:           edges,
			Shadow:          p.getBool("shadow", d.Shadow),
			Seed:            uint64(p.get("seed", 0)),
		}, nil
	case "resize":
		return Resize{
			Width:      p.getInt("width", 0),
			Height:     p.getInt("height", 0),
			KeepAspect: p.getBool("keep_aspect", true),
		}, nil
	case "resize_canvas":
		c, err := s.color(color.NRGBA{})
		if err != nil {
			return nil, err
		}
		return ResizeCanvas{
			Left:   p.getInt("left", 0),
			Right:  p.getInt("right", 0),
			Top:    p.getInt("top", 0),
			Bottom: p.getInt("bottom", 0),
			Color:  c,
		}, nil
	case "rotate":
		return Rotate{Angle: p.get("angle", 90)}, nil
	case "reduce_colors":
		return ReduceColors{Colors: p.getInt("colors", 256)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, s.Name)
}

// FromSpecs builds an ordered effect list.
func FromSpecs(specs []Spec) ([]Effect, error) {
	list := make([]Effect, 0, len(specs))
	for i, s := range specs {
		e, err := FromSpec(s)
		if err != nil {
			return nil, fmt.Errorf("effect %d: %w", i, err)
		}
		list = append(list, e)
	}
	return list, nil
}

func (s Spec) color(def color.NRGBA) (color.NRGBA, error) {
	if s.Color == "" {
		return def, nil
	}
	c, err := imgutil.ParseHexColor(s.Color)
	if err != nil {
		return def, invalid(s.Name, "color: %v", err)
	}
	return c, nil
}

type params map[string]float64

func (p params) get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

func (p params) getInt(key string, def int) int {
	return int(p.get(key, float64(def)))
}

func (p params) getBool(key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	return v != 0
}
