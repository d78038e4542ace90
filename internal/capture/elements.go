package capture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Kind names an annotation element type.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindEllipse   Kind = "ellipse"
	KindLine      Kind = "line"
	KindArrow     Kind = "arrow"
	KindText      Kind = "text"
	KindHighlight Kind = "highlight"
	KindObfuscate Kind = "obfuscate"
)

var validKinds = map[Kind]bool{
	KindRectangle: true,
	KindEllipse:   true,
	KindLine:      true,
	KindArrow:     true,
	KindText:      true,
	KindHighlight: true,
	KindObfuscate: true,
}

// ErrInvalidElement is returned for elements that cannot be rendered or loaded.
var ErrInvalidElement = errors.New("invalid element")

// Element is one annotation. X, Y, Width and Height give the bounding box;
// lines and arrows run from (X, Y) to (X+Width, Y+Height), so they may have
// negative extents. Colors are hex strings (#RRGGBB or #RRGGBBAA).
type Element struct {
	Kind          Kind   `json:"kind" yaml:"kind"`
	X             int    `json:"x" yaml:"x"`
	Y             int    `json:"y" yaml:"y"`
	Width         int    `json:"width" yaml:"width"`
	Height        int    `json:"height" yaml:"height"`
	LineColor     string `json:"line_color,omitempty" yaml:"line_color,omitempty"`
	FillColor     string `json:"fill_color,omitempty" yaml:"fill_color,omitempty"`
	LineThickness int    `json:"line_thickness,omitempty" yaml:"line_thickness,omitempty"`
	Text          string `json:"text,omitempty" yaml:"text,omitempty"`
	PixelSize     int    `json:"pixel_size,omitempty" yaml:"pixel_size,omitempty"`
}

// Rect returns the normalized bounding box.
func (e Element) Rect() image.Rectangle {
	return image.Rect(e.X, e.Y, e.X+e.Width, e.Y+e.Height).Canon()
}

// Validate checks the kind and the fields it requires.
func (e Element) Validate() error {
	if !validKinds[e.Kind] {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidElement, e.Kind)
	}
	if e.LineThickness < 0 || e.PixelSize < 0 {
		return fmt.Errorf("%w: negative size", ErrInvalidElement)
	}
	switch e.Kind {
	case KindText:
		if e.Text == "" {
			return fmt.Errorf("%w: text element without text", ErrInvalidElement)
		}
	case KindLine, KindArrow:
	default:
		if e.Width <= 0 || e.Height <= 0 {
			return fmt.Errorf("%w: %s needs a positive width and height", ErrInvalidElement, e.Kind)
		}
	}
	return nil
}

// annotationVersion is written into every serialized block.
const annotationVersion = 1

type annotationBlock struct {
	Version  int       `json:"version"`
	Elements []Element `json:"elements"`
}

// Elements is the ordered annotation list of a surface. It implements
// Serializer; the block is zstd-compressed JSON.
type Elements struct {
	Items []Element
}

// Add appends validated elements.
func (l *Elements) Add(elems ...Element) error {
	for _, e := range elems {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	l.Items = append(l.Items, elems...)
	return nil
}

// Len returns the number of elements.
func (l *Elements) Len() int {
	return len(l.Items)
}

// SerializeTo implements Serializer.
func (l *Elements) SerializeTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return 0, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	items := l.Items
	if items == nil {
		items = []Element{}
	}
	if err := json.NewEncoder(zw).Encode(annotationBlock{Version: annotationVersion, Elements: items}); err != nil {
		zw.Close()
		return 0, fmt.Errorf("failed to encode elements: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to compress elements: %w", err)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// DeserializeFrom implements Serializer. The list is only replaced when the
// whole block decodes and validates.
func (l *Elements) DeserializeFrom(r io.Reader) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var block annotationBlock
	if err := json.NewDecoder(zr).Decode(&block); err != nil {
		return fmt.Errorf("failed to decode elements: %w", err)
	}
	if block.Version < 1 || block.Version > annotationVersion {
		return fmt.Errorf("unsupported annotation version %d", block.Version)
	}
	for i, e := range block.Elements {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	l.Items = block.Elements
	return nil
}
