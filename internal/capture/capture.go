// Package capture models a screenshot being saved: the raw bitmap, the
// annotation elements drawn on top of it and a few details used for file
// naming.
//
// The output pipeline only depends on the Capture, Target and Serializer
// interfaces; Surface is the implementation used by the server and CLI.
package capture

import (
	"fmt"
	"image"
	"io"
	"time"

	"github.com/ironsheep/capture-output-mcp/internal/imaging"
)

// Serializer reads and writes the annotation block stored in container files.
type Serializer interface {
	// SerializeTo writes the block and returns the number of bytes written.
	SerializeTo(w io.Writer) (int64, error)
	// DeserializeFrom replaces the current contents with the block read from r.
	DeserializeFrom(r io.Reader) error
}

// Capture is what the output pipeline saves.
type Capture interface {
	// RawBitmap is the captured image without annotations. The caller borrows it.
	RawBitmap() image.Image
	// ExportBitmap returns a new image with all annotations rendered. The
	// caller owns it.
	ExportBitmap() (image.Image, error)
	Elements() Serializer
}

// Target receives the contents of a loaded container file.
type Target interface {
	SetBitmap(img image.Image)
	Elements() Serializer
}

// Details describe a capture for filename patterns.
type Details struct {
	Title      string    `json:"title,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// Surface is a bitmap with annotations. It implements both Capture and Target.
type Surface struct {
	bitmap      image.Image
	annotations *Elements
	Details     Details
}

// NewSurface returns a surface over img with no annotations.
func NewSurface(img image.Image, details Details) *Surface {
	if details.CapturedAt.IsZero() {
		details.CapturedAt = time.Now()
	}
	return &Surface{bitmap: img, annotations: &Elements{}, Details: details}
}

// CaptureDetails returns the naming details of the surface.
func (s *Surface) CaptureDetails() Details {
	return s.Details
}

// RawBitmap implements Capture.
func (s *Surface) RawBitmap() image.Image {
	return s.bitmap
}

// SetBitmap implements Target.
func (s *Surface) SetBitmap(img image.Image) {
	s.bitmap = img
}

// Elements implements Capture and Target.
func (s *Surface) Elements() Serializer {
	return s.Annotations()
}

// Annotations returns the element list for direct editing.
func (s *Surface) Annotations() *Elements {
	if s.annotations == nil {
		s.annotations = &Elements{}
	}
	return s.annotations
}

// ExportBitmap implements Capture. The raw bitmap is copied and every
// element is drawn onto the copy in order.
func (s *Surface) ExportBitmap() (image.Image, error) {
	if s.bitmap == nil {
		return nil, fmt.Errorf("surface has no bitmap")
	}
	out := imaging.Clone(s.bitmap)
	for i, e := range s.Annotations().Items {
		if err := render(out, e); err != nil {
			return nil, fmt.Errorf("failed to render element %d (%s): %w", i, e.Kind, err)
		}
	}
	return out, nil
}
