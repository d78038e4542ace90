// Package effects implements the post-processing steps applied to a bitmap
// before it is encoded.
//
// Every Effect takes an image and returns a new one; the input is never
// modified. Apply runs an ordered list, each effect consuming the output of
// the previous one.
package effects

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrUnknownEffect is returned by FromSpec for names it does not know.
	ErrUnknownEffect = errors.New("unknown effect")
	// ErrInvalidParameter is returned for effect parameters outside their range.
	ErrInvalidParameter = errors.New("invalid effect parameter")
)

// Effect transforms a bitmap.
type Effect interface {
	// Name is the identifier used by FromSpec and in log output.
	Name() string
	// Apply returns the transformed image. It may return img itself when the
	// effect has nothing to do, but never modifies it.
	Apply(img image.Image) (image.Image, error)
}

// Apply runs effects in order over img.
//
// An empty list returns (nil, nil) so callers can tell that nothing was
// produced and keep their original bitmap. nil entries are skipped.
func Apply(img image.Image, list []Effect) (image.Image, error) {
	if len(list) == 0 {
		return nil, nil
	}
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidParameter)
	}

	cur := img
	for _, e := range list {
		if e == nil {
			continue
		}
		next, err := e.Apply(cur)
		if err != nil {
			return nil, fmt.Errorf("failed to apply %s effect: %w", e.Name(), err)
		}
		if next == nil {
			return nil, fmt.Errorf("%s effect produced no image", e.Name())
		}
		cur = next
	}
	return cur, nil
}

func invalid(effect, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidParameter, effect, fmt.Sprintf(format, args...))
}
