package output

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/ironsheep/capture-output-mcp/internal/capture"
	"github.com/ironsheep/capture-output-mcp/internal/container"
	"github.com/ironsheep/capture-output-mcp/internal/imaging"
)

// ImageLoader decodes plain image files. *imaging.ImageCache implements it.
type ImageLoader interface {
	Load(path string) (image.Image, error)
}

// Open returns the capture stored at path.
//
// A container file is loaded with its annotations. Any other image becomes
// a capture without annotations, decoded through images; nil decodes the
// file directly. An empty title defaults to the file name.
func (s *Saver) Open(path, title string, images ImageLoader) (*capture.Surface, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidArgument)
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	surface := capture.NewSurface(nil, capture.Details{Title: title})

	_, err := container.ReadFileFooter(path)
	switch {
	case err == nil:
		if err := s.Load(path, surface); err != nil {
			return nil, err
		}
		return surface, nil
	case !errors.Is(err, container.ErrNotContainerFile):
		return nil, err
	}

	if images == nil {
		images = imaging.NewImageCache()
	}
	img, err := images.Load(path)
	if err != nil {
		return nil, err
	}
	surface.SetBitmap(img)
	return surface, nil
}
