// Package container reads and writes the editable capture format.
//
// A container file is an ordinary PNG image followed by the serialized
// annotation block and a fixed-size footer:
//
//	[image bytes][annotation block][int64 LE block length][marker]
//
// The marker is the 14-byte ASCII string "GreenshotMM.mm", where MM.mm is
// the format version. Image decoders stop at the end of the image data, so
// the file still opens in any PNG viewer.
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/ironsheep/capture-output-mcp/internal/capture"
	"github.com/ironsheep/capture-output-mcp/internal/imaging"
)

const (
	// MarkerPrefix identifies container files.
	MarkerPrefix = "Greenshot"
	// Version is the format version this package writes.
	Version = "01.02"
	// Marker is the footer marker written by Write.
	Marker = MarkerPrefix + Version
	// FooterSize is the length of the block-length field plus the marker.
	FooterSize = 8 + len(Marker)
)

var (
	// ErrInvalidArgument is returned for missing required arguments.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotContainerFile is returned when the footer marker is missing.
	ErrNotContainerFile = errors.New("not a container file")
	// ErrCorruptContainer is returned when the footer is present but its
	// block length does not fit the file.
	ErrCorruptContainer = errors.New("corrupt container file")
)

// Footer is the decoded trailer of a container file.
type Footer struct {
	BlockLength int64  `json:"block_length" yaml:"block_length"`
	Version     string `json:"version" yaml:"version"`
	// ImageLength is the number of bytes before the annotation block.
	ImageLength int64 `json:"image_length" yaml:"image_length"`
}

// Write appends the annotation block produced by elements, its length and
// the marker to w. w must already hold the encoded image.
func Write(w io.Writer, elements capture.Serializer) error {
	if elements == nil {
		return fmt.Errorf("%w: no annotation serializer", ErrInvalidArgument)
	}
	n, err := elements.SerializeTo(w)
	if err != nil {
		return fmt.Errorf("failed to write annotation block: %w", err)
	}

	var footer [FooterSize]byte
	binary.LittleEndian.PutUint64(footer[:8], uint64(n))
	copy(footer[8:], Marker)
	if _, err := w.Write(footer[:]); err != nil {
		return fmt.Errorf("failed to write container footer: %w", err)
	}
	return nil
}

// ReadFooter decodes the last FooterSize bytes of a size-byte container.
func ReadFooter(r io.ReaderAt, size int64) (Footer, error) {
	if size < int64(FooterSize) {
		return Footer{}, fmt.Errorf("%w: file too short", ErrNotContainerFile)
	}
	var tail [FooterSize]byte
	if _, err := r.ReadAt(tail[:], size-int64(FooterSize)); err != nil {
		return Footer{}, fmt.Errorf("failed to read footer: %w", err)
	}

	marker := tail[8:]
	if !bytes.HasPrefix(marker, []byte(MarkerPrefix)) {
		return Footer{}, ErrNotContainerFile
	}

	length := int64(binary.LittleEndian.Uint64(tail[:8]))
	if length < 0 || length > size-int64(FooterSize) {
		return Footer{}, fmt.Errorf("%w: block length %d exceeds file size %d", ErrCorruptContainer, length, size)
	}
	return Footer{
		BlockLength: length,
		Version:     string(marker[len(MarkerPrefix):]),
		ImageLength: size - int64(FooterSize) - length,
	}, nil
}

// ReadFrom loads a size-byte container from r into dst.
//
// The image is decoded into a private copy, then the annotation block is
// deserialized into dst.Elements(). dst's bitmap is only set when both
// steps succeed.
func ReadFrom(r io.ReaderAt, size int64, dst capture.Target) error {
	if dst == nil || dst.Elements() == nil {
		return fmt.Errorf("%w: no load target", ErrInvalidArgument)
	}

	img, _, err := image.Decode(io.NewSectionReader(r, 0, size))
	if err != nil {
		return fmt.Errorf("failed to decode container image: %w", err)
	}
	bitmap := imaging.Clone(img)

	footer, err := ReadFooter(r, size)
	if err != nil {
		return err
	}

	block := io.NewSectionReader(r, footer.ImageLength, footer.BlockLength)
	if err := dst.Elements().DeserializeFrom(block); err != nil {
		return fmt.Errorf("failed to read annotation block: %w", err)
	}

	dst.SetBitmap(bitmap)
	return nil
}

// Read loads the container file at path into dst.
func Read(path string, dst capture.Target) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open container: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat container: %w", err)
	}
	return ReadFrom(f, info.Size(), dst)
}

// ReadFileFooter decodes the footer of the file at path.
func ReadFileFooter(path string) (Footer, error) {
	f, err := os.Open(path)
	if err != nil {
		return Footer{}, fmt.Errorf("failed to open container: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Footer{}, fmt.Errorf("failed to stat container: %w", err)
	}
	return ReadFooter(f, info.Size())
}
