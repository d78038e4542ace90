package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jis "github.com/dsoprea/go-jpeg-image-structure/v2"
)

// TagType is the EXIF value type of a Tag.
type TagType uint16

const (
	TagByte  TagType = 1
	TagASCII TagType = 2
	TagShort TagType = 3
	TagLong  TagType = 4
)

// Well-known tag IDs.
const (
	TagImageDescription uint16 = 0x010E
	TagSoftware         uint16 = 0x0131
	TagArtist           uint16 = 0x013B
)

// Tag is a metadata item stamped into encoded images.
type Tag struct {
	ID    uint16
	Type  TagType
	Value []byte
}

// SoftwareTag returns the ASCII Software tag.
func SoftwareTag(name string) Tag {
	return Tag{ID: TagSoftware, Type: TagASCII, Value: []byte(name)}
}

// DefaultTags are stamped when Options.Tags is nil.
var DefaultTags = []Tag{SoftwareTag("Greenshot")}

// TagWriter is implemented by encoders that can embed tags into the bytes
// they produced.
type TagWriter interface {
	WriteTags(data []byte, tags []Tag) ([]byte, error)
}

// pngKeywords maps tag IDs to PNG tEXt keywords.
var pngKeywords = map[uint16]string{
	TagImageDescription: "Description",
	TagSoftware:         "Software",
	TagArtist:           "Author",
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// writePNGTags inserts one tEXt chunk per ASCII tag right after IHDR.
// Tags without a PNG keyword are skipped.
func writePNGTags(data []byte, tags []Tag) ([]byte, error) {
	// signature + IHDR length, type, 13 data bytes, crc
	const ihdrEnd = 8 + 4 + 4 + 13 + 4
	if len(data) < ihdrEnd || !bytes.Equal(data[:8], pngSignature) || string(data[12:16]) != "IHDR" {
		return nil, fmt.Errorf("%w: missing PNG header", ErrMalformedImage)
	}

	var chunks bytes.Buffer
	for _, tag := range tags {
		keyword, ok := pngKeywords[tag.ID]
		if !ok || tag.Type != TagASCII {
			continue
		}
		text := bytes.TrimRight(tag.Value, "\x00")
		body := make([]byte, 0, len(keyword)+1+len(text))
		body = append(body, keyword...)
		body = append(body, 0)
		body = append(body, text...)
		writePNGChunk(&chunks, "tEXt", body)
	}

	out := make([]byte, 0, len(data)+chunks.Len())
	out = append(out, data[:ihdrEnd]...)
	out = append(out, chunks.Bytes()...)
	out = append(out, data[ihdrEnd:]...)
	return out, nil
}

func writePNGChunk(w *bytes.Buffer, typ string, body []byte) {
	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(body)))
	copy(header[4:], typ)
	w.Write(header[:])
	w.Write(body)

	crc := crc32.NewIEEE()
	crc.Write(header[4:])
	crc.Write(body)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	w.Write(sum[:])
}

// writeJPEGTags stores tags in IFD0 of an EXIF APP1 segment. A segment is
// added right after SOI when the image has none.
func writeJPEGTags(data []byte, tags []Tag) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, fmt.Errorf("%w: missing JPEG SOI marker", ErrMalformedImage)
	}
	if len(tags) == 0 {
		return data, nil
	}

	parsed, err := jis.NewJpegMediaParser().ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImage, err)
	}
	segments, ok := parsed.(*jis.SegmentList)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected JPEG parse result %T", ErrMalformedImage, parsed)
	}

	ifdMapping, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("failed to load EXIF IFD mapping: %w", err)
	}
	ib := exif.NewIfdBuilder(ifdMapping, exif.NewTagIndex(), exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)
	for _, tag := range tags {
		value, err := tag.exifValue()
		if err != nil {
			return nil, err
		}
		if err := ib.AddStandard(tag.ID, value); err != nil {
			return nil, fmt.Errorf("failed to add EXIF tag %#04x: %w", tag.ID, err)
		}
	}
	if err := segments.SetExif(ib); err != nil {
		return nil, fmt.Errorf("failed to build EXIF segment: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(data) + 256)
	if err := segments.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write tagged JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// exifValue converts the raw value to the Go type go-exif expects for the
// tag type. Multi-byte values are read little-endian.
func (t Tag) exifValue() (interface{}, error) {
	switch t.Type {
	case TagASCII:
		return string(bytes.TrimRight(t.Value, "\x00")), nil
	case TagByte:
		return append([]byte(nil), t.Value...), nil
	case TagShort:
		if len(t.Value)%2 != 0 {
			return nil, fmt.Errorf("EXIF tag %#04x: SHORT value has %d bytes", t.ID, len(t.Value))
		}
		out := make([]uint16, len(t.Value)/2)
		for i := range out {
			out[i] = binary.LittleEndian.Uint16(t.Value[2*i:])
		}
		return out, nil
	case TagLong:
		if len(t.Value)%4 != 0 {
			return nil, fmt.Errorf("EXIF tag %#04x: LONG value has %d bytes", t.ID, len(t.Value))
		}
		out := make([]uint32, len(t.Value)/4)
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(t.Value[4*i:])
		}
		return out, nil
	}
	return nil, fmt.Errorf("EXIF tag %#04x: unsupported type %d", t.ID, t.Type)
}
