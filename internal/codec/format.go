package codec

import (
	"fmt"
	"strings"
)

// Format is an output format the pipeline can write.
type Format int

const (
	FormatPNG Format = iota
	FormatBMP
	FormatGIF
	FormatJPG
	FormatTIFF
	// FormatGreenshot is the container format: a PNG image followed by the
	// annotation block and footer.
	FormatGreenshot
)

var formatNames = map[Format]string{
	FormatPNG:       "png",
	FormatBMP:       "bmp",
	FormatGIF:       "gif",
	FormatJPG:       "jpg",
	FormatTIFF:      "tiff",
	FormatGreenshot: "greenshot",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Valid reports whether f is one of the defined formats.
func (f Format) Valid() bool {
	_, ok := formatNames[f]
	return ok
}

// Extension returns the file extension for f, with a leading dot.
func (f Format) Extension() string {
	if name, ok := formatNames[f]; ok {
		return "." + name
	}
	return ".png"
}

// ParseFormat maps a format name or file extension ("jpeg", ".tif") to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "png":
		return FormatPNG, nil
	case "bmp":
		return FormatBMP, nil
	case "gif":
		return FormatGIF, nil
	case "jpg", "jpeg":
		return FormatJPG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "greenshot":
		return FormatGreenshot, nil
	}
	return FormatPNG, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatBMP, FormatGIF, FormatJPG, FormatTIFF, FormatGreenshot, FormatPNG}
}
