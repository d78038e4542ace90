package codec

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"io"

	"github.com/klauspost/compress/zlib"
)

// TIFF field types and tags used by writeRGBTIFF.
const (
	tiffShort    = 3
	tiffLong     = 4
	tiffRational = 5

	tiffImageWidth                = 256
	tiffImageLength               = 257
	tiffBitsPerSample             = 258
	tiffCompression               = 259
	tiffPhotometricInterpretation = 262
	tiffStripOffsets              = 273
	tiffSamplesPerPixel           = 277
	tiffRowsPerStrip              = 278
	tiffStripByteCounts           = 279
	tiffXResolution               = 282
	tiffYResolution               = 283
	tiffResolutionUnit            = 296

	tiffDeflate = 8
	tiffRGB     = 2
	tiffPerInch = 2
)

type tiffField struct {
	tag   uint16
	typ   uint16
	value uint32
}

// writeRGBTIFF writes img as a little-endian baseline TIFF with three 8-bit
// samples per pixel in a single Deflate strip. Alpha is dropped; callers
// flatten first.
func writeRGBTIFF(w io.Writer, img image.Image) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	var strip bytes.Buffer
	zw := zlib.NewWriter(&strip)
	row := make([]byte, 3*width)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, y)).(color.NRGBA)
			row[3*x], row[3*x+1], row[3*x+2] = c.R, c.G, c.B
		}
		if _, err := zw.Write(row); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}

	// Layout: header, strip, bits-per-sample and resolution values, IFD.
	const header = 8
	stripOff := uint32(header)
	bpsOff := stripOff + uint32(strip.Len())
	if bpsOff%2 == 1 {
		bpsOff++
	}
	xresOff := bpsOff + 6
	yresOff := xresOff + 8
	ifdOff := yresOff + 8

	// Entries must stay in ascending tag order.
	fields := []tiffField{
		{tiffImageWidth, tiffLong, uint32(width)},
		{tiffImageLength, tiffLong, uint32(height)},
		{tiffBitsPerSample, tiffShort, bpsOff},
		{tiffCompression, tiffShort, tiffDeflate},
		{tiffPhotometricInterpretation, tiffShort, tiffRGB},
		{tiffStripOffsets, tiffLong, stripOff},
		{tiffSamplesPerPixel, tiffShort, 3},
		{tiffRowsPerStrip, tiffLong, uint32(height)},
		{tiffStripByteCounts, tiffLong, uint32(strip.Len())},
		{tiffXResolution, tiffRational, xresOff},
		{tiffYResolution, tiffRational, yresOff},
		{tiffResolutionUnit, tiffShort, tiffPerInch},
	}

	var out bytes.Buffer
	le := binary.LittleEndian
	out.WriteString("II")
	_ = binary.Write(&out, le, uint16(42))
	_ = binary.Write(&out, le, ifdOff)
	_, _ = strip.WriteTo(&out)
	for uint32(out.Len()) < bpsOff {
		out.WriteByte(0)
	}
	_ = binary.Write(&out, le, [3]uint16{8, 8, 8})
	_ = binary.Write(&out, le, [2]uint32{72, 1})
	_ = binary.Write(&out, le, [2]uint32{72, 1})

	_ = binary.Write(&out, le, uint16(len(fields)))
	for _, f := range fields {
		_ = binary.Write(&out, le, f.tag)
		_ = binary.Write(&out, le, f.typ)
		count := uint32(1)
		if f.tag == tiffBitsPerSample {
			count = 3
		}
		_ = binary.Write(&out, le, count)
		var value [4]byte
		if f.typ == tiffShort && count == 1 {
			le.PutUint16(value[:], uint16(f.value))
		} else {
			le.PutUint32(value[:], f.value)
		}
		out.Write(value[:])
	}
	_ = binary.Write(&out, le, uint32(0))

	_, err := out.WriteTo(w)
	return err
}
