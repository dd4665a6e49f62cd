package codec

import (
	"encoding/binary"
	"errors"
	"image"
	"io"
)

// TIFF tag numbers and field types used by the PackBits writer.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagExtraSamples    = 338

	typeShort = 3
	typeLong  = 4

	compressionPackBits = 32773
	photometricRGB      = 2
	extraUnassocAlpha   = 2
)

type ifdEntry struct {
	tag, typ uint16
	count    uint32
	value    uint32
}

// writePackBitsTIFF writes a little-endian baseline TIFF holding m as a
// single PackBits-compressed strip of 8-bit RGBA with unassociated alpha.
// Every row is packed on its own; PackBits runs never cross rows.
func writePackBitsTIFF(w io.Writer, m *image.NRGBA) error {
	width, height := m.Rect.Dx(), m.Rect.Dy()
	if width == 0 || height == 0 {
		return errors.New("tiff: empty image")
	}

	var strip []byte
	rowLen := width * 4
	for y := 0; y < height; y++ {
		off := y * m.Stride
		strip = packBits(strip, m.Pix[off:off+rowLen])
	}

	const headerLen = 8
	stripLen := len(strip)
	ifdOffset := uint32(headerLen + stripLen)
	if ifdOffset%2 == 1 {
		strip = append(strip, 0) // IFD must start on a word boundary
		ifdOffset++
	}

	entries := []ifdEntry{
		{tagImageWidth, typeLong, 1, uint32(width)},
		{tagImageLength, typeLong, 1, uint32(height)},
		{tagBitsPerSample, typeShort, 4, 0}, // offset set below
		{tagCompression, typeShort, 1, compressionPackBits},
		{tagPhotometric, typeShort, 1, photometricRGB},
		{tagStripOffsets, typeLong, 1, headerLen},
		{tagSamplesPerPixel, typeShort, 1, 4},
		{tagRowsPerStrip, typeLong, 1, uint32(height)},
		{tagStripByteCounts, typeLong, 1, uint32(stripLen)},
		{tagPlanarConfig, typeShort, 1, 1},
		{tagExtraSamples, typeShort, 1, extraUnassocAlpha},
	}
	ifdLen := 2 + 12*len(entries) + 4
	entries[2].value = ifdOffset + uint32(ifdLen)

	buf := make([]byte, 0, headerLen+len(strip)+ifdLen+8)
	buf = append(buf, 'I', 'I')
	buf = binary.LittleEndian.AppendUint16(buf, 42)
	buf = binary.LittleEndian.AppendUint32(buf, ifdOffset)
	buf = append(buf, strip...)

	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(entries)))
	for _, e := range entries {
		buf = binary.LittleEndian.AppendUint16(buf, e.tag)
		buf = binary.LittleEndian.AppendUint16(buf, e.typ)
		buf = binary.LittleEndian.AppendUint32(buf, e.count)
		buf = binary.LittleEndian.AppendUint32(buf, e.value)
	}
	buf = binary.LittleEndian.AppendUint32(buf, 0) // no further IFDs
	for i := 0; i < 4; i++ {
		buf = binary.LittleEndian.AppendUint16(buf, 8)
	}

	_, err := w.Write(buf)
	return err
}

// packBits appends the PackBits encoding of src to dst. Runs of two or
// more equal bytes become replicate packets, everything else literal
// packets of at most 128 bytes.
func packBits(dst, src []byte) []byte {
	for i := 0; i < len(src); {
		j := i + 1
		for j < len(src) && j-i < 128 && src[j] == src[i] {
			j++
		}
		if j-i >= 2 {
			dst = append(dst, byte(int8(1-(j-i))), src[i])
			i = j
			continue
		}

		j = i
		for j < len(src) && j-i < 128 {
			if j+1 < len(src) && src[j] == src[j+1] {
				break
			}
			j++
		}
		dst = append(dst, byte(j-i-1))
		dst = append(dst, src[i:j]...)
		i = j
	}
	return dst
}
