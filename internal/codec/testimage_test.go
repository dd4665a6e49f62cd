package codec

import (
	"encoding/binary"
	"image"
	"image/color"
	"testing"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// tiffCompressionTag reads the Compression tag of the first IFD of a
// little-endian TIFF.
func tiffCompressionTag(t *testing.T, data []byte) uint16 {
	t.Helper()
	if len(data) < 8 || string(data[:2]) != "II" {
		t.Fatalf("not a little-endian tiff: % x", data[:min(len(data), 8)])
	}
	off := binary.LittleEndian.Uint32(data[4:8])
	n := int(binary.LittleEndian.Uint16(data[off:]))
	for i := 0; i < n; i++ {
		e := data[int(off)+2+12*i:]
		if binary.LittleEndian.Uint16(e) == 259 {
			return binary.LittleEndian.Uint16(e[8:])
		}
	}
	t.Fatal("compression tag missing")
	return 0
}
