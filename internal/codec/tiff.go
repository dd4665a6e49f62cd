package codec

import (
	"bytes"
	"context"
	"image"

	"github.com/disintegration/imaging"
	"github.com/hhrutter/tiff"
)

// TIFFEncoder writes TIFF files compressed with LZW or PackBits.
// golang.org/x/image/tiff only writes uncompressed and Deflate strips, so
// LZW goes through hhrutter/tiff and PackBits through writePackBitsTIFF.
type TIFFEncoder struct{}

func (e *TIFFEncoder) Format() Format  { return TIFF }
func (e *TIFFEncoder) Name() string    { return "hhrutter/tiff" }
func (e *TIFFEncoder) Available() bool { return true }

func (e *TIFFEncoder) Encode(_ context.Context, img image.Image, p Params) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(512 * 1024)

	nrgba := imaging.Clone(img)
	if p.TIFF == LZW {
		if err := tiff.Encode(&buf, nrgba, &tiff.Options{Compression: tiff.LZW}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if err := writePackBitsTIFF(&buf, nrgba); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
