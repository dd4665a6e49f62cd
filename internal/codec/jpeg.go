package codec

import (
	"bytes"
	"context"
	"image"

	"github.com/disintegration/imaging"
)

// JPEGEncoder encodes images to JPEG.
type JPEGEncoder struct{}

func (e *JPEGEncoder) Format() Format  { return JPEG }
func (e *JPEGEncoder) Name() string    { return "imaging" }
func (e *JPEGEncoder) Available() bool { return true }

func (e *JPEGEncoder) Encode(_ context.Context, img image.Image, p Params) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(256 * 1024) // typical photo size

	err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality(p.Quality)))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
