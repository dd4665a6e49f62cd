package codec

import (
	"bytes"
	"context"
	"image"

	"github.com/disintegration/imaging"
)

// PNGEncoder encodes images to PNG. Effort picks the zlib level; pixels are
// always preserved.
type PNGEncoder struct{}

func (e *PNGEncoder) Format() Format  { return PNG }
func (e *PNGEncoder) Name() string    { return "imaging" }
func (e *PNGEncoder) Available() bool { return true }

func (e *PNGEncoder) Encode(_ context.Context, img image.Image, p Params) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(512 * 1024) // pre-alloc 512KB

	err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(PNGLevel(p.Effort)))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
