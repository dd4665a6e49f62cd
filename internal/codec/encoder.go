package codec

import (
	"context"
	"image"
)

// Encoder encodes an image to a specific format.
type Encoder interface {
	// Format returns the format of the bytes Encode produces.
	Format() Format

	// Encode converts the image to bytes using the format's parameters.
	Encode(ctx context.Context, img image.Image, p Params) ([]byte, error)

	// Available returns true if the encoder is ready to use.
	// External encoders (cwebp) may not be installed.
	Available() bool

	// Name identifies the implementation in logs ("stdlib", "cwebp", ...).
	Name() string
}
