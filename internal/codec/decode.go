package codec

import (
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode reads and decodes the image at path, applying EXIF orientation.
// HEIC has no registered decoder, so HEIC sources fail here.
func Decode(path string) (image.Image, error) {
	return imaging.Open(path, imaging.AutoOrientation(true))
}
