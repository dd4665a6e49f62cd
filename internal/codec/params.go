package codec

import (
	"fmt"
	"image/png"
	"math"
)

// ConversionQuality is the fixed JPEG / lossy WebP factor used by format
// conversion. It does not follow the compression quality.
const ConversionQuality = 0.9

// TIFFThreshold is the compression quality above which TIFF output uses
// LZW instead of PackBits.
const TIFFThreshold = 0.7

// DefaultEffort asks the PNG encoder for its default compression level.
const DefaultEffort = -1.0

// TIFFCompression selects the TIFF compression method.
type TIFFCompression int

const (
	PackBits TIFFCompression = iota
	LZW
)

func (c TIFFCompression) String() string {
	if c == LZW {
		return "lzw"
	}
	return "packbits"
}

// Params are the codec parameters derived from a request.
type Params struct {
	// Quality is the lossy compression factor in 0..1 (JPEG, cwebp).
	Quality float64
	// Effort is the PNG compression effort in 0..1, or DefaultEffort.
	Effort float64
	// TIFF is the TIFF compression method.
	TIFF TIFFCompression
}

// Plan names the encoder that produces the output bytes and its parameters.
type Plan struct {
	Format Format
	Params Params
	// Fallback is set when the encoded bytes are not in the format the
	// output file extension suggests.
	Fallback bool
}

func (p Plan) String() string {
	switch p.Format {
	case PNG:
		if p.Params.Effort < 0 {
			return "png effort=default"
		}
		return fmt.Sprintf("png effort=%.2f", p.Params.Effort)
	case TIFF:
		return "tiff " + p.Params.TIFF.String()
	default:
		return fmt.Sprintf("%s q=%d", p.Format, JPEGQuality(p.Params.Quality))
	}
}

// JPEGQuality maps a 0..1 compression factor onto the 1..100 scale used by
// JPEG and cwebp.
func JPEGQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

// PNGEffort inverts quality into compression effort. PNG is lossless, so
// quality only trades encode time for size.
func PNGEffort(quality float64) float64 {
	return 1 - quality
}

// PNGLevel buckets an effort value into a zlib level.
func PNGLevel(effort float64) png.CompressionLevel {
	switch {
	case effort < 0:
		return png.DefaultCompression
	case effort == 0:
		return png.NoCompression
	case effort <= 1.0/3:
		return png.BestSpeed
	case effort <= 2.0/3:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// TIFFMethod selects LZW above TIFFThreshold and PackBits otherwise.
func TIFFMethod(quality float64) TIFFCompression {
	if quality > TIFFThreshold {
		return LZW
	}
	return PackBits
}

// CompressionPlan maps a same-format compression of a src image at the
// given quality onto an encoder. With legacyWebP set, WebP sources are
// re-encoded as JPEG bytes.
func CompressionPlan(src Format, quality float64, legacyWebP bool) (Plan, error) {
	switch src {
	case JPEG:
		return Plan{Format: JPEG, Params: Params{Quality: quality}}, nil
	case BMP, HEIC:
		return Plan{Format: JPEG, Params: Params{Quality: quality}, Fallback: true}, nil
	case PNG:
		return Plan{Format: PNG, Params: Params{Effort: PNGEffort(quality)}}, nil
	case TIFF:
		return Plan{Format: TIFF, Params: Params{TIFF: TIFFMethod(quality)}}, nil
	case WebP:
		if legacyWebP {
			return Plan{Format: JPEG, Params: Params{Quality: quality}, Fallback: true}, nil
		}
		return Plan{Format: WebP, Params: Params{Quality: quality}}, nil
	}
	return Plan{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, src)
}

// ConversionPlan maps a conversion to target onto an encoder. With
// legacyWebP set, WebP targets are written as PNG bytes.
func ConversionPlan(target Format, legacyWebP bool) (Plan, error) {
	switch target {
	case JPEG:
		return Plan{Format: JPEG, Params: Params{Quality: ConversionQuality}}, nil
	case PNG:
		return Plan{Format: PNG, Params: Params{Effort: DefaultEffort}}, nil
	case WebP:
		if legacyWebP {
			return Plan{Format: PNG, Params: Params{Effort: DefaultEffort}, Fallback: true}, nil
		}
		return Plan{Format: WebP, Params: Params{Quality: ConversionQuality}}, nil
	}
	return Plan{}, fmt.Errorf("%w: conversion target %q", ErrUnsupportedFormat, target)
}
