package codec

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format names an image format known to imgtool.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	TIFF Format = "tiff"
	WebP Format = "webp"
	BMP  Format = "bmp"
	HEIC Format = "heic"
)

// ErrUnsupportedFormat is returned for extensions and targets imgtool
// cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// sourceExtensions maps lower-cased file extensions to source formats.
// Detection is by extension only; content is never sniffed.
var sourceExtensions = map[string]Format{
	".png":  PNG,
	".jpg":  JPEG,
	".jpeg": JPEG,
	".heic": HEIC,
	".heif": HEIC,
	".webp": WebP,
	".tiff": TIFF,
	".tif":  TIFF,
	".bmp":  BMP,
}

// Detect returns the source format of path based on its extension
// (case-insensitive).
func Detect(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := sourceExtensions[ext]; ok {
		return f, nil
	}
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, filepath.Base(path))
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// IsImagePath reports whether path carries a recognised source extension.
func IsImagePath(path string) bool {
	_, ok := sourceExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// TargetFormats lists the formats a conversion can produce, in display order.
var TargetFormats = []Format{JPEG, PNG, WebP}

// ParseTarget parses a conversion target name. "jpg" is accepted as an
// alias for jpeg.
func ParseTarget(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	}
	return "", fmt.Errorf("%w: conversion target %q (want jpeg, png or webp)", ErrUnsupportedFormat, name)
}

// TargetExtension returns the file extension, without dot, written for a
// conversion to f.
func TargetExtension(f Format) string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}
