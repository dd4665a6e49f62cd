package engine

import (
	"errors"
	"path/filepath"

	"github.com/AnyUserName/imgtool/internal/codec"
)

// Error kinds. Every failure a transcode reports matches exactly one of
// these under errors.Is.
var (
	ErrInvalidImage      = errors.New("invalid or corrupted image file")
	ErrUnsupportedFormat = codec.ErrUnsupportedFormat
	ErrEncodeFailed      = errors.New("encoding failed")
	ErrFileOperation     = errors.New("file operation failed")
	ErrPath              = errors.New("invalid output location")
)

// ErrInvalidQuality is returned for compression qualities outside
// 0.10..0.90 or off the 0.10 grid.
var ErrInvalidQuality = errors.New("quality must be one of 0.1, 0.2, ... 0.9")

// ErrUnknownRecord is returned for record ids not in the session.
var ErrUnknownRecord = errors.New("unknown record")

// Error is a failed transcode of one file.
type Error struct {
	Kind error
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Path != "" {
		msg += " (" + filepath.Base(e.Path) + ")"
	}
	switch {
	case e.Err == nil:
	case errors.Is(e.Err, e.Kind) && e.Err != e.Kind:
		// Err already names the kind; keep only its detail.
		msg = e.Err.Error()
		if e.Path != "" {
			msg += " (" + filepath.Base(e.Path) + ")"
		}
	case e.Err != e.Kind:
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// KindOf returns the error kind of err, or nil if err is not a transcode
// failure.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}
