package engine

import (
	"errors"
	"fmt"

	"github.com/AnyUserName/imgtool/internal/codec"
)

// Status is the lifecycle state of a Record.
type Status int

const (
	StatusPending Status = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Terminal reports whether no further transition is allowed without a reset.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrInvalidTransition is returned when a record is moved out of order
// through pending → processing → completed|failed.
var ErrInvalidTransition = errors.New("invalid status transition")

// Record tracks one submitted file. ProcessedSize is set only when Status
// is completed and Error only when Status is failed.
type Record struct {
	ID           string
	SourcePath   string
	OriginalSize int64

	Status        Status
	ProcessedSize *int64
	Error         string

	// Set on completion.
	OutputPath   string
	OutputFormat codec.Format
	Fallback     bool
}

// SizeDelta returns the bytes saved (negative when the output grew).
func (r Record) SizeDelta() (int64, bool) {
	if r.ProcessedSize == nil {
		return 0, false
	}
	return r.OriginalSize - *r.ProcessedSize, true
}

// Ratio returns the percentage of the original size saved.
func (r Record) Ratio() (float64, bool) {
	if r.ProcessedSize == nil || r.OriginalSize <= 0 {
		return 0, false
	}
	return (1 - float64(*r.ProcessedSize)/float64(r.OriginalSize)) * 100, true
}

func (r *Record) begin() error {
	if r.Status != StatusPending {
		return fmt.Errorf("%w: %s → processing", ErrInvalidTransition, r.Status)
	}
	r.Status = StatusProcessing
	return nil
}

func (r *Record) complete(res Result) error {
	if r.Status != StatusProcessing {
		return fmt.Errorf("%w: %s → completed", ErrInvalidTransition, r.Status)
	}
	size := res.Size
	r.Status = StatusCompleted
	r.ProcessedSize = &size
	r.Error = ""
	r.OutputPath = res.OutputPath
	r.OutputFormat = res.Format
	r.Fallback = res.Fallback
	return nil
}

func (r *Record) fail(err error) error {
	if r.Status != StatusProcessing {
		return fmt.Errorf("%w: %s → failed", ErrInvalidTransition, r.Status)
	}
	r.Status = StatusFailed
	r.ProcessedSize = nil
	r.Error = err.Error()
	return nil
}

func (r *Record) reset() {
	r.Status = StatusPending
	r.ProcessedSize = nil
	r.Error = ""
	r.OutputPath = ""
	r.OutputFormat = ""
	r.Fallback = false
}

// snapshot returns a copy that shares no mutable state with r.
func (r *Record) snapshot() Record {
	c := *r
	if r.ProcessedSize != nil {
		size := *r.ProcessedSize
		c.ProcessedSize = &size
	}
	return c
}
