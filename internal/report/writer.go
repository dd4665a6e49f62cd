package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AnyUserName/imgtool/internal/engine"
	"github.com/AnyUserName/imgtool/internal/hasher"
	"github.com/AnyUserName/imgtool/internal/outpath"
)

// New creates an empty report for the given operation.
func New(operation string) *Report {
	return &Report{
		Version:     SupportedVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Operation:   operation,
		Entries:     []Entry{},
	}
}

// Add appends a record. Paths are stored absolute. Completed outputs are
// hashed so that validate can detect later changes.
func (r *Report) Add(rec engine.Record) error {
	e := Entry{
		ID:           rec.ID,
		Source:       absPath(rec.SourcePath),
		Status:       rec.Status.String(),
		Error:        rec.Error,
		OriginalSize: rec.OriginalSize,
	}
	if rec.Status == engine.StatusCompleted {
		size := *rec.ProcessedSize
		e.ProcessedSize = &size
		e.Output = absPath(rec.OutputPath)
		e.OutputFormat = string(rec.OutputFormat)
		e.Fallback = rec.Fallback

		h, err := hasher.FileHash(e.Output, HashLen)
		if err != nil {
			return fmt.Errorf("hash %s: %w", filepath.Base(e.Output), err)
		}
		e.Hash = h
	}
	r.Entries = append(r.Entries, e)
	return nil
}

// ComputeStats recalculates aggregate statistics from entries.
func (r *Report) ComputeStats() {
	var s Stats
	s.TotalFiles = len(r.Entries)
	for _, e := range r.Entries {
		switch e.Status {
		case "completed":
			s.Completed++
			if e.ProcessedSize != nil {
				s.TotalInputBytes += e.OriginalSize
				s.TotalOutputBytes += *e.ProcessedSize
			}
		case "failed":
			s.Failed++
		default:
			s.Pending++
		}
	}
	s.SavedBytes = s.TotalInputBytes - s.TotalOutputBytes
	r.Stats = s
}

// WriteJSON serializes the report to a JSON file.
func WriteJSON(r *Report, path string) error {
	r.ComputeStats()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return outpath.WriteAtomic(path, data)
}

// ReadJSON loads a report written by WriteJSON.
func ReadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &r, nil
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
