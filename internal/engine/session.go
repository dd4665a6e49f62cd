package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Entry is a file to submit whose size is already known.
type Entry struct {
	Path string
	Size int64
}

// Session is the ordered set of records for one run. Records are kept in
// submission order and unique by normalized source path. All methods are
// goroutine-safe.
type Session struct {
	log *slog.Logger

	mu      sync.Mutex
	records []*Record
	byPath  map[string]*Record
	byID    map[string]*Record
}

// NewSession creates an empty session.
func NewSession(log *slog.Logger) *Session {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Session{
		log:    log,
		byPath: make(map[string]*Record),
		byID:   make(map[string]*Record),
	}
}

// Submit adds one pending record per new path. Paths that are already in
// the session, whatever their status, are ignored. Files that cannot be
// stat'ed are skipped with a warning. The returned slice holds the records
// that were added.
func (s *Session) Submit(paths []string) []Record {
	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			s.log.Warn("skipping unreadable file", "source", p, "error", err)
			continue
		}
		if info.IsDir() {
			s.log.Warn("skipping directory", "source", p)
			continue
		}
		entries = append(entries, Entry{Path: p, Size: info.Size()})
	}
	return s.SubmitEntries(entries)
}

// SubmitEntries is Submit for callers that have already stat'ed the files.
func (s *Session) SubmitEntries(entries []Entry) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []Record
	for _, e := range entries {
		key := pathKey(e.Path)
		if _, dup := s.byPath[key]; dup {
			s.log.Debug("already submitted", "source", e.Path)
			continue
		}
		r := &Record{
			ID:           uuid.NewString(),
			SourcePath:   e.Path,
			OriginalSize: e.Size,
			Status:       StatusPending,
		}
		s.records = append(s.records, r)
		s.byPath[key] = r
		s.byID[r.ID] = r
		added = append(added, r.snapshot())
	}
	return added
}

// Records returns a snapshot of all records in submission order.
func (s *Session) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.snapshot()
	}
	return out
}

// Get returns a snapshot of the record with the given id.
func (s *Session) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}
	return r.snapshot(), true
}

// Len returns the number of records.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Reset returns terminal records to pending so that the next run processes
// them again. With no ids, every terminal record is reset. Records being
// processed are left alone. It returns the number of records reset.
func (s *Session) Reset(ids ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := s.records
	if len(ids) > 0 {
		targets = targets[:0:0]
		for _, id := range ids {
			if r, ok := s.byID[id]; ok {
				targets = append(targets, r)
			}
		}
	}

	n := 0
	for _, r := range targets {
		if r.Status.Terminal() {
			r.reset()
			n++
		}
	}
	return n
}

// Clear drops all records.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.byPath = make(map[string]*Record)
	s.byID = make(map[string]*Record)
}

// pending returns the ids of pending records in submission order.
func (s *Session) pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for _, r := range s.records {
		if r.Status == StatusPending {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// sources returns the cleaned source path of every record.
func (s *Session) sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.records))
	for i, r := range s.records {
		out[i] = filepath.Clean(r.SourcePath)
	}
	return out
}

// transition applies fn to the record under the session lock and returns
// the resulting snapshot.
func (s *Session) transition(id string, fn func(*Record) error) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return Record{}, ErrUnknownRecord
	}
	if err := fn(r); err != nil {
		return r.snapshot(), err
	}
	return r.snapshot(), nil
}

// pathKey normalizes a source path for duplicate detection.
func pathKey(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return norm.NFC.String(filepath.Clean(p))
}
