// Package outpath derives output file paths from a source path and an
// output policy, and writes output files without ever exposing a
// half-written file at the destination.
package outpath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrOutputDir is returned when the configured output directory cannot be
// created or written to.
var ErrOutputDir = errors.New("output directory unusable")

// Policy holds the user rules for output placement and naming.
type Policy struct {
	ReplaceOriginal bool
	UseCustomOutput bool
	CustomOutputDir string
	AppendSuffix    bool
	Suffix          string
}

// CustomDir returns the custom output directory when it is enabled and set.
func (p Policy) CustomDir() (string, bool) {
	dir := strings.TrimSpace(p.CustomOutputDir)
	if !p.UseCustomOutput || dir == "" {
		return "", false
	}
	return dir, true
}

// FileSuffix returns the suffix to append, or "" when suffixes are off.
func (p Policy) FileSuffix() string {
	if !p.AppendSuffix {
		return ""
	}
	return p.Suffix
}

// Plan is a resolved output location.
type Plan struct {
	Source string
	Path   string
	// Replace is set when Path is the source itself and the source is to be
	// overwritten in place.
	Replace bool
	// RemoveSource is set when the source is to be deleted once the output
	// has been written elsewhere.
	RemoveSource bool
}

// Resolver computes output paths. It remembers which custom directories it
// has already prepared. All methods are goroutine-safe.
type Resolver struct {
	mu    sync.Mutex
	ready map[string]error
}

// NewResolver creates a ready-to-use resolver.
func NewResolver() *Resolver {
	return &Resolver{ready: make(map[string]error)}
}

// Resolve returns the output plan for source. suffix is appended to the
// base name when non-empty; newExt (without dot) replaces the source
// extension when non-empty.
//
// When the policy replaces originals and neither a suffix nor a new
// extension is requested, the source is replaced: in place when the output
// lands on the source path, by removal after the write otherwise. Nothing
// is deleted here.
func (r *Resolver) Resolve(source, suffix, newExt string, p Policy) (Plan, error) {
	source = filepath.Clean(source)
	ext := filepath.Ext(source)
	base := strings.TrimSuffix(filepath.Base(source), ext)

	name := base + suffix
	if newExt != "" {
		name += "." + strings.TrimPrefix(newExt, ".")
	} else {
		name += ext
	}

	dir := filepath.Dir(source)
	if custom, ok := p.CustomDir(); ok {
		if err := r.prepare(custom); err != nil {
			return Plan{}, err
		}
		dir = filepath.Clean(custom)
	}

	plan := Plan{Source: source, Path: filepath.Join(dir, name)}
	if p.ReplaceOriginal && suffix == "" && newExt == "" {
		if samePath(plan.Path, source) {
			plan.Replace = true
		} else {
			plan.RemoveSource = true
		}
	}
	return plan, nil
}

// prepare creates dir and checks that files can be created in it. The
// outcome is cached per directory.
func (r *Resolver) prepare(dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.ready[dir]; ok {
		return err
	}
	err := probeDir(dir)
	r.ready[dir] = err
	return err
}

func probeDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrOutputDir, err)
	}
	f, err := os.CreateTemp(dir, ".imgtool-probe-*")
	if err != nil {
		return fmt.Errorf("%w: %s is not writable: %w", ErrOutputDir, dir, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return nil
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
