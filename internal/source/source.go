// Package source expands command-line arguments into the image files to
// submit.
package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/AnyUserName/imgtool/internal/codec"
)

// Candidate is a file found on disk.
type Candidate struct {
	// Path is the path as given or as found while walking.
	Path string
	// Size is the file size in bytes.
	Size int64
}

// Collect expands args into candidates. Files named directly are passed
// through whatever their extension, so that unsupported files show up as
// failures. Directories contribute only files with a known image
// extension; hidden files and directories are skipped, and subdirectories
// are entered only when recursive is set. Arguments that cannot be read
// are returned as errors without stopping the walk.
func Collect(args []string, recursive bool) ([]Candidate, []error) {
	var (
		out  []Candidate
		errs []error
		seen = map[string]bool{}
	)
	add := func(path string, size int64) {
		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Candidate{Path: path, Size: size})
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			errs = append(errs, fmt.Errorf("stat %s: %w", arg, err))
			continue
		}
		if !info.IsDir() {
			add(arg, info.Size())
			continue
		}
		if err := walk(arg, recursive, add); err != nil {
			errs = append(errs, err)
		}
	}
	return out, errs
}

func walk(root string, recursive bool, add func(string, int64)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			// Skip hidden directories.
			if isHidden(d.Name()) || !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(d.Name()) || !d.Type().IsRegular() || !codec.IsImagePath(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		add(path, info.Size())
		return nil
	})
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
