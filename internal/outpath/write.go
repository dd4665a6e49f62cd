package outpath

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/AnyUserName/imgtool/internal/hasher"
	"github.com/gofrs/flock"
)

// WriteAtomic writes data to a temp file next to path and renames it over
// path. If anything fails the destination is left untouched, so an
// original being replaced survives a failed write. An existing file's
// permission bits are kept.
func WriteAtomic(path string, data []byte) error {
	perm := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename into %s: %w", filepath.Base(path), err)
	}
	committed = true
	return nil
}

// lockRetry is how often Lock polls a lock held by another process.
const lockRetry = 50 * time.Millisecond

// Lock takes an inter-process lock for writing path, waiting while another
// imgtool process holds it. Lock files live in the temp dir, keyed by a
// hash of the absolute path, so nothing is left next to the images.
func Lock(ctx context.Context, path string) (unlock func(), err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	lockPath := filepath.Join(os.TempDir(), "imgtool-"+hasher.ContentHash([]byte(abs), 16)+".lock")

	fl := flock.New(lockPath)
	ok, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", filepath.Base(path), err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: not acquired", filepath.Base(path))
	}
	return func() { fl.Unlock() }, nil
}
