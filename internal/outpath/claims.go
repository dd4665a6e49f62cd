package outpath

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

// ErrClaimed is returned when an output path already belongs to another
// source in the same batch.
var ErrClaimed = errors.New("output path already used by another file in this batch")

// Claims tracks output paths claimed by source files within one batch run.
// The first source to claim a path owns it for the rest of the run; a
// second source resolving to the same path is refused instead of silently
// overwriting the first one's output. All methods are goroutine-safe.
type Claims struct {
	mu     sync.Mutex
	owners map[string]string // output path → source that owns it
}

// NewClaims creates an empty claim set.
func NewClaims() *Claims {
	return &Claims{owners: make(map[string]string)}
}

// Claim records source as the owner of output. Claiming a path already owned
// by the same source succeeds.
func (c *Claims) Claim(output, source string) error {
	key := claimKey(output)

	c.mu.Lock()
	defer c.mu.Unlock()

	owner, exists := c.owners[key]
	if exists && owner != source {
		return fmt.Errorf("%w: %s is produced from %s", ErrClaimed, filepath.Base(output), filepath.Base(owner))
	}
	c.owners[key] = source
	return nil
}

// Owner returns the source owning output, if any.
func (c *Claims) Owner(output string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[claimKey(output)]
	return owner, ok
}

func claimKey(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
