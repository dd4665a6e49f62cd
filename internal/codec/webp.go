package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
)

// Atomic counter for unique temp file names across goroutines.
var tempCounter atomic.Int64

// CWebPEncoder encodes lossy WebP by shelling out to cwebp.
// This approach avoids CGO while still producing optimized WebP.
// Install: brew install webp / apt install webp
type CWebPEncoder struct {
	once      sync.Once
	available bool
	cwebpPath string
}

func (e *CWebPEncoder) Format() Format { return WebP }
func (e *CWebPEncoder) Name() string   { return "cwebp" }

func (e *CWebPEncoder) Available() bool {
	e.once.Do(func() {
		path, err := exec.LookPath("cwebp")
		if err == nil {
			e.available = true
			e.cwebpPath = path
		}
	})
	return e.available
}

func (e *CWebPEncoder) Encode(ctx context.Context, img image.Image, p Params) ([]byte, error) {
	if !e.Available() {
		return nil, fmt.Errorf("cwebp not found in PATH; install with: brew install webp")
	}

	// cwebp reads files, so the source goes through a temp PNG.
	id := tempCounter.Add(1)
	srcFile, err := os.CreateTemp("", fmt.Sprintf("imgtool_src_%d_*.png", id))
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	srcPath := srcFile.Name()
	defer os.Remove(srcPath)

	dstFile, err := os.CreateTemp("", fmt.Sprintf("imgtool_dst_%d_*.webp", id))
	if err != nil {
		srcFile.Close()
		return nil, fmt.Errorf("create temp: %w", err)
	}
	dstPath := dstFile.Name()
	dstFile.Close()
	defer os.Remove(dstPath)

	if err := imaging.Encode(srcFile, img, imaging.PNG, imaging.PNGCompressionLevel(PNGLevel(0))); err != nil {
		srcFile.Close()
		return nil, fmt.Errorf("encode temp png: %w", err)
	}
	if err := srcFile.Close(); err != nil {
		return nil, fmt.Errorf("close temp png: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.cwebpPath,
		"-q", strconv.Itoa(JPEGQuality(p.Quality)),
		"-m", "6", // compression method (0=fast, 6=best)
		"-mt",     // multi-threaded
		"-quiet",
		srcPath,
		"-o", dstPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("cwebp: %w: %s", err, bytes.TrimSpace(out))
	}

	return os.ReadFile(dstPath)
}

// LosslessWebPEncoder writes VP8L (lossless) WebP in pure Go. It is the
// WebP encoder of last resort when cwebp is missing, so quality is ignored.
type LosslessWebPEncoder struct{}

func (e *LosslessWebPEncoder) Format() Format  { return WebP }
func (e *LosslessWebPEncoder) Name() string    { return "nativewebp" }
func (e *LosslessWebPEncoder) Available() bool { return true }

func (e *LosslessWebPEncoder) Encode(_ context.Context, img image.Image, _ Params) ([]byte, error) {
	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, imaging.Clone(img), nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
