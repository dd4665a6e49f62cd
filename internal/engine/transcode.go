package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/AnyUserName/imgtool/internal/codec"
	"github.com/AnyUserName/imgtool/internal/outpath"
)

// OutputPolicy holds the user rules for output placement and naming.
type OutputPolicy = outpath.Policy

// CompressionRequest re-encodes Source in its own format.
type CompressionRequest struct {
	Source  string
	Quality float64
	Policy  OutputPolicy
}

// ConversionRequest re-encodes Source as Target.
type ConversionRequest struct {
	Source string
	Target codec.Format
	Policy OutputPolicy
}

// Result describes a written output file.
type Result struct {
	OutputPath string
	Size       int64
	// Format is the format of the bytes written.
	Format codec.Format
	// Fallback is set when Format differs from what the output extension
	// suggests.
	Fallback bool
}

// ValidateQuality checks that q is one of 0.1, 0.2, ... 0.9.
func ValidateQuality(q float64) error {
	_, err := gridQuality(q)
	return err
}

// gridQuality returns q snapped onto the 0.1 grid, so that a computed
// 0.7000000000000001 selects the same codec settings as 0.7.
func gridQuality(q float64) (float64, error) {
	steps := q * 10
	n := math.Round(steps)
	if n < 1 || n > 9 || math.Abs(steps-n) > 1e-6 {
		return 0, fmt.Errorf("%w: got %g", ErrInvalidQuality, q)
	}
	return n / 10, nil
}

// Compress re-encodes a single file in its own format at the requested
// quality.
func (e *Engine) Compress(ctx context.Context, req CompressionRequest) (Result, error) {
	q, err := gridQuality(req.Quality)
	if err != nil {
		return Result{}, err
	}
	req.Quality = q
	return e.compress(ctx, req, nil)
}

// Convert re-encodes a single file as another format.
func (e *Engine) Convert(ctx context.Context, req ConversionRequest) (Result, error) {
	if _, err := codec.ConversionPlan(req.Target, false); err != nil {
		return Result{}, newError(ErrUnsupportedFormat, req.Source, err)
	}
	return e.convert(ctx, req, nil)
}

func (e *Engine) compress(ctx context.Context, req CompressionRequest, claims *outpath.Claims) (Result, error) {
	src, err := codec.Detect(req.Source)
	if err != nil {
		return Result{}, newError(ErrUnsupportedFormat, req.Source, err)
	}
	plan, err := codec.CompressionPlan(src, req.Quality, e.opts.LegacyWebPFallback)
	if err != nil {
		return Result{}, newError(ErrUnsupportedFormat, req.Source, err)
	}
	return e.transcode(ctx, job{
		source: req.Source,
		suffix: req.Policy.FileSuffix(),
		plan:   plan,
		policy: req.Policy,
		claims: claims,
	})
}

func (e *Engine) convert(ctx context.Context, req ConversionRequest, claims *outpath.Claims) (Result, error) {
	if _, err := codec.Detect(req.Source); err != nil {
		return Result{}, newError(ErrUnsupportedFormat, req.Source, err)
	}
	plan, err := codec.ConversionPlan(req.Target, e.opts.LegacyWebPFallback)
	if err != nil {
		return Result{}, newError(ErrUnsupportedFormat, req.Source, err)
	}
	return e.transcode(ctx, job{
		source: req.Source,
		newExt: codec.TargetExtension(req.Target),
		plan:   plan,
		policy: req.Policy,
		claims: claims,
	})
}

type job struct {
	source string
	suffix string
	newExt string
	plan   codec.Plan
	policy OutputPolicy
	claims *outpath.Claims
}

func (e *Engine) transcode(ctx context.Context, j job) (Result, error) {
	log := e.log.With("source", j.source)

	img, err := codec.Decode(j.source)
	if err != nil {
		return Result{}, newError(ErrInvalidImage, j.source, err)
	}

	out, err := e.resolver.Resolve(j.source, j.suffix, j.newExt, j.policy)
	if err != nil {
		return Result{}, newError(ErrPath, j.source, err)
	}
	if j.claims != nil {
		if err := j.claims.Claim(out.Path, out.Source); err != nil {
			return Result{}, newError(ErrPath, j.source, err)
		}
	}
	log.Debug("encoding", "output", out.Path, "plan", j.plan.String())

	encCtx := ctx
	if e.opts.FileTimeout > 0 {
		var cancel context.CancelFunc
		encCtx, cancel = context.WithTimeout(ctx, e.opts.FileTimeout)
		defer cancel()
	}
	data, err := e.registry.Encode(encCtx, img, j.plan)
	if err != nil {
		return Result{}, newError(ErrEncodeFailed, j.source, err)
	}

	if err := e.write(ctx, out, data); err != nil {
		return Result{}, newError(ErrFileOperation, j.source, err)
	}

	info, err := os.Stat(out.Path)
	if err != nil {
		return Result{}, newError(ErrFileOperation, j.source, err)
	}
	log.Debug("written", "output", out.Path, "bytes", info.Size())

	return Result{
		OutputPath: out.Path,
		Size:       info.Size(),
		Format:     j.plan.Format,
		Fallback:   j.plan.Fallback,
	}, nil
}

// write puts data at the planned path and then removes the source if the
// plan moves it.
func (e *Engine) write(ctx context.Context, out outpath.Plan, data []byte) error {
	unlock, err := outpath.Lock(ctx, out.Path)
	if err != nil {
		return err
	}
	defer unlock()

	if err := outpath.WriteAtomic(out.Path, data); err != nil {
		return err
	}
	if out.RemoveSource {
		if err := os.Remove(out.Source); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove original: %w", err)
		}
	}
	return nil
}
