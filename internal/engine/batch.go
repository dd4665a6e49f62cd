package engine

import (
	"context"
	"fmt"

	"github.com/AnyUserName/imgtool/internal/codec"
	"github.com/AnyUserName/imgtool/internal/outpath"
	"golang.org/x/sync/errgroup"
)

// Update reports a record status change during a batch run. Record is a
// snapshot taken right after the change.
type Update struct {
	// Index is the position of the record among the files picked up by
	// this run, starting at 0.
	Index  int
	Total  int
	Record Record
}

// RunCompression compresses every pending record of s at the given
// quality. Updates are delivered on the returned channel, which is closed
// once the run is over. A failed file never stops the run. Cancelling ctx
// stops new files from being picked up; files already being processed are
// finished and the rest stay pending.
func (e *Engine) RunCompression(ctx context.Context, s *Session, quality float64, policy OutputPolicy) (<-chan Update, error) {
	quality, err := gridQuality(quality)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, s, func(ctx context.Context, r Record, claims *outpath.Claims) (Result, error) {
		return e.compress(ctx, CompressionRequest{Source: r.SourcePath, Quality: quality, Policy: policy}, claims)
	}), nil
}

// RunConversion converts every pending record of s to target. It behaves
// like RunCompression otherwise.
func (e *Engine) RunConversion(ctx context.Context, s *Session, target codec.Format, policy OutputPolicy) (<-chan Update, error) {
	if _, err := codec.ConversionPlan(target, false); err != nil {
		return nil, err
	}
	return e.run(ctx, s, func(ctx context.Context, r Record, claims *outpath.Claims) (Result, error) {
		return e.convert(ctx, ConversionRequest{Source: r.SourcePath, Target: target, Policy: policy}, claims)
	}), nil
}

type transcodeFunc func(ctx context.Context, r Record, claims *outpath.Claims) (Result, error)

func (e *Engine) run(ctx context.Context, s *Session, fn transcodeFunc) <-chan Update {
	ids := s.pending()
	total := len(ids)
	// Two updates per file; the run never blocks on a slow reader.
	updates := make(chan Update, 2*total)
	claims := outpath.NewClaims()
	// Every source belongs to its own record, so no output can land on
	// another record's original.
	for _, src := range s.sources() {
		if err := claims.Claim(src, src); err != nil {
			e.log.Debug("source claim", "source", src, "error", err)
		}
	}

	go func() {
		defer close(updates)

		e.log.Info("batch started", "files", total, "workers", e.opts.Workers)
		if e.opts.Workers < 2 {
			for i, id := range ids {
				if ctx.Err() != nil {
					e.log.Warn("batch interrupted", "remaining", total-i)
					break
				}
				e.process(ctx, s, i, total, id, fn, claims, updates)
			}
		} else {
			var g errgroup.Group
			g.SetLimit(e.opts.Workers)
			for i, id := range ids {
				if ctx.Err() != nil {
					e.log.Warn("batch interrupted", "remaining", total-i)
					break
				}
				g.Go(func() error {
					if ctx.Err() != nil {
						return nil
					}
					e.process(ctx, s, i, total, id, fn, claims, updates)
					return nil
				})
			}
			g.Wait()
		}
		e.log.Info("batch finished", "files", total)
	}()

	return updates
}

// process moves one record through processing to completed or failed.
func (e *Engine) process(ctx context.Context, s *Session, i, total int, id string, fn transcodeFunc, claims *outpath.Claims, updates chan<- Update) {
	rec, err := s.transition(id, (*Record).begin)
	if err != nil {
		// Reset or cleared since the run started.
		e.log.Debug("skipping record", "id", id, "error", err)
		return
	}
	updates <- Update{Index: i, Total: total, Record: rec}

	// The file runs to completion even if the batch is cancelled meanwhile.
	res, terr := e.safeTranscode(context.WithoutCancel(ctx), rec, claims, fn)

	if terr != nil {
		rec, err = s.transition(id, func(r *Record) error { return r.fail(terr) })
	} else {
		rec, err = s.transition(id, func(r *Record) error { return r.complete(res) })
	}
	if err != nil {
		e.log.Debug("record changed during processing", "id", id, "error", err)
		return
	}
	if terr != nil {
		e.log.Warn("file failed", "source", rec.SourcePath, "error", terr)
	} else {
		e.log.Info("file done", "source", rec.SourcePath, "output", res.OutputPath,
			"original", rec.OriginalSize, "processed", res.Size)
	}
	updates <- Update{Index: i, Total: total, Record: rec}
}

// safeTranscode turns a panicking encoder into a failed file.
func (e *Engine) safeTranscode(ctx context.Context, rec Record, claims *outpath.Claims, fn transcodeFunc) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = newError(ErrEncodeFailed, rec.SourcePath, fmt.Errorf("panic: %v", p))
		}
	}()
	return fn(ctx, rec, claims)
}
