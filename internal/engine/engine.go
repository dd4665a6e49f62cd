// Package engine runs compressions and format conversions of image files,
// one at a time or as a batch over a Session.
package engine

import (
	"log/slog"
	"time"

	"github.com/AnyUserName/imgtool/internal/codec"
	"github.com/AnyUserName/imgtool/internal/outpath"
)

// Options configures an Engine.
type Options struct {
	// Registry supplies encoders. Nil probes a default registry.
	Registry *codec.Registry
	Logger   *slog.Logger
	// Workers is the number of files processed at once in a batch. Values
	// below 2 process files one after another.
	Workers int
	// FileTimeout bounds the encode of a single file. Zero means no limit.
	FileTimeout time.Duration
	// LegacyWebPFallback writes JPEG (compression) or PNG (conversion)
	// bytes under a .webp name instead of encoding WebP.
	LegacyWebPFallback bool
}

// Engine performs transcodes. It is safe for concurrent use.
type Engine struct {
	registry *codec.Registry
	resolver *outpath.Resolver
	log      *slog.Logger
	opts     Options
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.Registry == nil {
		opts.Registry = codec.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{
		registry: opts.Registry,
		resolver: outpath.NewResolver(),
		log:      opts.Logger,
		opts:     opts,
	}
}

// Registry returns the encoder registry in use.
func (e *Engine) Registry() *codec.Registry { return e.registry }
