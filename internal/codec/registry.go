package codec

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// Registry holds all available encoders and selects the best one per format.
type Registry struct {
	encoders map[Format]Encoder
}

// Option configures a Registry.
type Option func(*registryConfig)

type registryConfig struct {
	external bool
	extra    []Encoder
}

// WithExternalEncoders controls whether encoders that shell out to other
// programs (cwebp) are considered. They are on by default.
func WithExternalEncoders(enabled bool) Option {
	return func(c *registryConfig) { c.external = enabled }
}

// WithEncoder puts enc ahead of the built-in encoders for its format.
func WithEncoder(enc Encoder) Option {
	return func(c *registryConfig) { c.extra = append(c.extra, enc) }
}

// NewRegistry creates a registry, probing all encoders for availability.
// Encoders are listed in preference order; the first available one wins.
func NewRegistry(opts ...Option) *Registry {
	cfg := registryConfig{external: true}
	for _, o := range opts {
		o(&cfg)
	}

	r := &Registry{
		encoders: make(map[Format]Encoder),
	}

	all := append([]Encoder(nil), cfg.extra...)
	if cfg.external {
		all = append(all, &CWebPEncoder{})
	}
	all = append(all,
		&LosslessWebPEncoder{},
		&JPEGEncoder{},
		&PNGEncoder{},
		&TIFFEncoder{},
	)

	for _, enc := range all {
		if _, taken := r.encoders[enc.Format()]; taken {
			continue
		}
		if enc.Available() {
			r.encoders[enc.Format()] = enc
		}
	}

	return r
}

// Get returns an encoder for the given format, or nil if unavailable.
func (r *Registry) Get(format Format) Encoder {
	return r.encoders[Format(strings.ToLower(string(format)))]
}

// Available returns all available format names.
func (r *Registry) Available() []Format {
	var result []Format
	// Maintain display order.
	for _, f := range []Format{JPEG, PNG, TIFF, WebP} {
		if _, ok := r.encoders[f]; ok {
			result = append(result, f)
		}
	}
	return result
}

// Encode runs the encoder the plan names. An encoder that returns no bytes
// is treated as a failure.
func (r *Registry) Encode(ctx context.Context, img image.Image, plan Plan) ([]byte, error) {
	enc := r.Get(plan.Format)
	if enc == nil {
		return nil, fmt.Errorf("no %s encoder available", plan.Format)
	}
	data, err := enc.Encode(ctx, img, plan.Params)
	if err != nil {
		return nil, fmt.Errorf("%s (%s): %w", plan.Format, enc.Name(), err)
	}
	if len(data) == 0 {
		return nil, errors.New(string(plan.Format) + " encoder produced no output")
	}
	return data, nil
}

// String returns a summary of available encoders.
func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	parts := make([]string, 0, len(avail))
	for _, f := range avail {
		parts = append(parts, fmt.Sprintf("%s (%s)", f, r.encoders[f].Name()))
	}
	return fmt.Sprintf("encoders: %s", strings.Join(parts, ", "))
}
