package backend

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/AnyUserName/towebp/internal/inspect"
)

// optionalBackends are appended after the built-in ones. Build-tagged
// backends register themselves here from init.
var optionalBackends []func(Options, *toolLocator) Backend

// Registry holds the backends in priority order and selects one per source.
type Registry struct {
	backends []Backend
	logger   zerolog.Logger
}

// NewRegistry builds every backend in priority order: frame-aware first
// (static and animated), then the bitmap encoder (static only), then the
// external tools.
func NewRegistry(opts Options) *Registry {
	tools := newToolLocator(opts.AvailabilityTTL)
	all := []Backend{
		&Frames{opts: opts},
		&Bitmap{opts: opts},
		&CWebP{opts: opts, tools: tools},
		&FFmpeg{opts: opts, tools: tools},
	}
	for _, mk := range optionalBackends {
		all = append(all, mk(opts, tools))
	}
	return NewRegistryWith(opts.Logger, all...)
}

// NewRegistryWith builds a registry from explicit backends, in priority order.
func NewRegistryWith(logger zerolog.Logger, backends ...Backend) *Registry {
	return &Registry{backends: backends, logger: logger}
}

// Get returns the named backend, or nil.
func (r *Registry) Get(name string) Backend {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, b := range r.backends {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

// Names returns every registered backend name in priority order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for _, b := range r.backends {
		names = append(names, b.Name())
	}
	return names
}

// FrameAware reports whether an available backend can count and keep
// frames itself, which makes authoritative animation detection possible.
func (r *Registry) FrameAware() bool {
	b := r.Get(NameFrames)
	return b != nil && b.Available()
}

// Select picks the backend for a source. A preferred backend wins when it
// is available and capable; otherwise the first available, capable backend
// in priority order is used. Availability is checked on every call.
func (r *Registry) Select(f inspect.Format, animated bool, preferred string) (Backend, error) {
	if preferred != "" {
		switch b := r.Get(preferred); {
		case b == nil:
			r.logger.Warn().Str("backend", preferred).Msg("unknown preferred backend, using priority order")
		case !b.Available():
			r.logger.Info().Str("backend", preferred).Msg("preferred backend unavailable, using priority order")
		case !b.CanHandle(f, animated):
			r.logger.Info().Str("backend", preferred).Str("format", f.String()).Bool("animated", animated).
				Msg("preferred backend cannot handle source, using priority order")
		default:
			return b, nil
		}
	}

	var available []string
	for _, b := range r.backends {
		if !b.Available() {
			continue
		}
		available = append(available, b.Name())
		if b.CanHandle(f, animated) {
			r.logger.Debug().Str("backend", b.Name()).Str("format", f.String()).Bool("animated", animated).Msg("backend selected")
			return b, nil
		}
	}

	if animated {
		return nil, fmt.Errorf("%w: no available backend keeps the frames of an animated %s "+
			"(enable the %q backend, or install gif2webp from libwebp or ffmpeg)",
			ErrAnimationUnsupported, f, NameFrames)
	}
	if len(available) == 0 {
		return nil, fmt.Errorf("%w: no backend is available (install cwebp from libwebp, or enable %q/%q)",
			ErrNoCapableBackend, NameFrames, NameBitmap)
	}
	return nil, fmt.Errorf("%w: %s sources are not supported by %s (the %q build tag adds libvips for svg/heic/tiff)",
		ErrNoCapableBackend, f, strings.Join(available, ", "), NameVips)
}

// Status describes one backend for display.
type Status struct {
	Name      string
	Available bool
	Animation bool
	Formats   []inspect.Format
	Detail    string
}

type detailer interface {
	Detail() string
}

// Statuses reports every backend with its current availability and the
// formats it accepts.
func (r *Registry) Statuses() []Status {
	out := make([]Status, 0, len(r.backends))
	for _, b := range r.backends {
		s := Status{Name: b.Name(), Available: b.Available()}
		for _, f := range inspect.Supported() {
			still, anim := b.CanHandle(f, false), b.CanHandle(f, true)
			if still || anim {
				s.Formats = append(s.Formats, f)
			}
			s.Animation = s.Animation || anim
		}
		if d, ok := b.(detailer); ok {
			s.Detail = d.Detail()
		}
		out = append(out, s)
	}
	return out
}

// String returns a summary of available backends.
func (r *Registry) String() string {
	var avail []string
	for _, b := range r.backends {
		if b.Available() {
			avail = append(avail, b.Name())
		}
	}
	if len(avail) == 0 {
		return "no backends available"
	}
	return fmt.Sprintf("backends: %s", strings.Join(avail, ", "))
}
