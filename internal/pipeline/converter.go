// Package pipeline converts a resolved source to WebP: it inspects the
// content, selects a backend, runs it and reports the outcome as a Result.
package pipeline

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/AnyUserName/towebp/internal/backend"
	"github.com/AnyUserName/towebp/internal/inspect"
	"github.com/AnyUserName/towebp/internal/source"
)

// DefaultOutputDir receives generated destinations when none is configured.
const DefaultOutputDir = "converted"

var (
	// ErrValidation wraps every failure detected before a backend runs:
	// bad quality or range, missing source, unsupported content.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidQuality is a quality outside 0..100.
	ErrInvalidQuality = errors.New("invalid quality")
	// ErrInvalidRange is a sweep range outside 1 <= min <= max <= 100.
	ErrInvalidRange = errors.New("invalid quality range")
	// ErrConversionFailed means the backend ran but produced no usable file.
	ErrConversionFailed = errors.New("conversion failed")

	ErrUnsupportedFormat    = inspect.ErrUnsupportedFormat
	ErrNoCapableBackend     = backend.ErrNoCapableBackend
	ErrAnimationUnsupported = backend.ErrAnimationUnsupported
	ErrDownloadFailed       = source.ErrDownloadFailed
)

// Config holds every parameter of a Converter. There is no package state.
type Config struct {
	// OutputDir receives generated destinations.
	OutputDir string
	// Backend is the preferred backend name; empty uses priority order.
	Backend string
	// Backends configures the registry built by New.
	Backends backend.Options
	// SweepWorkers > 1 runs sweeps concurrently with that many conversions
	// in flight.
	SweepWorkers int
	// Workers bounds concurrent conversions in Batch. Zero uses NumCPU.
	Workers int
	// Fetch configures URL downloads.
	Fetch  source.FetchOptions
	Logger zerolog.Logger
}

// Converter runs conversions and quality sweeps.
type Converter struct {
	cfg      Config
	registry *backend.Registry
	fetcher  *source.Fetcher
	log      zerolog.Logger
}

// New creates a Converter with a registry built from cfg.Backends. The
// backends log through cfg.Logger.
func New(cfg Config) *Converter {
	cfg.Backends.Logger = cfg.Logger
	return NewWithRegistry(cfg, backend.NewRegistry(cfg.Backends))
}

// NewWithRegistry creates a Converter around an existing registry.
func NewWithRegistry(cfg Config, r *backend.Registry) *Converter {
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	cfg.Fetch.Logger = cfg.Logger
	return &Converter{
		cfg:      cfg,
		registry: r,
		fetcher:  source.NewFetcher(cfg.Fetch),
		log:      cfg.Logger,
	}
}

// Registry returns the backend registry.
func (c *Converter) Registry() *backend.Registry { return c.registry }

// Config returns the effective configuration.
func (c *Converter) Config() Config { return c.cfg }
