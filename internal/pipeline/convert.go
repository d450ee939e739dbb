package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AnyUserName/towebp/internal/backend"
	"github.com/AnyUserName/towebp/internal/hasher"
	"github.com/AnyUserName/towebp/internal/inspect"
	"github.com/AnyUserName/towebp/internal/source"
)

const (
	msgConverted = "Image converted successfully."
	msgFailed    = "Image conversion failed."
)

// Result is the outcome of one conversion. It is never modified after
// Convert returns it.
type Result struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	OriginalSize  int64  `json:"original_size"`
	ConvertedSize int64  `json:"converted_size,omitempty"`
	ConvertedPath string `json:"converted_path,omitempty"`
	Backend       string `json:"backend,omitempty"`
	Animated      bool   `json:"animated"`

	Quality   int            `json:"quality"`
	Format    inspect.Format `json:"format,omitempty"`
	Frames    int            `json:"frames,omitempty"`
	Heuristic bool           `json:"heuristic,omitempty"`
	// Err is the typed cause of a failure, for errors.Is.
	Err error `json:"-"`
}

// Reduction is the size saved relative to the original, in percent.
// Negative when the WebP is larger.
func (r Result) Reduction() float64 {
	if !r.Success || r.OriginalSize <= 0 {
		return 0
	}
	return float64(r.OriginalSize-r.ConvertedSize) / float64(r.OriginalSize) * 100
}

// Option adjusts a single conversion.
type Option func(*request)

type request struct {
	dst     string
	backend string
}

// WithDestination writes the WebP to path instead of a generated name
// under the output directory. The file is never deleted on failure.
func WithDestination(path string) Option {
	return func(r *request) { r.dst = path }
}

// WithBackend overrides the configured preferred backend.
func WithBackend(name string) Option {
	return func(r *request) { r.backend = name }
}

// Convert converts src at the given quality. Every failure is reported in
// the Result; nothing is returned as a bare error.
func (c *Converter) Convert(ctx context.Context, src *source.Source, quality int, opts ...Option) Result {
	req := request{backend: c.cfg.Backend}
	for _, o := range opts {
		o(&req)
	}
	res := Result{Quality: quality}

	if quality < 0 || quality > 100 {
		return invalid(res, fmt.Errorf("%w: %d is outside 0..100", ErrInvalidQuality, quality))
	}
	if src == nil || src.Path == "" {
		return invalid(res, fmt.Errorf("%w: no source", source.ErrInvalidSource))
	}
	fi, err := os.Stat(src.Path)
	if err != nil {
		return invalid(res, fmt.Errorf("%w: %v", source.ErrInvalidSource, err))
	}
	res.OriginalSize = fi.Size()

	in := inspect.Inspector{FrameCounting: c.registry.FrameAware(), Logger: c.log}
	info, err := in.Inspect(src.Path)
	if err != nil {
		return invalid(res, err)
	}
	res.Format = info.Format
	res.Animated = info.Animation.Animated
	res.Frames = info.Animation.Frames
	res.Heuristic = info.Animation.Heuristic

	b, err := c.registry.Select(info.Format, info.Animation.Animated, req.backend)
	if err != nil {
		res.Message = err.Error()
		res.Err = err
		return res
	}
	res.Backend = b.Name()

	dst, owned := req.dst, false
	if dst == "" {
		if dst, err = c.destination(src, quality); err != nil {
			return invalid(res, err)
		}
		owned = true
	}

	start := time.Now()
	err = b.Convert(ctx, backend.Job{
		Src:      src.Path,
		Dst:      dst,
		Format:   info.Format,
		Animated: info.Animation.Animated,
		Quality:  quality,
	})
	if err == nil {
		res.ConvertedSize, err = outputSize(dst)
		if err != nil && owned {
			os.Remove(dst)
		}
	}
	if err != nil {
		res.Message = msgFailed + " " + err.Error()
		res.Err = fmt.Errorf("%w: %s: %w", ErrConversionFailed, b.Name(), err)
		c.log.Warn().Err(err).Str("backend", b.Name()).Int("quality", quality).Str("src", displayName(src)).Msg("conversion failed")
		return res
	}

	res.Success = true
	res.Message = msgConverted
	res.ConvertedPath = dst
	c.log.Debug().
		Str("backend", b.Name()).
		Int("quality", quality).
		Bool("animated", res.Animated).
		Int64("original", res.OriginalSize).
		Int64("converted", res.ConvertedSize).
		Dur("took", time.Since(start)).
		Msg("converted")
	return res
}

func invalid(res Result, err error) Result {
	res.Err = fmt.Errorf("%w: %w", ErrValidation, err)
	res.Message = err.Error()
	return res
}

func outputSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("no output: %w", err)
	}
	if fi.Size() == 0 {
		return 0, errors.New("output is empty")
	}
	return fi.Size(), nil
}

// destination builds <OutputDir>/<base>-q<quality>.webp. Sources without a
// name are named after a hash of their content.
func (c *Converter) destination(src *source.Source, quality int) (string, error) {
	name := filepath.Base(src.Name)
	base := strings.TrimSpace(strings.TrimSuffix(name, filepath.Ext(name)))
	if base == "" || base == "." {
		sum, err := hasher.FileHash(src.Path, hasher.NameLen)
		if err != nil {
			return "", fmt.Errorf("%w: %v", source.ErrInvalidSource, err)
		}
		base = "img-" + sum
	}
	return filepath.Join(c.cfg.OutputDir, fmt.Sprintf("%s-q%d.webp", base, quality)), nil
}

func displayName(src *source.Source) string {
	if src.Name != "" {
		return src.Name
	}
	return src.Path
}
