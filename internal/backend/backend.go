// Package backend holds the WebP conversion engines and the registry that
// picks one for a given source.
package backend

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/AnyUserName/towebp/internal/inspect"
)

// Backend names, also accepted as a preferred backend.
const (
	NameFrames = "frames"
	NameBitmap = "bitmap"
	NameCWebP  = "cwebp"
	NameFFmpeg = "ffmpeg"
	NameVips   = "vips"
)

var (
	// ErrNoCapableBackend means no available backend accepts the source format.
	ErrNoCapableBackend = errors.New("no capable backend")
	// ErrAnimationUnsupported means the source is animated and no available
	// backend can keep its frames.
	ErrAnimationUnsupported = errors.New("animation unsupported")
)

// Job is one conversion handed to a backend.
type Job struct {
	Src      string
	Dst      string
	Format   inspect.Format
	Animated bool
	Quality  int // 0-100
}

// Backend converts a source file to WebP.
type Backend interface {
	// Name returns the backend tag reported in results.
	Name() string

	// Available reports whether the backend can run right now. External
	// tools may be installed or removed between calls.
	Available() bool

	// CanHandle reports whether the backend accepts the source format,
	// and keeps all frames when animated is set.
	CanHandle(f inspect.Format, animated bool) bool

	// Convert writes the WebP to job.Dst. Dst is only replaced once the
	// output is complete.
	Convert(ctx context.Context, job Job) error
}

// Options configures every backend built by NewRegistry.
type Options struct {
	// Lossless asks encoders for lossless output; quality then trades
	// effort for size.
	Lossless bool
	// Method is the encoder effort 0 (fast) to 6 (slowest), where supported.
	Method int
	// Enabled restricts the registry to the named backends. Empty enables all.
	Enabled []string
	// AvailabilityTTL is how long an external tool lookup is reused.
	// Zero looks the tool up on every call.
	AvailabilityTTL time.Duration
	Logger          zerolog.Logger
}

func (o Options) enabled(name string) bool {
	return len(o.Enabled) == 0 || slices.Contains(o.Enabled, name)
}

func (o Options) method() int {
	if o.Method < 0 || o.Method > 6 {
		return 4
	}
	return o.Method
}

// stillFormats are decodable by the Go image packages linked into this binary.
var stillFormats = []inspect.Format{
	inspect.FormatGIF,
	inspect.FormatJPEG,
	inspect.FormatPNG,
	inspect.FormatBMP,
	inspect.FormatWebP,
	inspect.FormatTIFF,
}
