package backend

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/AnyUserName/towebp/internal/inspect"
)

const toolFFmpeg = "ffmpeg"

var ffmpegFormats = []inspect.Format{
	inspect.FormatGIF,
	inspect.FormatJPEG,
	inspect.FormatPNG,
	inspect.FormatBMP,
	inspect.FormatTIFF,
	inspect.FormatWebP,
}

// FFmpeg encodes through ffmpeg's libwebp encoder. Animated GIFs keep their
// frames; ffmpeg cannot decode animated WebP, so those are refused.
type FFmpeg struct {
	opts  Options
	tools *toolLocator
}

func (b *FFmpeg) Name() string { return NameFFmpeg }

func (b *FFmpeg) Available() bool {
	if !b.opts.enabled(NameFFmpeg) {
		return false
	}
	_, ok := b.tools.Find(toolFFmpeg)
	return ok
}

func (b *FFmpeg) CanHandle(f inspect.Format, animated bool) bool {
	if animated {
		return f == inspect.FormatGIF
	}
	return slices.Contains(ffmpegFormats, f)
}

// Detail reports where ffmpeg was found.
func (b *FFmpeg) Detail() string {
	if path, ok := b.tools.Find(toolFFmpeg); ok {
		return path
	}
	return "not found"
}

func (b *FFmpeg) Convert(ctx context.Context, job Job) error {
	path, ok := b.tools.Find(toolFFmpeg)
	if !ok {
		return fmt.Errorf("ffmpeg not found in PATH")
	}
	src, err := filepath.Abs(job.Src)
	if err != nil {
		return err
	}

	return stage(job.Dst, func(tmp string) error {
		args := b.args(job, src, tmp)
		b.opts.Logger.Debug().Str("tool", path).Strs("args", args).Msg("exec")
		cmd := exec.CommandContext(ctx, path, args...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(out)))
		}
		return nil
	})
}

func (b *FFmpeg) args(job Job, src, dst string) []string {
	lossless := "0"
	if b.opts.Lossless {
		lossless = "1"
	}
	out := ffmpeg.KwArgs{
		"c:v":               "libwebp",
		"quality":           strconv.Itoa(job.Quality),
		"compression_level": strconv.Itoa(b.opts.method()),
		"lossless":          lossless,
		"f":                 "webp",
	}
	if job.Animated {
		out["loop"] = "0"
	} else {
		out["frames:v"] = "1"
	}
	return ffmpeg.Input(src, ffmpeg.KwArgs{"loglevel": "error"}).
		Output(dst, out).
		OverWriteOutput().
		GetArgs()
}
