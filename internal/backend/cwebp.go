package backend

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/AnyUserName/towebp/internal/inspect"
)

const (
	toolCWebP    = "cwebp"
	toolGIF2WebP = "gif2webp"
)

// cwebpFormats are the inputs cwebp reads. GIFs always go through gif2webp.
var cwebpFormats = []inspect.Format{
	inspect.FormatJPEG,
	inspect.FormatPNG,
	inspect.FormatTIFF,
	inspect.FormatWebP,
}

// CWebP shells out to the libwebp command line tools: cwebp for stills and
// gif2webp for GIFs, animated or not.
// Install: brew install webp / apt install webp
type CWebP struct {
	opts  Options
	tools *toolLocator
}

func (b *CWebP) Name() string { return NameCWebP }

func (b *CWebP) Available() bool {
	if !b.opts.enabled(NameCWebP) {
		return false
	}
	_, still := b.tools.Find(toolCWebP)
	_, anim := b.tools.Find(toolGIF2WebP)
	return still || anim
}

func (b *CWebP) CanHandle(f inspect.Format, animated bool) bool {
	if f == inspect.FormatGIF {
		_, ok := b.tools.Find(toolGIF2WebP)
		return ok
	}
	if animated {
		return false
	}
	_, ok := b.tools.Find(toolCWebP)
	return ok && slices.Contains(cwebpFormats, f)
}

// Detail reports where each tool was found.
func (b *CWebP) Detail() string {
	var parts []string
	for _, name := range []string{toolCWebP, toolGIF2WebP} {
		path, ok := b.tools.Find(name)
		if !ok {
			path = "not found"
		}
		parts = append(parts, name+"="+path)
	}
	return strings.Join(parts, " ")
}

func (b *CWebP) Convert(ctx context.Context, job Job) error {
	tool := toolCWebP
	if job.Format == inspect.FormatGIF {
		tool = toolGIF2WebP
	}
	path, ok := b.tools.Find(tool)
	if !ok {
		return fmt.Errorf("%s not found in PATH; install with: brew install webp", tool)
	}

	src, err := filepath.Abs(job.Src)
	if err != nil {
		return err
	}

	return stage(job.Dst, func(tmp string) error {
		args := b.args(tool, job.Quality, src, tmp)
		b.opts.Logger.Debug().Str("tool", path).Strs("args", args).Msg("exec")
		cmd := exec.CommandContext(ctx, path, args...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("%s: %w: %s", tool, err, strings.TrimSpace(string(out)))
		}
		return nil
	})
}

// args builds the argument vector. Paths are passed as separate arguments,
// never through a shell.
func (b *CWebP) args(tool string, quality int, src, dst string) []string {
	args := []string{"-q", strconv.Itoa(quality)}
	switch {
	case tool == toolGIF2WebP && !b.opts.Lossless:
		args = append(args, "-lossy")
	case tool == toolCWebP && b.opts.Lossless:
		args = append(args, "-lossless")
	}
	args = append(args,
		"-m", strconv.Itoa(b.opts.method()),
		"-mt",
		"-quiet",
		src,
		"-o", dst,
	)
	return args
}
