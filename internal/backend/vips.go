//go:build vips

package backend

import (
	"context"
	"fmt"
	"os"

	"github.com/h2non/bimg"

	"github.com/AnyUserName/towebp/internal/inspect"
)

func init() {
	optionalBackends = append(optionalBackends, func(opts Options, _ *toolLocator) Backend {
		return &Vips{opts: opts}
	})
}

var vipsTypes = map[inspect.Format]bimg.ImageType{
	inspect.FormatJPEG: bimg.JPEG,
	inspect.FormatPNG:  bimg.PNG,
	inspect.FormatGIF:  bimg.GIF,
	inspect.FormatWebP: bimg.WEBP,
	inspect.FormatTIFF: bimg.TIFF,
	inspect.FormatSVG:  bimg.SVG,
	inspect.FormatHEIC: bimg.HEIF,
	inspect.FormatHEIF: bimg.HEIF,
}

// Vips converts through libvips. It reads the formats the Go decoders do
// not (SVG, HEIC) but writes stills only.
type Vips struct {
	opts Options
}

func (b *Vips) Name() string { return NameVips }

func (b *Vips) Available() bool {
	return b.opts.enabled(NameVips) && bimg.IsTypeSupportedSave(bimg.WEBP)
}

func (b *Vips) CanHandle(f inspect.Format, animated bool) bool {
	t, ok := vipsTypes[f]
	return ok && !animated && bimg.IsTypeSupported(t)
}

// Detail reports the libvips version.
func (b *Vips) Detail() string { return "libvips " + bimg.VipsVersion }

func (b *Vips) Convert(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf, err := bimg.Read(job.Src)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	// bimg treats quality 0 as "use the default".
	quality := job.Quality
	if quality == 0 {
		quality = 1
	}
	out, err := bimg.NewImage(buf).Process(bimg.Options{
		Type:     bimg.WEBP,
		Quality:  quality,
		Lossless: b.opts.Lossless,
	})
	if err != nil {
		return fmt.Errorf("vips: %w", err)
	}
	return stage(job.Dst, func(tmp string) error {
		return os.WriteFile(tmp, out, 0o644)
	})
}
