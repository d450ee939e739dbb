package backend

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/AnyUserName/towebp/internal/inspect"
)

// Bitmap decodes the source with the Go image packages and encodes a single
// still. It never accepts animated sources: a GIF would lose all but its
// first frame.
type Bitmap struct {
	opts Options
}

func (b *Bitmap) Name() string    { return NameBitmap }
func (b *Bitmap) Available() bool { return b.opts.enabled(NameBitmap) }

func (b *Bitmap) CanHandle(f inspect.Format, animated bool) bool {
	return !animated && slices.Contains(stillFormats, f)
}

// Detail names the linked encoder.
func (b *Bitmap) Detail() string { return linkedCodec }

func (b *Bitmap) Convert(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := decodeStill(job.Src)
	if err != nil {
		return err
	}
	// Palette images are expanded to NRGBA before encoding.
	rgba := flatten(img)

	return stage(job.Dst, func(tmp string) error {
		return encodeFile(tmp, func(w *os.File) error {
			if err := encodeStill(w, rgba, b.opts.encodeOptions(job.Quality)); err != nil {
				return fmt.Errorf("encode webp: %w", err)
			}
			return nil
		})
	})
}
