package backend

import (
	"context"
	"fmt"
	"image"
	"os"
	"slices"

	"github.com/rs/zerolog"

	"github.com/AnyUserName/towebp/internal/inspect"
)

// Frames is the frame-aware backend. GIF and animated WebP sources are
// coalesced into full-canvas frames and written as an animated WebP; every
// other source is encoded as a still.
type Frames struct {
	opts Options
}

func (b *Frames) Name() string    { return NameFrames }
func (b *Frames) Available() bool { return b.opts.enabled(NameFrames) }

func (b *Frames) CanHandle(f inspect.Format, animated bool) bool {
	if animated {
		return f.MaybeAnimated()
	}
	return slices.Contains(stillFormats, f)
}

// Detail names the linked encoder.
func (b *Frames) Detail() string { return linkedCodec }

func (b *Frames) Convert(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var seq *sequence
	var err error
	switch {
	case job.Format == inspect.FormatGIF:
		seq, err = coalesceGIF(job.Src)
	case job.Format == inspect.FormatWebP && job.Animated:
		seq, err = coalesceWebP(job.Src)
	}
	if err != nil {
		return err
	}

	o := b.opts.encodeOptions(job.Quality)
	if seq != nil && len(seq.frames) > 1 {
		b.logger().Debug().Str("src", job.Src).Int("frames", len(seq.frames)).
			Int("loop", seq.loopCount).Msg("encoding animation")
		return stage(job.Dst, func(tmp string) error {
			return encodeFile(tmp, func(w *os.File) error {
				if err := encodeSequence(w, seq, o); err != nil {
					return fmt.Errorf("encode animated webp: %w", err)
				}
				return nil
			})
		})
	}

	var still *image.NRGBA
	if seq != nil {
		still = seq.frames[0]
	} else {
		img, err := decodeStill(job.Src)
		if err != nil {
			return err
		}
		still = flatten(img)
	}
	return stage(job.Dst, func(tmp string) error {
		return encodeFile(tmp, func(w *os.File) error {
			if err := encodeStill(w, still, o); err != nil {
				return fmt.Errorf("encode webp: %w", err)
			}
			return nil
		})
	})
}

func (b *Frames) logger() *zerolog.Logger { return &b.opts.Logger }
