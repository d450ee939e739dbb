package backend

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/deepteams/webp/animation"
	"github.com/disintegration/imaging"

	// Registers the WebP decoder and the frame codecs used by the
	// animation package.
	_ "github.com/deepteams/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// defaultFrameDelay is used for frames that declare no delay.
const defaultFrameDelay = 100

// sequence is a coalesced animation: every frame is a full canvas snapshot.
type sequence struct {
	width, height int
	loopCount     int // WebP semantics: 0 loops forever
	frames        []*image.NRGBA
	delays        []int // milliseconds
}

func decodeStill(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// flatten returns a full-colour NRGBA image. Paletted sources are expanded
// (some encoders reject them) and alpha is kept as is.
func flatten(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

// coalesceGIF renders every GIF frame onto the canvas, honouring the
// disposal method of the previous frame.
func coalesceGIF(path string) (*sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("decode gif: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("decode gif: no frames")
	}

	w, h := g.Config.Width, g.Config.Height
	if w == 0 || h == 0 {
		b := g.Image[0].Bounds()
		w, h = b.Max.X, b.Max.Y
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	seq := &sequence{width: w, height: h, loopCount: gifLoopToWebP(g.LoopCount)}

	for i, frame := range g.Image {
		b := frame.Bounds().Intersect(canvas.Bounds())

		var disposal byte
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		var saved *image.NRGBA
		if disposal == gif.DisposalPrevious {
			saved = imaging.Crop(canvas, b)
		}

		draw.Draw(canvas, b, frame, b.Min, draw.Over)
		seq.frames = append(seq.frames, imaging.Clone(canvas))

		delay := defaultFrameDelay
		if i < len(g.Delay) && g.Delay[i] > 0 {
			delay = g.Delay[i] * 10
		}
		seq.delays = append(seq.delays, delay)

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, b, image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			draw.Draw(canvas, b, saved, image.Point{}, draw.Src)
		}
	}
	return seq, nil
}

// gifLoopToWebP maps image/gif LoopCount (0 forever, -1 once, n = n+1
// plays) to the WebP ANIM loop count (0 forever, n plays).
func gifLoopToWebP(n int) int {
	switch {
	case n == 0:
		return 0
	case n < 0:
		return 1
	}
	return n + 1
}

// coalesceWebP renders every frame of an animated WebP onto the canvas,
// applying each frame's blend and dispose methods.
func coalesceWebP(path string) (*sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	anim, err := animation.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("demux webp: %w", err)
	}
	if err := anim.DecodeFrames(); err != nil {
		return nil, fmt.Errorf("decode webp frames: %w", err)
	}

	seq := &sequence{width: anim.CanvasWidth, height: anim.CanvasHeight, loopCount: anim.LoopCount}
	dec, err := animation.NewAnimDecoder(anim)
	if err != nil {
		return nil, fmt.Errorf("decode webp frames: %w", err)
	}
	for i := 0; dec.HasNext(); i++ {
		frame, d, err := dec.NextFrame()
		if err != nil {
			return nil, fmt.Errorf("webp frame %d: %w", i, err)
		}
		seq.frames = append(seq.frames, frame)

		delay := int(d / time.Millisecond)
		if delay <= 0 {
			delay = defaultFrameDelay
		}
		seq.delays = append(seq.delays, delay)
	}
	return seq, nil
}

// stage runs produce against a temporary file next to dst and moves the
// result into place only when produce succeeded and wrote something.
// An existing dst is left untouched on failure.
func stage(dst string, produce func(tmp string) error) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".towebp-*.webp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	f.Close()
	defer os.Remove(tmp)

	if err := produce(tmp); err != nil {
		return err
	}
	fi, err := os.Stat(tmp)
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return fmt.Errorf("encoder produced an empty file")
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

// encodeFile opens path for writing and hands it to encode.
func encodeFile(path string, encode func(w *os.File) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
