//go:build !cgo

package backend

import (
	"image"
	"io"

	"github.com/deepteams/webp"
)

// linkedCodec names the encoder compiled into this binary.
const linkedCodec = "deepteams/webp (pure Go)"

func encodeStill(w io.Writer, img image.Image, o encodeOptions) error {
	opts := webp.DefaultOptions()
	opts.Quality = float32(o.quality)
	opts.Lossless = o.lossless
	opts.Method = o.method
	return webp.Encode(w, img, opts)
}
