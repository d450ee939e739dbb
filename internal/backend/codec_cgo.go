//go:build cgo

package backend

import (
	"image"
	"io"

	"github.com/chai2010/webp"
)

// linkedCodec names the encoder compiled into this binary. Animations are
// always encoded by the pure Go animation encoder.
const linkedCodec = "libwebp (cgo)"

func encodeStill(w io.Writer, img image.Image, o encodeOptions) error {
	return webp.Encode(w, img, &webp.Options{
		Lossless: o.lossless,
		Quality:  float32(o.quality),
	})
}
