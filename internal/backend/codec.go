package backend

import (
	"fmt"
	"io"
	"time"

	"github.com/deepteams/webp/animation"
)

// encodeOptions are the per-conversion knobs handed to the linked encoder.
type encodeOptions struct {
	quality  int
	lossless bool
	method   int
}

func (o Options) encodeOptions(quality int) encodeOptions {
	return encodeOptions{quality: quality, lossless: o.Lossless, method: o.method()}
}

// encodeSequence writes the coalesced frames as one animated WebP. The
// encoder stores only the changed rectangle of each frame and merges a frame
// identical to its predecessor into the previous frame's duration.
func encodeSequence(w io.Writer, seq *sequence, o encodeOptions) error {
	enc := animation.NewEncoder(w, seq.width, seq.height, &animation.EncodeOptions{
		LoopCount: seq.loopCount,
		Quality:   o.quality,
		Lossless:  o.lossless,
	})
	for i, frame := range seq.frames {
		if err := enc.AddFrame(frame, time.Duration(seq.delays[i])*time.Millisecond); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return enc.Close()
}
