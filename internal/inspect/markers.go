package inspect

import (
	"bytes"
	"io"
	"os"
)

// scanWindow bounds how much of a file the marker heuristic reads.
// Animations whose marker lies past it are reported as stills.
const scanWindow = 1 << 20

var gifLoopMarkers = [][]byte{
	[]byte("NETSCAPE2.0"),
	[]byte("ANIMEXTS1.0"),
}

// scanMarkers looks for per-format animation markers in the head of a file.
//
// GIF: the looping application extension. A GIF with several frames but no
// loop extension is a false negative, and the marker bytes can show up in
// LZW pixel data as a false positive.
//
// WebP: the animation bit of the VP8X header. A simple (non-VP8X) file
// cannot be animated. When the header is present but truncated the ANMF
// chunk tag is searched instead.
func scanMarkers(path string, f Format) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	head, err := io.ReadAll(io.LimitReader(file, scanWindow))
	if err != nil {
		return false, err
	}

	switch f {
	case FormatGIF:
		for _, m := range gifLoopMarkers {
			if bytes.Contains(head, m) {
				return true, nil
			}
		}
	case FormatWebP:
		return webpAnimatedHeader(head), nil
	}
	return false, nil
}

func webpAnimatedHeader(head []byte) bool {
	if len(head) < 16 || string(head[0:4]) != "RIFF" || string(head[8:12]) != "WEBP" {
		return false
	}
	if string(head[12:16]) != "VP8X" {
		return false
	}
	if len(head) < 21 {
		return bytes.Contains(head, []byte("ANMF"))
	}
	// VP8X payload starts at offset 20; bit 1 of the first byte is animation.
	return head[20]&0x02 != 0
}
