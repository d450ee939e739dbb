package inspect

import (
	"github.com/gabriel-vasile/mimetype"
)

// Format identifies a source image type by content.
type Format string

const (
	FormatUnknown Format = ""
	FormatGIF     Format = "gif"
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatBMP     Format = "bmp"
	FormatWebP    Format = "webp"
	FormatTIFF    Format = "tiff"
	FormatSVG     Format = "svg"
	FormatHEIC    Format = "heic"
	FormatHEIF    Format = "heif"
)

func (f Format) String() string {
	if f == FormatUnknown {
		return "unknown"
	}
	return string(f)
}

// MaybeAnimated reports whether the container can carry more than one frame.
// Every other format is treated as a still without looking at it.
func (f Format) MaybeAnimated() bool {
	return f == FormatGIF || f == FormatWebP
}

// mimeFormats maps sniffed MIME types to formats, in match order.
var mimeFormats = []struct {
	mime   string
	format Format
}{
	{"image/gif", FormatGIF},
	{"image/jpeg", FormatJPEG},
	{"image/png", FormatPNG},
	{"image/bmp", FormatBMP},
	{"image/webp", FormatWebP},
	{"image/tiff", FormatTIFF},
	{"image/svg+xml", FormatSVG},
	{"image/heic", FormatHEIC},
	{"image/heic-sequence", FormatHEIC},
	{"image/heif", FormatHEIF},
	{"image/heif-sequence", FormatHEIF},
}

// formatOf returns the format for a sniffed MIME type, walking up the
// mimetype hierarchy so aliases and parents are honoured.
func formatOf(m *mimetype.MIME) Format {
	for ; m != nil; m = m.Parent() {
		for _, mf := range mimeFormats {
			if m.Is(mf.mime) {
				return mf.format
			}
		}
	}
	return FormatUnknown
}

// Supported lists every format the inspector accepts. Whether one can
// actually be converted depends on the backends available at the time.
func Supported() []Format {
	return []Format{
		FormatGIF, FormatJPEG, FormatPNG, FormatBMP, FormatWebP,
		FormatTIFF, FormatSVG, FormatHEIC, FormatHEIF,
	}
}
