// Package inspect determines a source image's format from its content and
// whether it carries more than one frame.
package inspect

import (
	"errors"
	"fmt"
	"image/gif"
	"os"

	"github.com/deepteams/webp/mux"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// ErrUnsupportedFormat is returned for content that is not a recognised image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Animation describes the frame structure of a source.
type Animation struct {
	Animated bool
	// Frames is the frame count, or 0 when it was not counted.
	Frames int
	// Heuristic is set when Animated comes from scanning for marker bytes
	// rather than from counting frames. It may be wrong in either direction.
	Heuristic bool
}

// Info is the result of inspecting one file.
type Info struct {
	Format    Format
	MIME      string
	Animation Animation
}

// Inspector sniffs formats and detects animation.
type Inspector struct {
	// FrameCounting enables authoritative frame counting. It is turned on
	// when a frame-aware backend is available; without it only the marker
	// heuristic runs.
	FrameCounting bool
	Logger        zerolog.Logger
}

// New returns an inspector with logging disabled.
func New(frameCounting bool) *Inspector {
	return &Inspector{FrameCounting: frameCounting, Logger: zerolog.Nop()}
}

// Inspect sniffs the file content and detects animation. The file name and
// extension are never consulted.
func (in *Inspector) Inspect(path string) (Info, error) {
	f, mime, err := Sniff(path)
	if err != nil {
		return Info{MIME: mime}, err
	}
	return Info{Format: f, MIME: mime, Animation: in.Animation(path, f)}, nil
}

// Sniff detects the format of a file from its leading bytes.
func Sniff(path string) (Format, string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return FormatUnknown, "", fmt.Errorf("sniff %s: %w", path, err)
	}
	f := formatOf(mt)
	if f == FormatUnknown {
		return FormatUnknown, mt.String(), fmt.Errorf("%w: detected %s", ErrUnsupportedFormat, mt.String())
	}
	return f, mt.String(), nil
}

// Animation reports whether the file at path, already known to be of
// format f, is animated.
func (in *Inspector) Animation(path string, f Format) Animation {
	if !f.MaybeAnimated() {
		return Animation{Frames: 1}
	}

	if in.FrameCounting {
		n, err := countFrames(path, f)
		if err == nil {
			return Animation{Animated: n > 1, Frames: n}
		}
		in.Logger.Debug().Err(err).Str("path", path).Msg("frame count failed, falling back to marker scan")
	}

	animated, err := scanMarkers(path, f)
	if err != nil {
		in.Logger.Debug().Err(err).Str("path", path).Msg("marker scan failed")
	}
	return Animation{Animated: animated, Heuristic: true}
}

// CountFrames counts the frames of a GIF or WebP file. Other formats report
// a single frame.
func CountFrames(path string) (int, error) {
	f, _, err := Sniff(path)
	if err != nil {
		return 0, err
	}
	if !f.MaybeAnimated() {
		return 1, nil
	}
	return countFrames(path, f)
}

func countFrames(path string, f Format) (int, error) {
	switch f {
	case FormatGIF:
		file, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		defer file.Close()
		g, err := gif.DecodeAll(file)
		if err != nil {
			return 0, fmt.Errorf("decode gif: %w", err)
		}
		return len(g.Image), nil
	case FormatWebP:
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, err
		}
		d, err := mux.NewDemuxer(data)
		if err != nil {
			return 0, fmt.Errorf("demux webp: %w", err)
		}
		return d.NumFrames(), nil
	}
	return 1, nil
}
