//go:build ignore

// gen_fixtures creates small test images for the E2E smoke test:
// stills in every built-in format, animated GIFs with each disposal
// method, and decoys that must be rejected.
// Usage: go run gen_fixtures.go <output_dir>
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen_fixtures <output_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]
	os.MkdirAll(filepath.Join(dir, "anim"), 0o755)
	os.MkdirAll(filepath.Join(dir, "decoys"), 0o755)

	write(filepath.Join(dir, "banner.jpg"), func(f *os.File) error {
		return jpeg.Encode(f, gradient(400, 225), &jpeg.Options{Quality: 85})
	})
	write(filepath.Join(dir, "logo.png"), func(f *os.File) error { return png.Encode(f, alphaGradient(100, 100)) })
	write(filepath.Join(dir, "scan.bmp"), func(f *os.File) error { return bmp.Encode(f, gradient(120, 80)) })
	write(filepath.Join(dir, "print.tiff"), func(f *os.File) error { return tiff.Encode(f, gradient(120, 80), nil) })
	write(filepath.Join(dir, "still.gif"), func(f *os.File) error {
		return gif.Encode(f, gradient(64, 64), &gif.Options{NumColors: 256})
	})

	// Animations, one per disposal method.
	disposals := map[string]byte{
		"none":       gif.DisposalNone,
		"background": gif.DisposalBackground,
		"previous":   gif.DisposalPrevious,
	}
	for name, d := range disposals {
		write(filepath.Join(dir, "anim", "spinner-"+name+".gif"), func(f *os.File) error {
			return gif.EncodeAll(f, spinner(48, 8, d))
		})
	}

	// A PNG saved with a JPEG extension must still convert.
	write(filepath.Join(dir, "decoys", "mislabeled.jpg"), func(f *os.File) error { return png.Encode(f, gradient(32, 32)) })
	// A text file with an image extension must be rejected.
	os.WriteFile(filepath.Join(dir, "decoys", "notes.jpg"), []byte("not an image\n"), 0o644)

	fmt.Fprintf(os.Stderr, "[gen_fixtures] created 10 fixtures in %s\n", dir)
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func alphaGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: 220, G: 60, B: 30,
				A: uint8(x * 255 / w),
			})
		}
	}
	return img
}

// spinner moves a small square around the canvas. After the first frame
// each frame covers only the square, so disposal decides what remains.
func spinner(size, frames int, disposal byte) *gif.GIF {
	g := &gif.GIF{LoopCount: 0}
	sq := size / 4
	for i := 0; i < frames; i++ {
		var r image.Rectangle
		if i == 0 {
			r = image.Rect(0, 0, size, size)
		} else {
			x := (i * sq) % (size - sq)
			r = image.Rect(x, x, x+sq, x+sq)
		}
		p := image.NewPaletted(r, palette.Plan9)
		for j := range p.Pix {
			p.Pix[j] = uint8(20 + i*25)
		}
		g.Image = append(g.Image, p)
		g.Delay = append(g.Delay, 10)
		g.Disposal = append(g.Disposal, disposal)
	}
	return g
}

func write(path string, encode func(*os.File) error) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if err := encode(f); err != nil {
		panic(err)
	}
}
