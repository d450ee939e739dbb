package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/AnyUserName/towebp/internal/backend"
	"github.com/AnyUserName/towebp/internal/inspect"
	"github.com/AnyUserName/towebp/internal/source"
)

// fakeBackend writes sizeFor(quality) bytes, or fails at failAt.
type fakeBackend struct {
	failAt  int
	sizeFor func(q int) int
	calls   atomic.Int32
}

func (f *fakeBackend) Name() string                        { return "fake" }
func (f *fakeBackend) Available() bool                     { return true }
func (f *fakeBackend) CanHandle(inspect.Format, bool) bool { return true }

func (f *fakeBackend) Convert(_ context.Context, job backend.Job) error {
	f.calls.Add(1)
	if job.Quality == f.failAt {
		return errors.New("backend unavailable")
	}
	size := 100 + job.Quality
	if f.sizeFor != nil {
		size = f.sizeFor(job.Quality)
	}
	if err := os.MkdirAll(filepath.Dir(job.Dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(job.Dst, bytes.Repeat([]byte{'w'}, size), 0o644)
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 90, A: 255})
		}
	}
	return img
}

func writeFixture(t *testing.T, name string, encode func(*bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func pngFixture(t *testing.T) string {
	return writeFixture(t, "photo.png", func(b *bytes.Buffer) error { return png.Encode(b, gradient(32, 32)) })
}

func gifFixture(t *testing.T, frames int) string {
	return writeFixture(t, "anim.gif", func(b *bytes.Buffer) error {
		g := &gif.GIF{}
		for i := 0; i < frames; i++ {
			p := image.NewPaletted(image.Rect(0, 0, 24, 24), palette.WebSafe)
			for j := range p.Pix {
				p.Pix[j] = uint8((i*37 + j) % len(palette.WebSafe))
			}
			g.Image = append(g.Image, p)
			g.Delay = append(g.Delay, 8)
		}
		return gif.EncodeAll(b, g)
	})
}

func fakeConverter(t *testing.T, fb *fakeBackend, workers int) *Converter {
	t.Helper()
	cfg := Config{OutputDir: t.TempDir(), SweepWorkers: workers, Logger: zerolog.Nop()}
	return NewWithRegistry(cfg, backend.NewRegistryWith(zerolog.Nop(), fb))
}

func realConverter(t *testing.T, enabled ...string) *Converter {
	t.Helper()
	if len(enabled) == 0 {
		enabled = []string{backend.NameFrames, backend.NameBitmap}
	}
	return New(Config{
		OutputDir: t.TempDir(),
		Backends:  backend.Options{Enabled: enabled},
		Logger:    zerolog.Nop(),
	})
}

func mustSource(t *testing.T, path string) *source.Source {
	t.Helper()
	s, err := source.FromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestConvertEveryQuality(t *testing.T) {
	c := realConverter(t)
	jpegPath := writeFixture(t, "photo.jpg", func(b *bytes.Buffer) error {
		return jpeg.Encode(b, gradient(32, 32), &jpeg.Options{Quality: 90})
	})
	fixtures := map[string]string{
		"png":  pngFixture(t),
		"jpeg": jpegPath,
		"gif":  gifFixture(t, 1),
	}

	for name, path := range fixtures {
		src := mustSource(t, path)
		for q := 0; q <= 100; q++ {
			r := c.Convert(context.Background(), src, q)
			if !r.Success {
				t.Fatalf("%s q=%d: %s (%v)", name, q, r.Message, r.Err)
			}
			if r.ConvertedSize <= 0 {
				t.Fatalf("%s q=%d: converted size %d", name, q, r.ConvertedSize)
			}
			if r.Animated {
				t.Errorf("%s q=%d: still reported animated", name, q)
			}
		}
	}
}

func TestSweepSizesVaryWithQuality(t *testing.T) {
	c := realConverter(t)
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x*9 ^ y*5), G: uint8(x * y), B: uint8(y*3 + x), A: 255})
		}
	}
	path := writeFixture(t, "texture.jpg", func(b *bytes.Buffer) error {
		return jpeg.Encode(b, img, &jpeg.Options{Quality: 95})
	})

	sr, err := c.Sweep(context.Background(), mustSource(t, path), 10, 90)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	sizes := map[int64]bool{}
	for _, r := range sr.Results {
		sizes[r.ConvertedSize] = true
	}
	if len(sizes) < 2 {
		t.Errorf("distinct sizes across q10..q90: got %d, want several", len(sizes))
	}
	first, last := sr.Results[0], sr.Results[len(sr.Results)-1]
	if first.ConvertedSize >= last.ConvertedSize {
		t.Errorf("q10=%d bytes, q90=%d bytes: want q10 smaller", first.ConvertedSize, last.ConvertedSize)
	}
}

func TestConvertAnimatedGIFKeepsFrames(t *testing.T) {
	c := realConverter(t)
	r := c.ConvertPath(context.Background(), gifFixture(t, 4), 70)
	if !r.Success {
		t.Fatalf("convert: %s", r.Message)
	}
	if !r.Animated || r.Heuristic || r.Frames != 4 {
		t.Errorf("animation: animated=%v heuristic=%v frames=%d", r.Animated, r.Heuristic, r.Frames)
	}
	if r.Backend != backend.NameFrames {
		t.Errorf("backend: got %s", r.Backend)
	}

	n, err := inspect.CountFrames(r.ConvertedPath)
	if err != nil {
		t.Fatalf("count output frames: %v", err)
	}
	if n <= 1 {
		t.Errorf("output frames: got %d, want > 1", n)
	}
}

func TestConvertAnimatedWithoutFrameBackend(t *testing.T) {
	c := realConverter(t, backend.NameBitmap)
	r := c.ConvertPath(context.Background(), gifFixture(t, 3), 70)
	if r.Success {
		t.Fatal("animated gif converted by a still-only backend")
	}
	if !errors.Is(r.Err, ErrAnimationUnsupported) {
		t.Errorf("err: got %v, want ErrAnimationUnsupported", r.Err)
	}
	if !r.Heuristic || !r.Animated {
		t.Errorf("expected heuristic animation detection, got %+v", r)
	}
}

func TestConvertRejectsRenamedText(t *testing.T) {
	c := realConverter(t)
	path := filepath.Join(t.TempDir(), "cat.jpg")
	if err := os.WriteFile(path, []byte("definitely not a jpeg\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := c.ConvertPath(context.Background(), path, 80)
	if r.Success {
		t.Fatal("text file converted")
	}
	if !errors.Is(r.Err, ErrValidation) || !errors.Is(r.Err, ErrUnsupportedFormat) {
		t.Errorf("err: got %v", r.Err)
	}
	if r.Message == "" {
		t.Error("empty message")
	}
	entries, _ := os.ReadDir(c.Config().OutputDir)
	if len(entries) != 0 {
		t.Errorf("output created: %v", entries)
	}
}

func TestConvertValidation(t *testing.T) {
	fb := &fakeBackend{}
	c := fakeConverter(t, fb, 0)
	src := mustSource(t, pngFixture(t))

	for _, q := range []int{-1, 101} {
		r := c.Convert(context.Background(), src, q)
		if r.Success || !errors.Is(r.Err, ErrInvalidQuality) || !errors.Is(r.Err, ErrValidation) {
			t.Errorf("q=%d: got %+v", q, r)
		}
	}

	r := c.ConvertPath(context.Background(), filepath.Join(t.TempDir(), "missing.png"), 50)
	if r.Success || !errors.Is(r.Err, ErrValidation) {
		t.Errorf("missing file: got %+v", r)
	}
	if n := fb.calls.Load(); n != 0 {
		t.Errorf("backend called %d times for invalid input", n)
	}
}

func TestConvertIdempotentSize(t *testing.T) {
	c := realConverter(t)
	src := mustSource(t, pngFixture(t))

	a := c.Convert(context.Background(), src, 80, WithDestination(filepath.Join(t.TempDir(), "a.webp")))
	b := c.Convert(context.Background(), src, 80, WithDestination(filepath.Join(t.TempDir(), "b.webp")))
	if !a.Success || !b.Success {
		t.Fatalf("convert: %s / %s", a.Message, b.Message)
	}
	if a.ConvertedSize != b.ConvertedSize {
		t.Errorf("sizes differ: %d vs %d", a.ConvertedSize, b.ConvertedSize)
	}
}

func TestDestinationNaming(t *testing.T) {
	c := fakeConverter(t, &fakeBackend{}, 0)

	r := c.ConvertPath(context.Background(), pngFixture(t), 42)
	if want := filepath.Join(c.Config().OutputDir, "photo-q42.webp"); r.ConvertedPath != want {
		t.Errorf("named: got %s, want %s", r.ConvertedPath, want)
	}

	data, err := os.ReadFile(pngFixture(t))
	if err != nil {
		t.Fatal(err)
	}
	r = c.ConvertBytes(context.Background(), data, "", 7)
	if !r.Success {
		t.Fatalf("bytes: %s", r.Message)
	}
	if !regexp.MustCompile(`img-[0-9a-f]{16}-q7\.webp$`).MatchString(r.ConvertedPath) {
		t.Errorf("unnamed: got %s", r.ConvertedPath)
	}
}

func TestCallerDestinationKeptOnFailure(t *testing.T) {
	c := fakeConverter(t, &fakeBackend{failAt: 50}, 0)
	dst := filepath.Join(t.TempDir(), "keep.webp")
	if err := os.WriteFile(dst, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := c.ConvertPath(context.Background(), pngFixture(t), 50, WithDestination(dst))
	if r.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(r.Err, ErrConversionFailed) {
		t.Errorf("err: got %v", r.Err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("caller destination removed: %v", err)
	}
}

func TestSweepRange(t *testing.T) {
	for _, workers := range []int{0, 4} {
		c := fakeConverter(t, &fakeBackend{}, workers)
		sr, err := c.Sweep(context.Background(), mustSource(t, pngFixture(t)), 60, 90)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if len(sr.Results) != 31 {
			t.Fatalf("workers=%d: results: got %d, want 31", workers, len(sr.Results))
		}
		for i, r := range sr.Results {
			if r.Quality != 60+i {
				t.Errorf("workers=%d: result %d quality: got %d, want %d", workers, i, r.Quality, 60+i)
			}
		}
	}
}

func TestSweepStopsAtFirstFailure(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 8} {
		fb := &fakeBackend{failAt: 75}
		c := fakeConverter(t, fb, workers)

		sr, err := c.Sweep(context.Background(), mustSource(t, pngFixture(t)), 60, 90)
		var se *SweepError
		if !errors.As(err, &se) || se.Quality != 75 {
			t.Fatalf("workers=%d: got %v, want SweepError at 75", workers, err)
		}
		if !errors.Is(err, ErrConversionFailed) {
			t.Errorf("workers=%d: cause not wrapped: %v", workers, err)
		}
		if len(sr.Results) != 15 {
			t.Fatalf("workers=%d: kept %d results, want 15", workers, len(sr.Results))
		}
		if last := sr.Results[len(sr.Results)-1].Quality; last != 74 {
			t.Errorf("workers=%d: last kept quality %d, want 74", workers, last)
		}
		if sr.Failed == nil || sr.Failed.Quality != 75 {
			t.Errorf("workers=%d: failed: %+v", workers, sr.Failed)
		}
		if workers <= 1 && fb.calls.Load() != 16 {
			t.Errorf("sequential sweep made %d calls, want 16", fb.calls.Load())
		}
		if n := countFiles(t, c.Config().OutputDir); n != len(sr.Results) {
			t.Errorf("workers=%d: %d files on disk, want %d", workers, n, len(sr.Results))
		}
	}
}

func TestConcurrentSweepRemovesDiscardedOutputs(t *testing.T) {
	fb := &fakeBackend{failAt: 62}
	c := fakeConverter(t, fb, 8)

	sr, err := c.Sweep(context.Background(), mustSource(t, pngFixture(t)), 60, 90)
	if err == nil {
		t.Fatal("expected sweep error")
	}
	if len(sr.Results) != 2 {
		t.Fatalf("results: got %d, want 2", len(sr.Results))
	}
	if n := countFiles(t, c.Config().OutputDir); n != 2 {
		t.Errorf("files on disk: got %d, want 2 (backend calls %d)", n, fb.calls.Load())
	}
	for _, r := range sr.Results {
		if _, err := os.Stat(r.ConvertedPath); err != nil {
			t.Errorf("kept output q%d: %v", r.Quality, err)
		}
	}
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}

func TestSweepInvalidRange(t *testing.T) {
	fb := &fakeBackend{}
	c := fakeConverter(t, fb, 0)
	src := mustSource(t, pngFixture(t))

	for _, rng := range [][2]int{{90, 60}, {0, 10}, {50, 101}} {
		sr, err := c.Sweep(context.Background(), src, rng[0], rng[1])
		if !errors.Is(err, ErrInvalidRange) || !errors.Is(err, ErrValidation) {
			t.Errorf("%v: got %v, want ErrInvalidRange", rng, err)
		}
		if len(sr.Results) != 0 {
			t.Errorf("%v: got %d results", rng, len(sr.Results))
		}
	}
	if n := fb.calls.Load(); n != 0 {
		t.Errorf("backend called %d times", n)
	}
}

func TestSweepBestPrefersLowerQualityOnTie(t *testing.T) {
	sizes := map[int]int{60: 500, 61: 300, 62: 300, 63: 450}
	c := fakeConverter(t, &fakeBackend{sizeFor: func(q int) int { return sizes[q] }}, 0)

	src := mustSource(t, pngFixture(t))
	sr, err := c.Sweep(context.Background(), src, 60, 63)
	if err != nil {
		t.Fatal(err)
	}
	if sr.Best != 61 {
		t.Errorf("best: got %d, want 61", sr.Best)
	}
	want := float64(src.Size-300) / float64(src.Size) * 100
	if sr.BestReduction != want {
		t.Errorf("reduction: got %f, want %f", sr.BestReduction, want)
	}
}

func TestSweepCancelled(t *testing.T) {
	c := fakeConverter(t, &fakeBackend{}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sr, err := c.Sweep(ctx, mustSource(t, pngFixture(t)), 10, 20)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if len(sr.Results) != 0 {
		t.Errorf("results: got %d", len(sr.Results))
	}
}

func TestConvertURL(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	data, err := os.ReadFile(pngFixture(t))
	if err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/img/logo.png", func(w http.ResponseWriter, r *http.Request) { w.Write(data) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := fakeConverter(t, &fakeBackend{}, 0)

	r := c.ConvertURL(context.Background(), srv.URL+"/img/logo.png", 80)
	if !r.Success {
		t.Fatalf("convert url: %s", r.Message)
	}
	if filepath.Base(r.ConvertedPath) != "logo-q80.webp" {
		t.Errorf("path: got %s", r.ConvertedPath)
	}

	r = c.ConvertURL(context.Background(), srv.URL+"/missing.png", 80)
	if r.Success || !errors.Is(r.Err, ErrDownloadFailed) {
		t.Errorf("404: got %+v", r)
	}

	leftovers, _ := filepath.Glob(filepath.Join(tmp, "towebp-src-*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary downloads left: %v", leftovers)
	}
}
