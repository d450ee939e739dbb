package pipeline

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/AnyUserName/towebp/internal/source"
)

// BatchItem is one file found by Scan.
type BatchItem struct {
	// Path is the file on disk.
	Path string
	// Key is the path relative to the scanned directory, without extension,
	// using forward slashes. Files whose keys would collide keep their
	// extension (logo.png, logo.jpg) so every file gets its own output.
	Key  string
	Size int64
}

// BatchResult pairs a scanned file with its conversion result.
type BatchResult struct {
	Item   BatchItem `json:"-"`
	Key    string    `json:"key"`
	Result Result    `json:"result"`
}

// Scan walks dir and returns every regular file outside hidden directories.
// Extensions are not consulted; Convert rejects what is not an image.
func Scan(dir string) ([]BatchItem, error) {
	var items []BatchItem

	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := info.Name()
		if info.IsDir() {
			if strings.HasPrefix(name, ".") && p != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || strings.HasPrefix(name, ".") {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		items = append(items, BatchItem{Path: p, Key: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Keys are compared case-insensitively for case-folding filesystems.
	count := map[string]int{}
	for _, it := range items {
		count[strings.ToLower(trimExt(it.Key))]++
	}
	for i, it := range items {
		if count[strings.ToLower(trimExt(it.Key))] == 1 {
			items[i].Key = trimExt(it.Key)
		}
	}
	return items, nil
}

func trimExt(key string) string {
	return strings.TrimSuffix(key, path.Ext(key))
}

// Batch scans dir and converts every file found at one quality.
func (c *Converter) Batch(ctx context.Context, dir string, quality int, progress ProgressFunc) ([]BatchResult, error) {
	items, err := Scan(dir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no files found in %s", dir)
	}
	return c.BatchItems(ctx, items, quality, progress)
}

// BatchItems converts already scanned files at one quality. Outputs mirror
// the input tree under the output directory. Failures of single files do
// not stop the batch; the error is non-nil only when nothing converted.
func (c *Converter) BatchItems(ctx context.Context, items []BatchItem, quality int, progress ProgressFunc) ([]BatchResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no files to convert")
	}
	if progress == nil {
		progress = func(Result) {}
	}

	workers := c.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	c.log.Debug().Int("files", len(items)).Int("workers", workers).Msg("batch")

	results := make([]BatchResult, len(items))
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i, item := range items {
		wg.Add(1)
		go func(idx int, it BatchItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = BatchResult{Item: it, Key: it.Key, Result: c.convertItem(ctx, it, quality)}
			progress(results[idx].Result)
		}(i, item)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if !r.Result.Success {
			failed++
			c.log.Warn().Str("file", r.Key).Msg(r.Result.Message)
		}
	}
	if failed == len(results) {
		return results, fmt.Errorf("all %d files failed to convert", failed)
	}
	if failed > 0 {
		c.log.Warn().Int("failed", failed).Int("total", len(results)).Msg("batch finished with errors")
	}
	return results, nil
}

func (c *Converter) convertItem(ctx context.Context, it BatchItem, quality int) Result {
	if err := ctx.Err(); err != nil {
		return Result{Quality: quality, Message: err.Error(), Err: err}
	}
	src := &source.Source{Path: it.Path, Name: filepath.Base(it.Path), Size: it.Size}
	dst := filepath.Join(c.cfg.OutputDir, filepath.FromSlash(it.Key)+fmt.Sprintf("-q%d.webp", quality))
	return c.Convert(ctx, src, quality, WithDestination(dst))
}
