package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AnyUserName/towebp/internal/source"
)

// SweepResult holds one Result per converted quality, ascending.
type SweepResult struct {
	OriginalSize int64    `json:"original_size"`
	Results      []Result `json:"results"`
	// Failed is the conversion that stopped the sweep, if any.
	Failed *Result `json:"failed,omitempty"`
	// Best is the quality with the greatest size reduction; ties go to the
	// lower quality. Zero when nothing converted.
	Best          int     `json:"best_quality,omitempty"`
	BestReduction float64 `json:"best_reduction,omitempty"`
}

// SweepError names the quality at which a sweep stopped.
type SweepError struct {
	Quality int
	Err     error
}

func (e *SweepError) Error() string {
	return fmt.Sprintf("sweep stopped at quality %d: %v", e.Quality, e.Err)
}

func (e *SweepError) Unwrap() error { return e.Err }

// ProgressFunc is called after each conversion of a sweep.
type ProgressFunc func(r Result)

// Sweep converts src once per quality in [min, max], ascending, and stops
// at the first failure. Results before the failure are kept and returned
// together with a *SweepError.
func (c *Converter) Sweep(ctx context.Context, src *source.Source, min, max int) (SweepResult, error) {
	return c.SweepWithProgress(ctx, src, min, max, nil)
}

// SweepWithProgress is Sweep with a callback per finished conversion. The
// callback may run on several goroutines when SweepWorkers > 1.
func (c *Converter) SweepWithProgress(ctx context.Context, src *source.Source, min, max int, progress ProgressFunc) (SweepResult, error) {
	if min < 1 || max > 100 || min > max {
		return SweepResult{}, fmt.Errorf("%w: %w: %d..%d (want 1 <= min <= max <= 100)", ErrValidation, ErrInvalidRange, min, max)
	}
	if progress == nil {
		progress = func(Result) {}
	}

	var results []Result
	if c.cfg.SweepWorkers > 1 {
		results = c.sweepConcurrent(ctx, src, min, max, progress)
	} else {
		results = c.sweepSequential(ctx, src, min, max, progress)
	}

	sr := SweepResult{}
	if src != nil {
		sr.OriginalSize = src.Size
	}
	for i := range results {
		r := results[i]
		if r.OriginalSize > 0 {
			sr.OriginalSize = r.OriginalSize
		}
		if !r.Success {
			sr.Failed = &r
			break
		}
		sr.Results = append(sr.Results, r)
		if len(sr.Results) == 1 || r.Reduction() > sr.BestReduction {
			sr.Best, sr.BestReduction = r.Quality, r.Reduction()
		}
	}

	if sr.Failed != nil {
		c.log.Warn().Int("quality", sr.Failed.Quality).Int("kept", len(sr.Results)).Msg("sweep stopped")
		return sr, &SweepError{Quality: sr.Failed.Quality, Err: sr.Failed.Err}
	}
	return sr, nil
}

// sweepSequential returns results up to and including the first failure.
func (c *Converter) sweepSequential(ctx context.Context, src *source.Source, min, max int, progress ProgressFunc) []Result {
	var out []Result
	for q := min; q <= max; q++ {
		r := c.convertOrCancel(ctx, src, q)
		progress(r)
		out = append(out, r)
		if !r.Success {
			break
		}
	}
	return out
}

// sweepConcurrent runs up to SweepWorkers conversions at once. Qualities are
// started in ascending order; once one fails, qualities above it are not
// started, while lower ones run to completion so the outcome matches the
// sequential sweep. Outputs of qualities above the failure that were already
// running are removed.
func (c *Converter) sweepConcurrent(ctx context.Context, src *source.Source, min, max int, progress ProgressFunc) []Result {
	n := max - min + 1
	results := make([]Result, n)
	ran := make([]bool, n)

	var mu sync.Mutex
	failedAt := n

	var g errgroup.Group
	g.SetLimit(c.cfg.SweepWorkers)
	for i := 0; i < n; i++ {
		mu.Lock()
		stop := i > failedAt
		mu.Unlock()
		if stop {
			break
		}

		g.Go(func() error {
			mu.Lock()
			skip := i > failedAt
			mu.Unlock()
			if skip {
				return nil
			}

			r := c.convertOrCancel(ctx, src, min+i)
			progress(r)

			mu.Lock()
			results[i], ran[i] = r, true
			if !r.Success && i < failedAt {
				failedAt = i
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	for i := failedAt + 1; i < n; i++ {
		if !ran[i] || !results[i].Success {
			continue
		}
		if err := os.Remove(results[i].ConvertedPath); err != nil && !os.IsNotExist(err) {
			c.log.Warn().Err(err).Int("quality", results[i].Quality).Msg("remove discarded sweep output")
		}
	}

	var out []Result
	for i := 0; i < n && ran[i]; i++ {
		out = append(out, results[i])
		if !results[i].Success {
			break
		}
	}
	return out
}

func (c *Converter) convertOrCancel(ctx context.Context, src *source.Source, quality int) Result {
	if err := ctx.Err(); err != nil {
		return Result{Quality: quality, Message: err.Error(), Err: err}
	}
	return c.Convert(ctx, src, quality)
}
