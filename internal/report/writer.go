// Package report serializes conversion results to JSON.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/AnyUserName/towebp/internal/pipeline"
)

// New creates an empty report with defaults.
func New(source, profileName string) *Report {
	return &Report{
		Version:     SupportedVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Source:      source,
		Profile:     profileName,
		Results:     []Entry{},
	}
}

// FromResult builds the entry for one conversion.
func FromResult(r pipeline.Result) Entry {
	return Entry{
		Quality:       r.Quality,
		Success:       r.Success,
		Message:       r.Message,
		OriginalSize:  r.OriginalSize,
		ConvertedSize: r.ConvertedSize,
		ConvertedPath: r.ConvertedPath,
		Backend:       r.Backend,
		Format:        r.Format.String(),
		Animated:      r.Animated,
		Frames:        r.Frames,
		Heuristic:     r.Heuristic,
		Reduction:     r.Reduction(),
	}
}

// AddResult appends one conversion. A failure is recorded as the failure
// entry instead of a result.
func (rep *Report) AddResult(r pipeline.Result) {
	if r.OriginalSize > rep.OriginalSize {
		rep.OriginalSize = r.OriginalSize
	}
	e := FromResult(r)
	if !r.Success {
		rep.Failure = &e
		return
	}
	rep.Results = append(rep.Results, e)
}

// AddSweep records a sweep over [min, max].
func (rep *Report) AddSweep(sr pipeline.SweepResult, min, max int) {
	rep.Range = &Range{Min: min, Max: max}
	rep.OriginalSize = sr.OriginalSize
	for _, r := range sr.Results {
		rep.Results = append(rep.Results, FromResult(r))
	}
	if sr.Failed != nil {
		e := FromResult(*sr.Failed)
		rep.Failure = &e
	}
	if len(sr.Results) > 0 {
		rep.Best = &Best{Quality: sr.Best, Reduction: sr.BestReduction}
	}
}

// AddBatch records every file of a batch, failures included.
func (rep *Report) AddBatch(results []pipeline.BatchResult) {
	for _, br := range results {
		e := FromResult(br.Result)
		e.Key = br.Key
		rep.Results = append(rep.Results, e)
	}
}

// ComputeStats recalculates aggregate statistics from the entries.
func (rep *Report) ComputeStats() {
	var s Stats
	for _, e := range rep.Results {
		s.Conversions++
		s.TotalInputBytes += e.OriginalSize
		if e.Success {
			s.Succeeded++
			s.TotalOutputBytes += e.ConvertedSize
		}
	}
	if rep.Failure != nil {
		s.Conversions++
	}
	rep.Stats = s
}

// Marshal returns the indented JSON with a trailing newline.
func Marshal(rep *Report) ([]byte, error) {
	rep.ComputeStats()
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteJSON serializes the report to a JSON file.
func WriteJSON(rep *Report, path string) error {
	data, err := Marshal(rep)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Read loads a report and checks its version.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	if rep.Version != SupportedVersion {
		return nil, fmt.Errorf("unsupported report version %d (expected %d)", rep.Version, SupportedVersion)
	}
	return &rep, nil
}
