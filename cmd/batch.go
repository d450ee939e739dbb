package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/towebp/internal/pipeline"
	"github.com/AnyUserName/towebp/internal/profile"
	"github.com/AnyUserName/towebp/internal/report"
)

var (
	batchQuality int
	batchProfile string
	batchWorkers int
	batchBackend string
	batchReport  string
)

var batchCmd = &cobra.Command{
	Use:   "batch <input_dir>",
	Short: "Convert every image under a directory",
	Long: `Walks the input directory (skipping hidden files and directories) and
converts every image it finds at one quality. Outputs mirror the input tree:
<out-dir>/<relative path>-q<quality>.webp.

Files that are not images are reported and skipped; the batch fails only
when nothing converted.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchQuality, "quality", "q", 0, "quality 0-100 (default: profile quality)")
	batchCmd.Flags().StringVarP(&batchProfile, "profile", "p", "", "quality profile")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "parallel conversions (0 = NumCPU)")
	batchCmd.Flags().StringVar(&batchBackend, "backend", "", "preferred backend")
	batchCmd.Flags().StringVar(&batchReport, "report", "", "write a JSON report to this file")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	start := time.Now()
	absInput, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}

	prof := profile.Get(profileName(batchProfile))
	q := quality(cmd, batchQuality, prof)
	if cmd.Flags().Changed("workers") {
		cfg.Workers = batchWorkers
	}
	conv := newConverter(prof, batchBackend)

	logger.Debug().Str("input", absInput).Str("output", cfg.OutputDir).Str("profile", prof.Name).Int("quality", q).Msg("batch")

	items, err := pipeline.Scan(absInput)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("no files found in %s", absInput)
	}
	bar := newProgressBar(len(items), "converting")
	results, err := conv.BatchItems(cmd.Context(), items, q, func(pipeline.Result) {
		bar.Add(1)
	})
	bar.Finish()

	rep := report.New(absInput, prof.Name)
	rep.AddBatch(results)
	rep.ComputeStats()
	printBatchReport(rep, time.Since(start))

	if batchReport != "" {
		if werr := report.WriteJSON(rep, batchReport); werr != nil {
			return fmt.Errorf("write report: %w", werr)
		}
		fmt.Printf("  Report:      %s\n\n", batchReport)
	}
	return err
}

func printBatchReport(rep *report.Report, elapsed time.Duration) {
	fmt.Println()
	heading.Println("  Batch complete")
	fmt.Println()

	s := rep.Stats
	fmt.Printf("  Files:       %d\n", s.Conversions)
	fmt.Printf("  Converted:   %d\n", s.Succeeded)
	if failed := s.Conversions - s.Succeeded; failed > 0 {
		fmt.Printf("  Failed:      %d\n", failed)
	}
	var in int64
	for _, e := range rep.Results {
		if e.Success {
			in += e.OriginalSize
		}
	}
	fmt.Printf("  Input size:  %s\n", formatBytes(in))
	fmt.Printf("  Output size: %s\n", formatBytes(s.TotalOutputBytes))
	if in > 0 {
		fmt.Printf("  Ratio:       %.1f%% of original\n", float64(s.TotalOutputBytes)/float64(in)*100)
	}
	fmt.Printf("  Time:        %s\n", elapsed.Round(time.Millisecond))
	fmt.Println()

	// Top 10 heaviest sources.
	var ok []report.Entry
	for _, e := range rep.Results {
		if e.Success {
			ok = append(ok, e)
		}
	}
	sort.Slice(ok, func(i, j int) bool { return ok[i].OriginalSize > ok[j].OriginalSize })
	if n := min(len(ok), 10); n > 0 {
		fmt.Printf("  Top %d heaviest (original → webp):\n", n)
		for _, e := range ok[:n] {
			fmt.Printf("    %-40s %10s → %10s  (%s)\n",
				truncKey(e.Key, 40),
				formatBytes(e.OriginalSize),
				formatBytes(e.ConvertedSize),
				formatReduction(e.Reduction),
			)
		}
		fmt.Println()
	}

	for _, e := range rep.Results {
		if !e.Success {
			fmt.Printf("  %s %s: %s\n", failMark, e.Key, e.Message)
		}
	}
}
