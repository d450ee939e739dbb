package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/towebp/internal/pipeline"
	"github.com/AnyUserName/towebp/internal/profile"
	"github.com/AnyUserName/towebp/internal/report"
)

var (
	sweepMin     int
	sweepMax     int
	sweepProfile string
	sweepWorkers int
	sweepBackend string
	sweepReport  string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep <file|url>",
	Short: "Convert one image at every quality in a range and compare sizes",
	Long: `Converts the source once per quality from --min to --max, ascending, and
reports the quality with the greatest size reduction.

The sweep stops at the first failed conversion; the results before it are
kept in the summary and the report.`,
	Args: cobra.ExactArgs(1),
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().IntVar(&sweepMin, "min", 0, "lowest quality (default: profile)")
	sweepCmd.Flags().IntVar(&sweepMax, "max", 0, "highest quality (default: profile)")
	sweepCmd.Flags().StringVarP(&sweepProfile, "profile", "p", "", "quality profile (web, photo, archive, thumbnail)")
	sweepCmd.Flags().IntVarP(&sweepWorkers, "workers", "w", 0, "concurrent conversions (default $TOWEBP_SWEEP_WORKERS or 1)")
	sweepCmd.Flags().StringVar(&sweepBackend, "backend", "", "preferred backend")
	sweepCmd.Flags().StringVar(&sweepReport, "report", "", "write a JSON report to this file")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	prof := profile.Get(profileName(sweepProfile))
	lo, hi := sweepRange(cmd, prof)
	if cmd.Flags().Changed("workers") {
		cfg.SweepWorkers = sweepWorkers
	}
	conv := newConverter(prof, sweepBackend)

	ref := args[0]
	src, err := conv.Acquire(cmd.Context(), ref)
	if err != nil {
		return err
	}
	defer src.Release()

	total := hi - lo + 1
	if total < 1 {
		total = 1
	}
	bar := newProgressBar(total, "sweeping")
	sr, sweepErr := conv.SweepWithProgress(cmd.Context(), src, lo, hi, func(pipeline.Result) {
		bar.Add(1)
	})
	bar.Finish()

	if sweepErr != nil && len(sr.Results) == 0 && sr.Failed == nil {
		return sweepErr
	}

	printSweep(ref, prof.Name, lo, hi, sr)

	if sweepReport != "" {
		rep := report.New(ref, prof.Name)
		rep.AddSweep(sr, lo, hi)
		if err := report.WriteJSON(rep, sweepReport); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("  Report:        %s\n\n", sweepReport)
	}
	return sweepErr
}

// sweepRange resolves the range: flags, then environment, then profile.
func sweepRange(cmd *cobra.Command, p profile.Profile) (int, int) {
	lo, hi := p.MinQuality, p.MaxQuality
	if cfg.MinQuality > 0 {
		lo = cfg.MinQuality
	}
	if cfg.MaxQuality > 0 {
		hi = cfg.MaxQuality
	}
	if cmd.Flags().Changed("min") {
		lo = sweepMin
	}
	if cmd.Flags().Changed("max") {
		hi = sweepMax
	}
	return lo, hi
}

func printSweep(ref, profileName string, lo, hi int, sr pipeline.SweepResult) {
	fmt.Println()
	heading.Println("  Quality sweep")
	fmt.Println()
	fmt.Printf("  Source:        %s\n", ref)
	fmt.Printf("  Original size: %s\n", formatBytes(sr.OriginalSize))
	fmt.Printf("  Profile:       %s\n", profileName)
	fmt.Printf("  Range:         %d–%d (%d conversions)\n", lo, hi, len(sr.Results))
	if len(sr.Results) > 0 {
		first := sr.Results[0]
		fmt.Printf("  Backend:       %s", first.Backend)
		if first.Animated {
			fmt.Print(" (animated)")
		}
		fmt.Println()
	}
	fmt.Println()

	for _, r := range sr.Results {
		line := fmt.Sprintf("    q%-3d  %10s  %8s  %s", r.Quality, formatBytes(r.ConvertedSize), formatReduction(r.Reduction()), truncKey(r.ConvertedPath, 48))
		if r.Quality == sr.Best {
			bestMark.Println(line + "  ← best")
			continue
		}
		fmt.Println(line)
	}
	fmt.Println()

	if len(sr.Results) > 0 {
		fmt.Printf("  %s Best quality %d saves %s\n", okMark, sr.Best, formatReduction(sr.BestReduction))
	}
	if sr.Failed != nil {
		fmt.Printf("  %s Stopped at quality %d: %s\n", failMark, sr.Failed.Quality, sr.Failed.Message)
	}
	fmt.Println()
}
