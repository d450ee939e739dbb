package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/towebp/internal/report"
)

var statsCmd = &cobra.Command{
	Use:   "stats <report.json>",
	Short: "Display statistics for a saved sweep or batch report",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, args []string) error {
	rep, err := report.Read(args[0])
	if err != nil {
		return err
	}
	printStats(rep)
	return nil
}

func printStats(rep *report.Report) {
	fmt.Println()
	fmt.Printf("  Report version:   %d\n", rep.Version)
	fmt.Printf("  Generated:        %s\n", rep.GeneratedAt)
	fmt.Printf("  Source:           %s\n", rep.Source)
	if rep.Profile != "" {
		fmt.Printf("  Profile:          %s\n", rep.Profile)
	}
	if rep.Range != nil {
		fmt.Printf("  Range:            %d–%d\n", rep.Range.Min, rep.Range.Max)
	}
	fmt.Println()

	s := rep.Stats
	fmt.Printf("  Conversions:      %d (%d succeeded)\n", s.Conversions, s.Succeeded)
	fmt.Printf("  Input size:       %s\n", formatBytes(s.TotalInputBytes))
	fmt.Printf("  Output size:      %s\n", formatBytes(s.TotalOutputBytes))
	if rep.Best != nil {
		fmt.Printf("  Best quality:     %d (%s)\n", rep.Best.Quality, formatReduction(rep.Best.Reduction))
	}
	fmt.Println()

	// Per-backend breakdown.
	type backendStats struct {
		count int
		bytes int64
	}
	byBackend := map[string]backendStats{}
	animated := 0
	for _, e := range rep.Results {
		if !e.Success {
			continue
		}
		bs := byBackend[e.Backend]
		bs.count++
		bs.bytes += e.ConvertedSize
		byBackend[e.Backend] = bs
		if e.Animated {
			animated++
		}
	}
	var names []string
	for name := range byBackend {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("  Backend breakdown:")
	for _, name := range names {
		bs := byBackend[name]
		fmt.Printf("    %-7s  %4d files  %s\n", name, bs.count, formatBytes(bs.bytes))
	}
	fmt.Printf("  Animated outputs: %d\n", animated)

	// Warnings.
	var warnings []string
	for _, e := range rep.Results {
		if e.Success && e.Reduction < 0 {
			warnings = append(warnings, fmt.Sprintf("q%d %s is larger than the original", e.Quality, e.ConvertedPath))
		}
		if e.Heuristic {
			warnings = append(warnings, fmt.Sprintf("q%d %s: animation detected by marker scan only", e.Quality, e.ConvertedPath))
		}
	}
	if rep.Failure != nil {
		warnings = append(warnings, fmt.Sprintf("stopped at quality %d: %s", rep.Failure.Quality, rep.Failure.Message))
	}
	if len(warnings) > 0 {
		fmt.Println()
		fmt.Printf("  Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Printf("    %s %s\n", warnMark, w)
		}
	}
	fmt.Println()
}
