package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/towebp/internal/inspect"
	"github.com/AnyUserName/towebp/internal/report"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <report.json>",
	Short: "Check that the outputs listed in a report exist and are valid WebP",
	Long: `Re-inspects every successful output of a report: the file must exist
with the recorded size, sniff as WebP, and keep more than one frame when the
source was animated.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(_ *cobra.Command, args []string) error {
	reportPath := args[0]
	rep, err := report.Read(reportPath)
	if err != nil {
		return err
	}

	errs := verifyReport(rep, filepath.Dir(reportPath))
	if len(errs) == 0 {
		fmt.Printf("  %s Report is valid\n", okMark)
		fmt.Printf("  %s %d outputs present and decodable as WebP\n", okMark, rep.Stats.Succeeded)
		return nil
	}

	fmt.Printf("  %s Report has %d error(s):\n", failMark, len(errs))
	for _, e := range errs {
		fmt.Printf("    • %s\n", e)
	}
	return fmt.Errorf("verification failed with %d errors", len(errs))
}

// verifyReport checks each successful entry. Relative output paths are
// tried as written, then relative to the report's directory.
func verifyReport(rep *report.Report, baseDir string) []string {
	var errs []string

	seen := map[string]bool{}
	succeeded := 0
	for i, e := range rep.Results {
		if !e.Success {
			continue
		}
		succeeded++
		label := fmt.Sprintf("results[%d] q%d", i, e.Quality)
		if e.ConvertedPath == "" {
			errs = append(errs, fmt.Sprintf("%s: missing converted_path", label))
			continue
		}
		if seen[e.ConvertedPath] {
			errs = append(errs, fmt.Sprintf("%s: duplicate path %q", label, e.ConvertedPath))
		}
		seen[e.ConvertedPath] = true

		path := e.ConvertedPath
		if _, err := os.Stat(path); err != nil && !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: file not found: %s", label, e.ConvertedPath))
			continue
		}
		if info.Size() != e.ConvertedSize {
			errs = append(errs, fmt.Sprintf("%s: size mismatch: report=%d, disk=%d", label, e.ConvertedSize, info.Size()))
		}

		f, _, err := inspect.Sniff(path)
		if err != nil || f != inspect.FormatWebP {
			errs = append(errs, fmt.Sprintf("%s: not a WebP file: %s", label, e.ConvertedPath))
			continue
		}
		if e.Animated {
			n, err := inspect.CountFrames(path)
			switch {
			case err != nil:
				errs = append(errs, fmt.Sprintf("%s: count frames: %v", label, err))
			case n <= 1:
				errs = append(errs, fmt.Sprintf("%s: animated source but output has %d frame", label, n))
			}
		}
	}

	if rep.Stats.Succeeded != succeeded {
		errs = append(errs, fmt.Sprintf("stats.succeeded mismatch: %d != %d", rep.Stats.Succeeded, succeeded))
	}
	return errs
}
