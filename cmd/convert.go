package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/towebp/internal/pipeline"
	"github.com/AnyUserName/towebp/internal/profile"
	"github.com/AnyUserName/towebp/internal/report"
)

var (
	convertQuality int
	convertOut     string
	convertBackend string
	convertProfile string
	convertJSON    bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <file|url>",
	Short: "Convert one image to WebP",
	Long: `Converts a file or an http(s) URL to WebP at one quality.

Without -o the output is written to <out-dir>/<name>-q<quality>.webp.
Animated GIF and WebP sources produce an animated WebP, or fail when no
available backend can keep their frames.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().IntVarP(&convertQuality, "quality", "q", 0, "quality 0-100 (default: profile quality)")
	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "", "output file")
	convertCmd.Flags().StringVar(&convertBackend, "backend", "", "preferred backend (frames, bitmap, cwebp, ffmpeg, vips)")
	convertCmd.Flags().StringVarP(&convertProfile, "profile", "p", "", "quality profile (web, photo, archive, thumbnail)")
	convertCmd.Flags().BoolVar(&convertJSON, "json", false, "print a JSON report instead of text")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	prof := profile.Get(profileName(convertProfile))
	q := quality(cmd, convertQuality, prof)
	conv := newConverter(prof, convertBackend)

	var opts []pipeline.Option
	if convertOut != "" {
		opts = append(opts, pipeline.WithDestination(convertOut))
	}

	ref := args[0]
	var res pipeline.Result
	src, err := conv.Acquire(cmd.Context(), ref)
	if err != nil {
		res = pipeline.AcquireFailure(q, err)
	} else {
		defer src.Release()
		res = conv.Convert(cmd.Context(), src, q, opts...)
	}

	if convertJSON {
		rep := report.New(ref, prof.Name)
		rep.AddResult(res)
		data, err := report.Marshal(rep)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
	} else {
		printResult(ref, res)
	}

	if !res.Success {
		return res.Err
	}
	return nil
}

func printResult(ref string, r pipeline.Result) {
	if !r.Success {
		fmt.Printf("  %s %s\n", failMark, r.Message)
		return
	}
	fmt.Printf("  %s %s\n", okMark, r.Message)
	fmt.Printf("  Source:     %s (%s", ref, r.Format)
	if r.Animated {
		fmt.Print(", animated")
		if r.Frames > 0 {
			fmt.Printf(", %d frames", r.Frames)
		}
	}
	fmt.Println(")")
	if r.Heuristic {
		fmt.Printf("  %s animation was detected by marker scan only\n", warnMark)
	}
	fmt.Printf("  Output:     %s\n", r.ConvertedPath)
	fmt.Printf("  Backend:    %s, quality %d\n", r.Backend, r.Quality)
	fmt.Printf("  Size:       %s → %s (%s)\n",
		formatBytes(r.OriginalSize), formatBytes(r.ConvertedSize), formatReduction(r.Reduction()))
}

// profileName picks the flag value, then the environment.
func profileName(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.Profile
}
