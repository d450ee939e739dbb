package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/towebp/internal/profile"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List conversion backends and whether they can run here",
	Args:  cobra.NoArgs,
	RunE:  runBackends,
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}

func runBackends(_ *cobra.Command, _ []string) error {
	conv := newConverter(profile.Get(cfg.Profile), "")

	fmt.Println()
	heading.Println("  Backends (priority order)")
	fmt.Println()
	for _, s := range conv.Registry().Statuses() {
		mark := okMark
		if !s.Available {
			mark = failMark
		}
		formats := make([]string, len(s.Formats))
		for i, f := range s.Formats {
			formats[i] = f.String()
		}
		fmt.Printf("  %s %-7s animation: %-3s  formats: %s\n", mark, s.Name, yesNo(s.Animation), strings.Join(formats, ", "))
		if s.Detail != "" {
			fmt.Printf("            %s\n", s.Detail)
		}
	}
	fmt.Println()
	if cfg.Backend != "" {
		fmt.Printf("  Preferred: %s\n\n", cfg.Backend)
	}
	return nil
}
