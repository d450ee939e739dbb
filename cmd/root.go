package cmd

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AnyUserName/towebp/internal/backend"
	"github.com/AnyUserName/towebp/internal/config"
	"github.com/AnyUserName/towebp/internal/pipeline"
	"github.com/AnyUserName/towebp/internal/profile"
	"github.com/AnyUserName/towebp/internal/source"
)

var (
	version   = "0.1.0"
	verbose   bool
	outDir    string
	logFormat string

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "towebp",
	Short: "Convert images to WebP, keeping animations intact",
	Long: `towebp converts JPEG, PNG, GIF, BMP, TIFF and WebP images (SVG and HEIC
with libvips) to WebP. Animated GIF and WebP sources stay animated.

Sources are identified by content, never by extension. A backend is chosen
per source: the built-in frame-aware and bitmap encoders first, then the
cwebp/gif2webp and ffmpeg tools when they are on PATH.

Defaults come from TOWEBP_* environment variables or a .env file.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&outDir, "out-dir", "", "directory for generated outputs (default $TOWEBP_OUTPUT_DIR or ./converted)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"towebp %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// setup loads the configuration, applies persistent flags and builds the
// logger shared by every command.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Parse()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("out-dir") {
		c.OutputDir = outDir
	}
	if cmd.Flags().Changed("log-format") {
		c.LogFormat = logFormat
	}
	if verbose {
		c.Debug = true
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	logger = newLogger(c)
	return nil
}

func newLogger(c *config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if c.Debug {
		level = zerolog.DebugLevel
	}
	if c.LogFormat == "json" {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// newConverter builds a converter from the loaded configuration and the
// profile's lossless setting.
func newConverter(p profile.Profile, preferred string) *pipeline.Converter {
	if preferred == "" {
		preferred = cfg.Backend
	}
	conv := pipeline.New(pipeline.Config{
		OutputDir: cfg.OutputDir,
		Backend:   preferred,
		Backends: backend.Options{
			Lossless:        cfg.Lossless || p.Lossless,
			Method:          cfg.Method,
			Enabled:         cfg.Backends,
			AvailabilityTTL: cfg.AvailabilityTTL,
		},
		SweepWorkers: cfg.SweepWorkers,
		Workers:      cfg.Workers,
		Fetch: source.FetchOptions{
			Timeout:   cfg.DownloadTimeout,
			MaxBytes:  cfg.MaxDownloadBytes,
			UserAgent: "towebp/" + version,
		},
		Logger: logger,
	})
	logger.Debug().Msg(conv.Registry().String())
	return conv
}

// quality resolves the single conversion quality: flag, then environment,
// then profile.
func quality(cmd *cobra.Command, flagValue int, p profile.Profile) int {
	switch {
	case cmd.Flags().Changed("quality"):
		return flagValue
	case cfg.Quality >= 0:
		return cfg.Quality
	}
	return p.Quality
}
