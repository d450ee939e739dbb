package config

import (
	"fmt"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/kelseyhightower/envconfig"
)

// Prefix of every environment variable, e.g. TOWEBP_OUTPUT_DIR.
const Prefix = "towebp"

// Config is read from the environment (and a .env file in the working
// directory). Command line flags override it.
type Config struct {
	// OutputDir receives generated outputs.
	OutputDir string `split_words:"true" default:"converted"`

	// Profile picks the quality defaults, see internal/profile.
	Profile string `default:"web"`
	// Quality, MinQuality and MaxQuality override the profile when set.
	Quality    int `default:"-1"`
	MinQuality int `split_words:"true"`
	MaxQuality int `split_words:"true"`

	// Backend is the preferred backend; Backends restricts the registry.
	Backend  string
	Backends []string
	Lossless bool
	// Method is the encoder effort, 0 (fast) to 6 (slow).
	Method int `default:"4"`

	DownloadTimeout  time.Duration `split_words:"true" default:"30s"`
	MaxDownloadBytes int64         `split_words:"true" default:"67108864"`
	AvailabilityTTL  time.Duration `split_words:"true" default:"5s"`

	SweepWorkers int `split_words:"true" default:"1"`
	Workers      int

	// LogFormat is "console" or "json".
	LogFormat string `split_words:"true" default:"console"`
	Debug     bool
}

// Parse reads the configuration from the environment.
func Parse() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		_ = envconfig.Usage(Prefix, &cfg)
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that envconfig cannot.
func (c *Config) Validate() error {
	if c.Quality > 100 || c.Quality < -1 {
		return fmt.Errorf("quality %d outside 0..100", c.Quality)
	}
	if c.Method < 0 || c.Method > 6 {
		return fmt.Errorf("method %d outside 0..6", c.Method)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log format %q: want console or json", c.LogFormat)
	}
	return nil
}
