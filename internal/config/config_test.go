package config

import (
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.OutputDir != "converted" {
		t.Errorf("output dir: got %q", cfg.OutputDir)
	}
	if cfg.Quality != -1 {
		t.Errorf("quality: got %d, want -1 (unset)", cfg.Quality)
	}
	if cfg.DownloadTimeout != 30*time.Second {
		t.Errorf("download timeout: got %v", cfg.DownloadTimeout)
	}
	if cfg.AvailabilityTTL != 5*time.Second {
		t.Errorf("availability ttl: got %v", cfg.AvailabilityTTL)
	}
	if cfg.MaxDownloadBytes != 64<<20 {
		t.Errorf("max download: got %d", cfg.MaxDownloadBytes)
	}
}

func TestParseEnvironment(t *testing.T) {
	t.Setenv("TOWEBP_OUTPUT_DIR", "/tmp/webp")
	t.Setenv("TOWEBP_QUALITY", "55")
	t.Setenv("TOWEBP_BACKENDS", "frames,cwebp")
	t.Setenv("TOWEBP_AVAILABILITY_TTL", "0s")
	t.Setenv("TOWEBP_LOG_FORMAT", "json")
	t.Setenv("TOWEBP_SWEEP_WORKERS", "4")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.OutputDir != "/tmp/webp" || cfg.Quality != 55 || cfg.LogFormat != "json" || cfg.SweepWorkers != 4 {
		t.Errorf("got %+v", cfg)
	}
	if len(cfg.Backends) != 2 || cfg.Backends[0] != "frames" || cfg.Backends[1] != "cwebp" {
		t.Errorf("backends: got %v", cfg.Backends)
	}
	if cfg.AvailabilityTTL != 0 {
		t.Errorf("ttl: got %v", cfg.AvailabilityTTL)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"TOWEBP_QUALITY":    "101",
		"TOWEBP_METHOD":     "9",
		"TOWEBP_LOG_FORMAT": "xml",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Parse(); err == nil {
				t.Errorf("%s=%s accepted", key, value)
			}
		})
	}
}
