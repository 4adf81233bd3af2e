// Package config loads process-level settings from the environment.
// Schedule-level settings (games, seeds, concurrency) live in the YAML
// schedule instead.
package config

import "os"

// Config holds application configuration loaded from environment variables.
type Config struct {
	// DatabaseURL enables result persistence when non-empty.
	DatabaseURL string
	// RedisURL enables live progress tracking when non-empty.
	RedisURL string
	// MetricsAddr serves Prometheus metrics when non-empty, unless the
	// schedule overrides it.
	MetricsAddr string
	// OutputDir is the default root for per-run output directories.
	OutputDir string
}

// Load reads configuration from environment variables. Storage backends
// are opt-in: with no environment set, runs write to the filesystem only.
func Load() *Config {
	return &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		OutputDir:   envOrDefault("OUTPUT_DIR", "runs"),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
