// Package config collects the environment knobs the portal client reads.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Defaults.
const (
	DefaultBaseURL         = "http://localhost:8080"
	DefaultFetchTimeout    = 5 * time.Second
	DefaultRefreshInterval = 30 * time.Second
	DefaultStoragePath     = "bloodlink.db"
)

// Config is everything the client needs from the environment.
type Config struct {
	BaseURL         string
	FetchTimeout    time.Duration
	RefreshInterval time.Duration
	StoragePath     string
}

// FromEnv builds a Config from BLOODLINK_* variables, falling back to
// defaults for anything unset. Malformed durations are an error rather
// than a silent default, so typos do not quietly change timeouts.
func FromEnv() (Config, error) {
	cfg := Config{
		BaseURL:         envOr("BLOODLINK_API_BASE_URL", DefaultBaseURL),
		FetchTimeout:    DefaultFetchTimeout,
		RefreshInterval: DefaultRefreshInterval,
		StoragePath:     envOr("BLOODLINK_STORAGE_PATH", DefaultStoragePath),
	}
	var err error
	if cfg.FetchTimeout, err = durationOr("BLOODLINK_FETCH_TIMEOUT", DefaultFetchTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RefreshInterval, err = durationOr("BLOODLINK_REFRESH_INTERVAL", DefaultRefreshInterval); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", key)
	}
	return d, nil
}
