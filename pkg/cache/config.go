package cache

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds configuration for the run-document cache.
type Config struct {
	// Enabled controls whether the cache is active. When false, every read
	// goes to the store and through normalization.
	Enabled bool

	// TTL bounds how long a normalized run stays cached. Entries never go
	// stale (runs are immutable); this only caps memory.
	TTL time.Duration

	// MaxSize is the maximum number of cached runs.
	MaxSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		TTL:     5 * time.Minute,
		MaxSize: 1000,
	}
}

// ConfigFromEnv reads cache configuration from environment variables,
// falling back to defaults for any unset variable.
//
// Environment variables:
//   - ARBITRAGE_RUN_CACHE_ENABLED: "true" or "false" (default: "true")
//   - ARBITRAGE_RUN_CACHE_TTL: duration in seconds (default: 300)
//   - ARBITRAGE_RUN_CACHE_MAX_SIZE: max cached runs (default: 1000)
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("ARBITRAGE_RUN_CACHE_ENABLED"); v != "" {
		cfg.Enabled = strings.EqualFold(v, "true") || v == "1"
	}

	if v := os.Getenv("ARBITRAGE_RUN_CACHE_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.TTL = time.Duration(secs) * time.Second
		}
	}

	if v := os.Getenv("ARBITRAGE_RUN_CACHE_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSize = n
		}
	}

	return cfg
}
