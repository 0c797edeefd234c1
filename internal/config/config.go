package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the service. All values can be set via
// environment variables (or a .env file); missing values fall back to defaults.
type Config struct {
	Port         int
	DatabasePath string

	// ActiveTTL is the cache validity window for elections that are still
	// accepting votes; EndedTTL applies once an election has closed.
	ActiveTTL time.Duration
	EndedTTL  time.Duration

	// PollInterval is the safety-net refresh interval. It defaults to the
	// short TTL so a key is never stale for more than one window without a
	// refresh being attempted.
	PollInterval time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present (its absence is not an error).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:         8008,
		DatabasePath: "election-results.db",
		ActiveTTL:    30 * time.Second,
		EndedTTL:     5 * time.Minute,
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 {
			return Config{}, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}

	var err error
	if cfg.ActiveTTL, err = durationEnv("ACTIVE_TTL", cfg.ActiveTTL); err != nil {
		return Config{}, err
	}
	if cfg.EndedTTL, err = durationEnv("ENDED_TTL", cfg.EndedTTL); err != nil {
		return Config{}, err
	}
	// Poll interval tracks the short TTL unless overridden
	if cfg.PollInterval, err = durationEnv("POLL_INTERVAL", cfg.ActiveTTL); err != nil {
		return Config{}, err
	}

	if cfg.ActiveTTL <= 0 || cfg.EndedTTL <= 0 || cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("TTLs and poll interval must be positive")
	}

	return cfg, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
