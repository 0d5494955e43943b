// Package config loads application configuration from file and
// environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds the front-end configuration.
type Config struct {
	// PluginsDir is the directory scanned for backend plugin manifests.
	PluginsDir string `json:"plugins_dir"`
	// MenuFile optionally points at a JSON menu descriptor tree. Empty
	// means the built-in default menu.
	MenuFile string `json:"menu_file"`
	// TickIntervalMS is the cadence of the session poll timer.
	TickIntervalMS int `json:"tick_interval_ms"`
	// RemoteEndpoint is the default address for remote attach.
	RemoteEndpoint string `json:"remote_endpoint"`
	// ConnectTimeoutMS bounds a single remote attach attempt.
	ConnectTimeoutMS int `json:"connect_timeout_ms"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	homeDir, _ := os.UserHomeDir()

	return Config{
		PluginsDir:       filepath.Join(homeDir, ".config", "spyglass", "plugins"),
		TickIntervalMS:   100,
		RemoteEndpoint:   "localhost:1340",
		ConnectTimeoutMS: 5000,
		LogLevel:         "info",
	}
}

// TickInterval returns the tick cadence as a duration.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// ConnectTimeout returns the attach timeout as a duration.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMS) * time.Millisecond
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.TickIntervalMS <= 0 {
		return fmt.Errorf("tick_interval_ms must be positive, got %d", c.TickIntervalMS)
	}
	if c.ConnectTimeoutMS <= 0 {
		return fmt.Errorf("connect_timeout_ms must be positive, got %d", c.ConnectTimeoutMS)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}
	return nil
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "spyglass", "config.json")
}

// Loader loads configuration with file values overridden by SPY_*
// environment variables.
type Loader struct {
	path string
}

// NewLoader creates a loader for the given config file path. An empty path
// uses the default location.
func NewLoader(path string) *Loader {
	if path == "" {
		path = DefaultPath()
	}
	return &Loader{path: path}
}

// Load reads the config file if present, applies environment overrides,
// and validates the result. A missing file is not an error; defaults are
// used.
func (l *Loader) Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(l.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", l.path, err)
		}
	case os.IsNotExist(err):
		// Fall through to defaults.
	default:
		return Config{}, fmt.Errorf("read config %s: %w", l.path, err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", l.path, err)
	}
	return cfg, nil
}

// applyEnvOverrides overlays SPY_* environment variables on the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SPY_PLUGINS_DIR"); v != "" {
		cfg.PluginsDir = v
	}
	if v := os.Getenv("SPY_MENU_FILE"); v != "" {
		cfg.MenuFile = v
	}
	if v := os.Getenv("SPY_TICK_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TickIntervalMS = n
		}
	}
	if v := os.Getenv("SPY_REMOTE_ENDPOINT"); v != "" {
		cfg.RemoteEndpoint = v
	}
	if v := os.Getenv("SPY_CONNECT_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ConnectTimeoutMS = n
		}
	}
	if v := os.Getenv("SPY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
