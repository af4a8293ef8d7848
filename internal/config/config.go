// Package config loads the application configuration from the data
// directory, with environment overrides under the FAIRPLAY_ prefix.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the full application configuration.
type Config struct {
	// DataDir is where the database, config file, and serve log live.
	// It is resolved at load time, not read from the file.
	DataDir string `yaml:"-" mapstructure:"-"`

	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Players  PlayersConfig  `yaml:"players" mapstructure:"players"`
	Sync     SyncConfig     `yaml:"sync" mapstructure:"sync"`
	Serve    ServeConfig    `yaml:"serve" mapstructure:"serve"`
}

// DatabaseConfig locates the local card database.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PlayersConfig holds the two display names used when rendering
// assignments and in export files.
type PlayersConfig struct {
	One string `yaml:"one" mapstructure:"one"`
	Two string `yaml:"two" mapstructure:"two"`
}

// SyncConfig tunes the sync orchestrator.
type SyncConfig struct {
	// DebounceMS is the quiet window before an edit is pushed to the
	// sheet, in milliseconds. Zero means the built-in default.
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// ServeConfig configures the serve daemon.
type ServeConfig struct {
	Listen  string `yaml:"listen" mapstructure:"listen"`
	LogFile string `yaml:"log_file" mapstructure:"log_file"`

	// SyncEvery is a duration string ("30m"). Empty disables the
	// periodic full sync.
	SyncEvery string `yaml:"sync_every" mapstructure:"sync_every"`
}

// DefaultDataDir returns ~/.fairplay, falling back to the working
// directory when the home directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fairplay"
	}
	return filepath.Join(home, ".fairplay")
}

// FilePath returns the config file location inside a data directory.
func FilePath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// DatabasePath returns the database location, defaulting to cards.db
// under the data directory.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.DataDir, "cards.db")
}

// DebounceInterval converts sync.debounce_ms. Zero means the caller
// should keep the built-in default.
func (c *Config) DebounceInterval() time.Duration {
	if c.Sync.DebounceMS <= 0 {
		return 0
	}
	return time.Duration(c.Sync.DebounceMS) * time.Millisecond
}

// SyncEveryInterval parses serve.sync_every. Zero means the periodic
// sync stays disabled.
func (c *Config) SyncEveryInterval() (time.Duration, error) {
	raw := strings.TrimSpace(c.Serve.SyncEvery)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid serve.sync_every %q: %w", raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid serve.sync_every %q: must not be negative", raw)
	}
	return d, nil
}
