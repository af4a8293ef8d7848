package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads the configuration for the given data directory. A missing
// config file is not an error; defaults and FAIRPLAY_* environment
// variables still apply. An empty dataDir means the default location.
func Load(dataDir string) (*Config, error) {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	v := viper.New()
	v.SetConfigFile(FilePath(dataDir))
	v.SetConfigType("yaml")

	setDefaults(v)

	// FAIRPLAY_PLAYERS_ONE overrides players.one, and so on.
	v.SetEnvPrefix("FAIRPLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{DataDir: dataDir}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every known key in one place. Keys not listed
// here are invisible to environment overrides, so additions go through
// this function.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "")
	v.SetDefault("players.one", "Player One")
	v.SetDefault("players.two", "Player Two")
	v.SetDefault("sync.debounce_ms", 2000)
	v.SetDefault("serve.listen", "127.0.0.1:8377")
	v.SetDefault("serve.log_file", "")
	v.SetDefault("serve.sync_every", "")
}

// WriteDefault writes a commented starter config to path, creating the
// parent directory as needed. Refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := `# Fair Play configuration

# Player display names
players:
  one: Player One
  two: Player Two

database:
  # Defaults to cards.db under the data directory when empty
  path: ""

sync:
  # Quiet window before an edit is pushed to the sheet, in milliseconds
  debounce_ms: 2000

serve:
  # Address for the live event feed and status endpoints
  listen: 127.0.0.1:8377
  # Log to a rolling file instead of stderr (empty = stderr)
  log_file: ""
  # Periodic full sync interval, e.g. "30m" (empty = disabled)
  sync_every: ""
`
	return os.WriteFile(path, []byte(content), 0644)
}
