package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// StorageConfig selects and locates the persistence driver.
type StorageConfig struct {
	// Driver is "file" (JSON document) or "sqlite".
	Driver string `yaml:"driver" json:"driver" env:"CALGRID_STORAGE_DRIVER"`
	// Path is the file or database path for the chosen driver.
	Path string `yaml:"path" json:"path" env:"CALGRID_STORAGE_PATH"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" env:"CALGRID_AUTH_USERNAME"`
	Password string `yaml:"password" json:"password" env:"CALGRID_AUTH_PASSWORD"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" env:"CALGRID_LISTEN"`

	// WeekStart controls which weekday is the first grid column:
	// "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start" env:"CALGRID_WEEK_START"`

	// AutosaveCron is a cron-style schedule for flushing unsaved
	// mutations to storage, as a safety net behind per-mutation saves.
	AutosaveCron string `yaml:"autosave" json:"autosave" env:"CALGRID_AUTOSAVE_CRON"`

	// LogLevel is "debug", "info" or "error".
	LogLevel string `yaml:"log_level" json:"log_level" env:"CALGRID_LOG_LEVEL"`

	Storage StorageConfig `yaml:"storage" json:"storage"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		WeekStart:    "monday",
		AutosaveCron: "*/5 * * * *",
		LogLevel:     "info",
		Storage: StorageConfig{
			Driver: "file",
			Path:   "./var/events.json",
		},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = "monday"
	}
	if c.AutosaveCron == "" {
		c.AutosaveCron = "*/5 * * * *"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	switch c.Storage.Driver {
	case "file", "sqlite":
	default:
		c.Storage.Driver = "file"
	}
	if c.Storage.Path == "" {
		if c.Storage.Driver == "sqlite" {
			c.Storage.Path = "./var/events.db"
		} else {
			c.Storage.Path = "./var/events.json"
		}
	}
}

// Load loads configuration from the given YAML path, then applies
// CALGRID_* environment variable overrides on top.
//
// Behavior:
//   - If the file does not exist: create parent directory, write a
//     default config with 0600 perms, and return the defaults.
//   - If the file exists: unmarshal, overlay env vars, normalize.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if serr := Save(path, cfg); serr != nil {
				return cfg, serr
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with
// 0600 permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calgrid-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
