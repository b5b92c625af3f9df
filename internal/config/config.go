package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// AppName names the config and data directories.
const AppName = "devicelab"

// Config represents the console configuration from config.toml
type Config struct {
	Server struct {
		URL     string `toml:"url"`
		Timeout int    `toml:"timeout"` // Request timeout in seconds
	} `toml:"server"`
	TUI struct {
		RefreshInterval int    `toml:"refresh_interval"` // Device refresh interval in seconds, 0 disables
		Theme           string `toml:"theme"`
		FadeMS          int    `toml:"fade_ms"` // Dialog transition length, 0 disables
	} `toml:"tui"`
	Upload struct {
		Directories []string `toml:"directories"`
		Allowed     []string `toml:"allowed"`
	} `toml:"upload"`
	Log struct {
		File  string `toml:"file"`
		Level string `toml:"level"`
	} `toml:"log"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.URL = "http://localhost:8080"
	cfg.Server.Timeout = 30
	cfg.TUI.RefreshInterval = 5
	cfg.TUI.Theme = "clean_cyber"
	cfg.TUI.FadeMS = 150
	cfg.Upload.Directories = []string{"apps"}
	cfg.Upload.Allowed = []string{"*.apk", "*.ipa", "*.zip"}
	cfg.Log.Level = "info"
	return cfg
}

// ConfigDir returns $XDG_CONFIG_HOME/devicelab, falling back to ~/.config.
func ConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, AppName), nil
}

// DataDir returns $XDG_DATA_HOME/devicelab, falling back to ~/.local/share.
func DataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, AppName), nil
}

// LoadConfig loads configuration from the standard XDG config path with sensible defaults
func LoadConfig() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, "config.toml"))
}

// LoadFrom loads configuration from path. A missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	config := Default()

	// Read config file if it exists
	if _, err := os.Stat(path); err == nil {
		configData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Parse TOML config, merging with defaults
		if err := toml.Unmarshal(configData, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects values the console cannot run with.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("config: server.url must not be empty")
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("config: server.timeout must not be negative")
	}
	if c.TUI.RefreshInterval < 0 {
		return fmt.Errorf("config: tui.refresh_interval must not be negative")
	}
	if len(c.Upload.Directories) == 0 {
		return fmt.Errorf("config: upload.directories needs at least one entry")
	}
	return nil
}

// GetRefreshInterval returns the device refresh interval.
// Returns 0 if auto-refresh is disabled
func (c *Config) GetRefreshInterval() time.Duration {
	return time.Duration(c.TUI.RefreshInterval) * time.Second
}

// GetTimeout returns the HTTP request timeout.
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Server.Timeout) * time.Second
}

// GetFade returns the dialog transition duration.
func (c *Config) GetFade() time.Duration {
	return time.Duration(c.TUI.FadeMS) * time.Millisecond
}

// LogFile returns the configured log path, defaulting to devicelab.log in the
// data directory.
func (c *Config) LogFile() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName+".log"), nil
}
