// Package config loads GoPanel client settings from defaults, a YAML file,
// an optional .env file and PANEL_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
	"gopkg.in/yaml.v3"

	"github.com/NicolasHaas/gopanel/pkg/logging"
)

const (
	DefaultBackendURL = "https://chrissoffc.my.id:2008"
	FileName          = "gopanel.yaml"
	appDirName        = "gopanel"
)

// Config holds every tunable of the client.
type Config struct {
	BackendURL     string        `yaml:"backend_url" env:"PANEL_BACKEND_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"PANEL_REQUEST_TIMEOUT"`
	PollInterval   time.Duration `yaml:"poll_interval" env:"PANEL_POLL_INTERVAL"`
	SessionTTL     time.Duration `yaml:"session_ttl" env:"PANEL_SESSION_TTL"`

	// Cosmetic delays before view changes.
	ViewSwitchDelay time.Duration `yaml:"view_switch_delay" env:"PANEL_VIEW_SWITCH_DELAY"`
	ExpiryDelay     time.Duration `yaml:"expiry_delay" env:"PANEL_EXPIRY_DELAY"`
	ActionsDelay    time.Duration `yaml:"actions_delay" env:"PANEL_ACTIONS_DELAY"`

	DataDir string `yaml:"data_dir,omitempty" env:"PANEL_DATA_DIR"`
	DBPath  string `yaml:"db_path,omitempty" env:"PANEL_DB_PATH"`
	Encrypt bool   `yaml:"encrypt" env:"PANEL_ENCRYPT"`

	LogLevel  string `yaml:"log_level" env:"PANEL_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"PANEL_LOG_FORMAT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BackendURL:      DefaultBackendURL,
		RequestTimeout:  15 * time.Second,
		PollInterval:    30 * time.Second,
		SessionTTL:      24 * time.Hour,
		ViewSwitchDelay: 1500 * time.Millisecond,
		ExpiryDelay:     2 * time.Second,
		ActionsDelay:    time.Second,
		Encrypt:         true,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// DefaultPath returns the config file location in the user config dir,
// falling back to the working directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(dir, appDirName, FileName)
}

// Load builds a Config. An empty path means DefaultPath; a missing file is
// not an error. envFiles are passed to godotenv; when none are given a .env
// in the working directory is tried.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}
	if err := env.Load(cfg, nil); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from CLI flag or user config dir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) resolvePaths() {
	if c.DataDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.DataDir = filepath.Join(dir, appDirName)
		} else {
			c.DataDir = "."
		}
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "storage.db")
	}
}

// KeyPath is where the at-rest encryption key is kept.
func (c *Config) KeyPath() string {
	return filepath.Join(c.DataDir, "storage.key")
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("config: backend_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: backend_url %q must be an http(s) URL", c.BackendURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request_timeout must be positive")
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("config: poll_interval must be at least 1s")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: session_ttl must be positive")
	}
	for name, d := range map[string]time.Duration{
		"view_switch_delay": c.ViewSwitchDelay,
		"expiry_delay":      c.ExpiryDelay,
		"actions_delay":     c.ActionsDelay,
	} {
		if d < 0 {
			return fmt.Errorf("config: %s must not be negative", name)
		}
	}
	if err := logging.Validate(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Save writes c as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
