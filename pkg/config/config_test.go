package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PANEL_DATA_DIR", dir)

	cfg, err := Load(filepath.Join(dir, "missing.yaml"), filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.DataDir = dir
	want.DBPath = filepath.Join(dir, "storage.db")
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.KeyPath() != filepath.Join(dir, "storage.key") {
		t.Errorf("KeyPath() = %q", cfg.KeyPath())
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, FileName, `
backend_url: https://file.example
poll_interval: 45s
session_ttl: 12h
log_level: debug
data_dir: `+dir+`
`)
	envPath := writeFile(t, dir, "test.env", "PANEL_POLL_INTERVAL=1m\nPANEL_EXPIRY_DELAY=0s\n")
	t.Setenv("PANEL_BACKEND_URL", "https://env.example:2008")

	// godotenv writes straight into the process environment
	t.Cleanup(func() {
		os.Unsetenv("PANEL_POLL_INTERVAL")
		os.Unsetenv("PANEL_EXPIRY_DELAY")
	})

	cfg, err := Load(path, envPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.BackendURL != "https://env.example:2008" {
		t.Errorf("BackendURL = %q, env should win over file", cfg.BackendURL)
	}
	if cfg.PollInterval != time.Minute {
		t.Errorf("PollInterval = %v, .env should win over file", cfg.PollInterval)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %v, want 12h from file", cfg.SessionTTL)
	}
	if cfg.ExpiryDelay != 0 {
		t.Errorf("ExpiryDelay = %v, want 0", cfg.ExpiryDelay)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Errorf("RequestTimeout = %v, default should survive", cfg.RequestTimeout)
	}
}

func TestLoadRejectsBadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, FileName, "backend_url: [unterminated")

	if _, err := Load(path, filepath.Join(dir, "missing.env")); err == nil {
		t.Fatal("Load: expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad scheme", func(c *Config) { c.BackendURL = "ftp://x" }},
		{"no host", func(c *Config) { c.BackendURL = "https://" }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"fast poll", func(c *Config) { c.PollInterval = 10 * time.Millisecond }},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }},
		{"negative delay", func(c *Config) { c.ActionsDelay = -time.Second }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("Validate: expected error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", FileName)
	t.Setenv("PANEL_DATA_DIR", dir)

	c := Default()
	c.BackendURL = "https://saved.example"
	c.PollInterval = 2 * time.Minute
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.BackendURL != c.BackendURL || got.PollInterval != c.PollInterval {
		t.Errorf("round trip lost values: %+v", got)
	}
}
