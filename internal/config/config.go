package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the AlephNote CLI.
//
// SettingsFile, DatabaseFile and SecretFile default to fixed names inside
// DataDir when left empty.
type Config struct {
	DataDir       string
	SettingsFile  string
	DatabaseFile  string
	SecretFile    string
	LogLevel      string
	LogFile       string
	RemoteTimeout time.Duration
	SyncInterval  time.Duration
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "alephnote")
	}
	return ".alephnote"
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = defaultDataDir()
	c.LogLevel = "info"
	c.RemoteTimeout = 30 * time.Second
	c.SyncInterval = 5 * time.Minute
}

// Resolve fills the file paths left empty.
func (c *Config) Resolve() {
	if c.SettingsFile == "" {
		c.SettingsFile = filepath.Join(c.DataDir, "settings.yaml")
	}
	if c.DatabaseFile == "" {
		c.DatabaseFile = filepath.Join(c.DataDir, "notes.db")
	}
	if c.SecretFile == "" {
		c.SecretFile = filepath.Join(c.DataDir, "secret.key")
	}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	cfg.Resolve()
	return cfg
}
