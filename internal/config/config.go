package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Logging  LoggingConfig  `toml:"logging"`
	Inbox    InboxConfig    `toml:"inbox"`
}

type ServerConfig struct {
	Listen          string `toml:"listen"`
	Port            int    `toml:"port"`
	ReadTimeout     string `toml:"read_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path        string `toml:"path"`
	WALMode     bool   `toml:"wal_mode"`
	BusyTimeout string `toml:"busy_timeout"`
}

// AuthConfig names the header an authenticating proxy sets to the user ID.
type AuthConfig struct {
	UserHeader       string `toml:"user_header"`
	DefaultUser      string `toml:"default_user"`
	AllowDefaultUser bool   `toml:"allow_default_user"`
}

type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

type InboxConfig struct {
	Limit int `toml:"limit"`
}

// ValidLogLevels lists the accepted logging.level values.
var ValidLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:          "127.0.0.1",
			Port:            8420,
			ReadTimeout:     "10s",
			ShutdownTimeout: "5s",
		},
		Database: DatabaseConfig{
			Path:        "~/.config/stash/stash.db",
			WALMode:     true,
			BusyTimeout: "5s",
		},
		Auth: AuthConfig{
			UserHeader:  "X-Forwarded-User",
			DefaultUser: "local",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Inbox: InboxConfig{
			Limit: 10,
		},
	}
}

// Load reads config from the TOML file at path. Keys missing from the file
// keep their defaults. Creates the file with defaults if it doesn't exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		// Non-fatal: run on defaults even if the file cannot be written
		_ = Save(path, &cfg)
	}

	cfg.Database.Path = ExpandHome(cfg.Database.Path)
	cfg.Logging.File = ExpandHome(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the TOML file.
// Creates the directory if it doesn't exist.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Validate checks the values Load cannot fall back on.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d is out of range", c.Server.Port)
	}
	for key, value := range map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"database.busy_timeout":   c.Database.BusyTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if c.Database.Path == "" {
		return errors.New("database.path: must not be empty")
	}
	if !slices.Contains(ValidLogLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("logging.level: %q is not one of %s", c.Logging.Level, strings.Join(ValidLogLevels, ", "))
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format: %q must be console or json", c.Logging.Format)
	}
	if strings.TrimSpace(c.Auth.UserHeader) == "" {
		return errors.New("auth.user_header: must not be empty")
	}
	if c.Inbox.Limit <= 0 {
		return fmt.Errorf("inbox.limit: %d must be positive", c.Inbox.Limit)
	}
	return nil
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Listen, c.Server.Port)
}

// ReadTimeout returns server.read_timeout. Validate guarantees it parses.
func (c *Config) ReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ReadTimeout)
	return d
}

// ShutdownTimeout returns server.shutdown_timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return d
}

// BusyTimeout returns database.busy_timeout.
func (c *Config) BusyTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Database.BusyTimeout)
	return d
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DefaultFilePath returns the default config path: ~/.config/stash/config.toml
func DefaultFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "stash", "config.toml"), nil
}
