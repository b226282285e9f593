package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"

	"github.com/nikbrunner/stash/internal/config"
)

func TestLoad_CreatesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	cfg, err := config.Load(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.Server.Port, 8420)
	assert.Equal(t, cfg.Auth.UserHeader, "X-Forwarded-User")

	_, err = os.Stat(path)
	assert.NilError(t, err, "config file should be written")

	again, err := config.Load(path)
	assert.NilError(t, err)
	assert.DeepEqual(t, again, cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := fs.NewDir(t, "stash", fs.WithFile("config.toml", `
[server]
port = 9000
shutdown_timeout = "1s"

[database]
path = "/var/lib/stash/stash.db"
wal_mode = false

[logging]
level = "debug"
`))
	defer dir.Remove()

	cfg, err := config.Load(dir.Join("config.toml"))
	assert.NilError(t, err)

	assert.Equal(t, cfg.Server.Port, 9000)
	assert.Equal(t, cfg.Server.Listen, "127.0.0.1")
	assert.Equal(t, cfg.ShutdownTimeout(), time.Second)
	assert.Equal(t, cfg.ReadTimeout(), 10*time.Second)
	assert.Equal(t, cfg.Database.Path, "/var/lib/stash/stash.db")
	assert.Equal(t, cfg.Database.WALMode, false)
	assert.Equal(t, cfg.BusyTimeout(), 5*time.Second)
	assert.Equal(t, cfg.Logging.Level, "debug")
	assert.Equal(t, cfg.Logging.Format, "console")
	assert.Equal(t, cfg.Inbox.Limit, 10)
	assert.Equal(t, cfg.Addr(), "127.0.0.1:9000")
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := fs.NewDir(t, "stash", fs.WithFile("config.toml", `
[logging]
file = "~/logs/stash.log"
`))
	defer dir.Remove()

	cfg, err := config.Load(dir.Join("config.toml"))
	assert.NilError(t, err)
	assert.Equal(t, cfg.Database.Path, filepath.Join(home, ".config", "stash", "stash.db"))
	assert.Equal(t, cfg.Logging.File, filepath.Join(home, "logs", "stash.log"))
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := fs.NewDir(t, "stash", fs.WithFile("config.toml", "[server\nport = "))
	defer dir.Remove()

	_, err := config.Load(dir.Join("config.toml"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		errMsg string
	}{
		{"defaults are valid", func(*config.Config) {}, ""},
		{"port zero", func(c *config.Config) { c.Server.Port = 0 }, "server.port"},
		{"port too large", func(c *config.Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad duration", func(c *config.Config) { c.Server.ReadTimeout = "soon" }, "server.read_timeout"},
		{"bad busy timeout", func(c *config.Config) { c.Database.BusyTimeout = "5" }, "database.busy_timeout"},
		{"empty db path", func(c *config.Config) { c.Database.Path = "" }, "database.path"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"log level case", func(c *config.Config) { c.Logging.Level = "WARN" }, ""},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"empty user header", func(c *config.Config) { c.Auth.UserHeader = " " }, "auth.user_header"},
		{"inbox limit", func(c *config.Config) { c.Inbox.Limit = 0 }, "inbox.limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NilError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, config.ExpandHome("~"), home)
	assert.Equal(t, config.ExpandHome("~/a/b"), filepath.Join(home, "a", "b"))
	assert.Equal(t, config.ExpandHome("/abs/~/x"), "/abs/~/x")
	assert.Equal(t, config.ExpandHome("~other/x"), "~other/x")
}
