package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/stash/internal/config"
	"github.com/nikbrunner/stash/internal/logging"
	"github.com/nikbrunner/stash/internal/reconcile"
	"github.com/nikbrunner/stash/internal/service"
	"github.com/nikbrunner/stash/internal/storage"
)

// app is the state shared by subcommands, filled in by the root command's
// pre-run hook.
type app struct {
	configPath string
	logLevel   string
	user       string

	cfg       *config.Config
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "stash",
		Short: "Bookmark manager with live sidebar counts",
		Long: `stash stores bookmarks in categories and tags and serves them over HTTP.

The web sidebar shows per-category and per-tag bookmark counts that stay
current while you add, edit and delete bookmarks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip initialization for commands that need no config
			switch cmd.Name() {
			case "help", "completion", "version":
				return nil
			}
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logCloser != nil {
				_ = a.logCloser.Close()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to config file (default ~/.config/stash/config.toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level")
	root.PersistentFlags().StringVarP(&a.user, "user", "u", "", "user ID for CLI commands (default auth.default_user)")

	root.AddCommand(
		newServeCmd(a),
		newImportCmd(a),
		newCountsCmd(a),
		newSearchCmd(a),
		newCheckCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init() error {
	path := a.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultFilePath(); err != nil {
			return err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
	}
	a.cfg = cfg

	a.logCloser = logging.Setup(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	}, nil)
	return nil
}

// openService opens the database and returns a service over it. The caller
// closes the returned storage.
func (a *app) openService() (*service.Service, *storage.SQLiteStorage, error) {
	repo, err := storage.NewSQLiteStorage(a.cfg.Database.Path, storage.Options{
		WALMode:     a.cfg.Database.WALMode,
		BusyTimeout: a.cfg.BusyTimeout(),
	})
	if err != nil {
		return nil, nil, err
	}
	return service.New(repo, reconcile.NewRegistry(), a.cfg.Inbox.Limit), repo, nil
}

// userID returns the --user flag or the configured default user.
func (a *app) userID() (string, error) {
	if a.user != "" {
		return a.user, nil
	}
	if a.cfg.Auth.DefaultUser != "" {
		return a.cfg.Auth.DefaultUser, nil
	}
	return "", errors.New("no user: pass --user or set auth.default_user")
}
