package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmsync/internal/config"
	"github.com/nikbrunner/bmsync/internal/logger"
	"github.com/nikbrunner/bmsync/internal/session"
)

type rootOptions struct {
	ConfigPath string
	LogLevel   string

	opts Options
	// shared is the session of a running `bm shell`. Commands executed inside
	// the shell reuse it and leave writing to the synchronizer.
	shared *session.Deps
}

func addRootArgs(cmd *cobra.Command, ro *rootOptions) {
	cmd.PersistentFlags().StringVar(&ro.ConfigPath, "config", "",
		"Config file (default ~/.config/bm/config.yaml).")
	cmd.PersistentFlags().StringVar(&ro.LogLevel, "log-level", "",
		"Override log.level: debug, info, warn or error.")
}

func (ro *rootOptions) load() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(ro.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if ro.LogLevel != "" {
		level = ro.LogLevel
	}
	log, err := logger.New(level, cfg.Log.Pretty)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// withSession opens the collection, runs fn and writes whatever fn changed
// before closing.
func (ro *rootOptions) withSession(cmd *cobra.Command, fn func(ctx context.Context, d *session.Deps) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if ro.shared != nil {
		return fn(ctx, ro.shared)
	}

	cfg, log, err := ro.load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	d, err := session.Open(ctx, cfg, log, session.Options{Clipboard: ro.opts.Clipboard})
	if err != nil {
		return err
	}

	runErr := fn(ctx, d)
	commitErr := d.Commit(ctx)
	closeErr := d.Close()
	return errors.Join(runErr, commitErr, closeErr)
}
