package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"treepilot/config"
	"treepilot/detail"
	"treepilot/logging"
	"treepilot/metrics"
	"treepilot/source"
)

// app is the state shared by every command: flags, config and the logger.
type app struct {
	configPath string
	dataFile   string
	serverURL  string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

// Command annotations read by app.setup.
const (
	// annotateNoConfig skips config loading for commands that work on plain files.
	annotateNoConfig = "noconfig"
	// annotateQuietLogs sends logs to the configured log file, or nowhere, for
	// commands that own the terminal.
	annotateQuietLogs = "quietlogs"
)

func (a *app) setup(cmd *cobra.Command) error {
	if _, ok := cmd.Annotations[annotateNoConfig]; ok {
		a.logger = zap.NewNop()
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dataFile != "" {
		cfg.DataFile, cfg.ServerURL = a.dataFile, ""
	}
	if a.serverURL != "" {
		cfg.ServerURL = a.serverURL
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	_, quiet := cmd.Annotations[annotateQuietLogs]
	switch {
	case quiet && cfg.Log.File != "":
		a.logger, err = logging.ToFile(cfg.Log.File, cfg.Log.Level)
	case quiet:
		a.logger = zap.NewNop()
	default:
		a.logger, err = logging.New(cfg.Log.Level, cfg.Log.Development)
	}
	if err != nil {
		return err
	}
	a.logger.Debug("configuration loaded", zap.Strings("sources", cfg.Sources))
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// provider opens the configured data source. store is nil for a remote source.
func (a *app) provider(m *metrics.Collector) (p source.Provider, store *source.FileStore, err error) {
	if a.cfg.Remote() {
		c, err := source.NewClient(a.cfg.ServerURL, a.cfg.Client, a.logger, m)
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	}
	store, err = source.Open(a.cfg.DataFile, a.logger, m)
	if err != nil {
		return nil, nil, err
	}
	return store, store, nil
}

// watch reloads the store in the background when watching is enabled and
// calls onReload after every successful reload.
func (a *app) watch(ctx context.Context, store *source.FileStore, cache *detail.Cache, onReload func()) {
	if !a.cfg.Watch || store == nil {
		return
	}
	go func() {
		err := store.Watch(ctx, a.cfg.WatchDebounce, func(err error) {
			if err != nil {
				a.logger.Warn("family file reload failed", zap.Error(err))
				return
			}
			if cache != nil {
				cache.Invalidate()
			}
			if onReload != nil {
				onReload()
			}
		})
		if err != nil {
			a.logger.Error("file watch stopped", zap.Error(err))
		}
	}()
}

func requireID(args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("expected exactly one person id")
	}
	return args[0], nil
}
