package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"spt-installer/config"
	"spt-installer/db"
	"spt-installer/feed"
	"spt-installer/fika"
	"spt-installer/installer"
	"spt-installer/logger"
	"spt-installer/manifest"
	"spt-installer/mods"
	"spt-installer/process"
	"spt-installer/ui"

	"go.uber.org/zap"
)

// app bundles the services every command needs.
type app struct {
	cfg       config.Config
	state     *config.State
	history   *db.Store
	store     *manifest.Store
	mods      *mods.Manager
	installer *installer.Installer
	coord     *process.Coordinator
	fika      *fika.Manager
	prompt    *ui.Prompter
}

// bootstrap handles shared initialization logic for commands.
func bootstrap() (*app, error) {
	dir, err := resolveBaseDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if assumeYes {
		cfg.NonInteractive = true
	}

	state, err := config.LoadState(cfg.StateFile)
	if err != nil {
		logger.Log.Warnw("Ignoring unreadable state file", zap.Error(err))
	}

	history, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	logger.Log.Infow("Database initialized", zap.String("path", cfg.DatabasePath))

	prompt := &ui.Prompter{NonInteractive: cfg.NonInteractive}
	store := manifest.NewStore(cfg.ManifestFile)
	modMgr := mods.NewManager(cfg, store, history)
	coord := process.NewCoordinator(process.NewController(), process.ExecStarter{}, func(q string) (bool, error) {
		return prompt.Confirm(q, true)
	})

	return &app{
		cfg:       cfg,
		state:     state,
		history:   history,
		store:     store,
		mods:      modMgr,
		installer: installer.New(cfg, store, history),
		coord:     coord,
		fika:      fika.NewManager(cfg, store, modMgr, history, coord),
		prompt:    prompt,
	}, nil
}

func resolveBaseDir() (string, error) {
	if baseDir != "" {
		return baseDir, nil
	}
	if env := os.Getenv("SPT_BASE_DIR"); env != "" {
		return env, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return ".", nil
	}
	return filepath.Dir(exe), nil
}

func (a *app) Close() {
	if err := a.history.Close(); err != nil {
		logger.Log.Warnw("Failed to close database", zap.Error(err))
	}
}

// root returns the selected installation root.
func (a *app) root() (string, error) {
	if !a.state.HasInstallPath() {
		return "", installer.ErrPathNotSet
	}
	return a.state.InstallPath, nil
}

func (a *app) layout() (config.Layout, error) {
	root, err := a.root()
	if err != nil {
		return config.Layout{}, err
	}
	return a.cfg.Layout(root), nil
}

func (a *app) announcement(ctx context.Context) (*feed.Announcement, error) {
	client, err := feed.NewClient(a.cfg)
	if err != nil {
		return nil, err
	}
	return client.Fetch(ctx)
}

func (a *app) downloader() *feed.Downloader {
	return feed.NewDownloader(a.cfg.UserAgent, a.cfg.DownloadTimeout)
}

// withApp runs fn with a bootstrapped app and closes it afterwards.
func withApp(fn func(a *app) error) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
