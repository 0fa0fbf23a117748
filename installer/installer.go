// Package installer prepares installation roots, unpacks the game and manages server versions.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"spt-installer/archive"
	"spt-installer/config"
	"spt-installer/db"
	"spt-installer/logger"
	"spt-installer/manifest"

	"go.uber.org/zap"
)

var (
	ErrPathNotSet        = errors.New("no installation path selected")
	ErrInvalidDirName    = errors.New("folder name must not contain Chinese characters")
	ErrNotDirectory      = errors.New("target path is not a folder")
	ErrNotEmpty          = errors.New("target folder must be completely empty")
	ErrAlreadyInstalled  = errors.New("a game version is already installed here")
	ErrArchiveMissing    = errors.New("archive not found")
	ErrNoGameDir         = errors.New("game directory not found, run the automatic install first")
	ErrSameServerVersion = errors.New("already on this server version")
	ErrNotAnInstallation = errors.New("refusing to delete a folder that is not a game installation")
)

// StageFunc reports extraction progress for a named install stage.
type StageFunc func(stage string, done, total int)

// Installer performs whole-installation operations.
type Installer struct {
	cfg     config.Config
	store   *manifest.Store
	history *db.Store
}

// New returns an Installer. history may be nil.
func New(cfg config.Config, store *manifest.Store, history *db.Store) *Installer {
	return &Installer{cfg: cfg, store: store, history: history}
}

// Selection is the outcome of validating a target path.
type Selection struct {
	Path     string
	Existing *manifest.Manifest
}

// ValidateTarget checks that path can be used as an installation root.
// A folder holding a manifest is accepted as an existing installation. Otherwise the folder must be empty
// (it is created if missing) and its own name must not contain CJK ideographs.
func (i *Installer) ValidateTarget(path string) (*Selection, error) {
	if path == "" {
		return nil, ErrPathNotSet
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	if ContainsCJK(filepath.Base(abs)) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDirName, filepath.Base(abs))
	}

	if m, ok := i.store.Load(abs); ok {
		return &Selection{Path: abs, Existing: m}, nil
	}

	if err := ensureEmptyDir(abs); err != nil {
		return nil, err
	}
	return &Selection{Path: abs}, nil
}

// ContainsCJK reports whether s has a character in the CJK Unified Ideographs block.
func ContainsCJK(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}

func ensureEmptyDir(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}
	empty, err := isEmptyDir(path)
	if err != nil {
		return err
	}
	if !empty {
		return fmt.Errorf("%w: %s", ErrNotEmpty, path)
	}
	return nil
}

func isEmptyDir(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	_, err = f.Readdirnames(1)
	if err == io.EOF {
		return true, nil
	}
	return false, err
}

// AutoInstall unpacks the client and server archives of v into an empty root, copies the required
// resources and writes the manifest. A manifest write failure is logged but does not fail the install.
func (i *Installer) AutoInstall(ctx context.Context, root string, v config.GameVersion, progress StageFunc) (*manifest.Manifest, error) {
	if root == "" {
		return nil, ErrPathNotSet
	}
	if m, ok := i.store.Load(root); ok {
		return m, fmt.Errorf("%w: %s", ErrAlreadyInstalled, m.Version)
	}
	if err := ensureEmptyDir(root); err != nil {
		return nil, err
	}

	clientZip := filepath.Join(i.cfg.ClientDir, v.ClientZip)
	serverZip := filepath.Join(i.cfg.ServerDir, v.ServerZip)
	for _, p := range []string{clientZip, serverZip} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrArchiveMissing, p)
		}
	}

	log := logger.Log.With(zap.String("root", root), zap.String("version", v.Label))
	log.Infow("Automatic install started")

	stage := func(name string) archive.ProgressFunc {
		if progress == nil {
			return nil
		}
		return func(done, total int) { progress(name, done, total) }
	}

	if _, err := archive.Extract(ctx, clientZip, root, archive.Options{Progress: stage("client")}); err != nil {
		return nil, fmt.Errorf("client extraction failed: %w", err)
	}
	if _, err := archive.Extract(ctx, serverZip, root, archive.Options{StripCommonRoot: true, Progress: stage("server")}); err != nil {
		return nil, fmt.Errorf("server extraction failed: %w", err)
	}
	if err := i.copyRequired(root); err != nil {
		return nil, err
	}

	m, err := i.store.Create(root, manifest.VersionInfo{Version: v.Label, ServerZip: v.ServerZip, ClientZip: v.ClientZip})
	if err != nil {
		log.Warnw("Install finished but the manifest could not be written", zap.Error(err))
		m = nil
	}

	if err := i.history.Record(root, db.EventInstall, v.Label, v.Label, v.ServerZip); err != nil {
		log.Warnw("Failed to record history", zap.Error(err))
	}
	log.Infow("Automatic install finished")
	return m, nil
}

func (i *Installer) copyRequired(root string) error {
	src := i.cfg.RequiredDir
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		logger.Log.Infow("No required resources to copy", zap.String("dir", src))
		return nil
	}
	dst := filepath.Join(root, "required")
	if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
		return fmt.Errorf("failed to copy required resources: %w", err)
	}
	return nil
}

// UninstallGame deletes the whole installation root. Callers must stop the game first.
func (i *Installer) UninstallGame(root string) error {
	if root == "" {
		return ErrPathNotSet
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if filepath.Dir(abs) == abs {
		return fmt.Errorf("%w: %s", ErrNotAnInstallation, abs)
	}
	_, hasManifest := i.store.Load(abs)
	if !hasManifest && !isDir(i.cfg.Layout(abs).SPTDir) {
		return fmt.Errorf("%w: %s", ErrNotAnInstallation, abs)
	}

	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("failed to delete %s: %w", abs, err)
	}
	if err := i.history.Record(abs, db.EventGameUninstall, "", "", ""); err != nil {
		logger.Log.Warnw("Failed to record history", zap.Error(err))
	}
	logger.Log.Infow("Game uninstalled", zap.String("root", abs))
	return nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
