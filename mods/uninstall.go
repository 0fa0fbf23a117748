package mods

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"spt-installer/config"
	"spt-installer/db"
	"spt-installer/logger"
	"spt-installer/manifest"

	"go.uber.org/zap"
)

// UninstallResult counts what a removal did. Errors holds per-item failures that did not stop the batch.
type UninstallResult struct {
	Deleted     int
	Skipped     int
	DirsRemoved int
	Errors      []error
}

func (r *UninstallResult) fail(err error) {
	r.Errors = append(r.Errors, err)
}

// Summary is a one-line description for logs and history.
func (r *UninstallResult) Summary() string {
	return fmt.Sprintf("deleted %d, skipped %d, dirs removed %d, errors %d", r.Deleted, r.Skipped, r.DirsRemoved, len(r.Errors))
}

// Uninstall deletes the files recorded for name, then its recorded directories that are empty, then the record.
// The record is dropped even when some deletions failed.
func (m *Manager) Uninstall(root, name string) (*UninstallResult, error) {
	man, ok := m.store.Load(root)
	if !ok {
		return nil, manifest.ErrNotInstalled
	}
	rec, ok := man.Mods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModNotFound, name)
	}

	log := logger.Log.With(zap.String("mod", name), zap.String("root", root))
	res := &UninstallResult{}

	for _, rel := range rec.Files {
		target, err := resolve(root, rel)
		if err != nil {
			res.Skipped++
			res.fail(err)
			continue
		}
		info, err := os.Lstat(target)
		if errors.Is(err, os.ErrNotExist) {
			res.Skipped++
			continue
		}
		if err == nil && info.IsDir() {
			res.Skipped++
			continue
		}
		if err == nil {
			err = os.Remove(target)
		}
		if err != nil {
			res.Skipped++
			res.fail(fmt.Errorf("failed to delete %s: %w", rel, err))
			log.Warnw("Failed to delete mod file", zap.String("file", rel), zap.Error(err))
			continue
		}
		res.Deleted++
	}

	for _, rel := range deepestFirst(rec.Directories) {
		target, err := resolve(root, rel)
		if err != nil {
			res.fail(err)
			continue
		}
		removed, err := removeIfEmpty(target)
		if err != nil {
			res.fail(fmt.Errorf("failed to remove directory %s: %w", rel, err))
			continue
		}
		if removed {
			res.DirsRemoved++
		}
	}

	if err := m.store.RemoveModRecord(root, name); err != nil {
		return res, fmt.Errorf("files removed but manifest could not be updated: %w", err)
	}

	if err := m.history.Record(root, db.EventModUninstall, name, rec.Version, res.Summary()); err != nil {
		log.Warnw("Failed to record history", zap.Error(err))
	}
	log.Infow("Mod uninstalled", zap.Int("deleted", res.Deleted), zap.Int("skipped", res.Skipped), zap.Int("errors", len(res.Errors)))
	return res, nil
}

// UninstallAll empties the server mods directory and the plugin directory except the protected base-game folder,
// then clears every mod record. Individual records are not consulted.
func (m *Manager) UninstallAll(root string) (*UninstallResult, error) {
	layout := m.cfg.Layout(root)
	if !isDir(layout.SPTDir) {
		return nil, ErrNoGameDir
	}

	res := &UninstallResult{}
	removeChildren(layout.ServerModsDir, nil, res)
	removeChildren(layout.PluginsDir, func(name string) bool {
		return strings.EqualFold(name, config.ProtectedPluginDir)
	}, res)

	if err := m.store.ClearMods(root); err != nil && !errors.Is(err, manifest.ErrNotInstalled) {
		return res, fmt.Errorf("failed to clear mod records: %w", err)
	}

	if err := m.history.Record(root, db.EventModsCleared, "", "", res.Summary()); err != nil {
		logger.Log.Warnw("Failed to record history", zap.Error(err))
	}
	logger.Log.Infow("All mods removed", zap.String("root", root), zap.Int("deleted", res.Deleted), zap.Int("errors", len(res.Errors)))
	return res, nil
}

func removeChildren(dir string, keep func(string) bool, res *UninstallResult) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		res.fail(fmt.Errorf("failed to read %s: %w", dir, err))
		return
	}
	for _, e := range entries {
		if keep != nil && keep(e.Name()) {
			res.Skipped++
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			res.fail(fmt.Errorf("failed to remove %s: %w", p, err))
			logger.Log.Warnw("Failed to remove mod item", zap.String("path", p), zap.Error(err))
			continue
		}
		res.Deleted++
	}
}

// resolve turns a recorded slash path into an absolute path that cannot leave root.
func resolve(root, rel string) (string, error) {
	native := filepath.FromSlash(rel)
	if !filepath.IsLocal(native) {
		return "", fmt.Errorf("refusing to touch non-local path %q", rel)
	}
	return filepath.Join(root, native), nil
}

// deepestFirst orders directories so children come before their parents.
func deepestFirst(dirs []string) []string {
	out := append([]string(nil), dirs...)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := strings.Count(out[i], "/"), strings.Count(out[j], "/")
		if di != dj {
			return di > dj
		}
		return out[i] > out[j]
	})
	return out
}

func removeIfEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	info, err := f.Stat()
	if err != nil || !info.IsDir() {
		_ = f.Close()
		return false, err
	}
	_, err = f.Readdirnames(1)
	_ = f.Close()
	if err != io.EOF {
		// not empty, or unreadable
		return false, nil
	}
	if err := os.Remove(dir); err != nil {
		return false, err
	}
	return true, nil
}
