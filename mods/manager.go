// Package mods installs mod archives into an installation root and removes exactly what they wrote.
package mods

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"spt-installer/archive"
	"spt-installer/config"
	"spt-installer/db"
	"spt-installer/logger"
	"spt-installer/manifest"

	"go.uber.org/zap"
)

var (
	ErrNoGameDir      = errors.New("game directory not found, run the automatic install first")
	ErrServerMissing  = errors.New("server executable not found, the installation may be incomplete")
	ErrArchiveMissing = errors.New("mod archive not found")
	ErrModNotFound    = errors.New("mod is not recorded as installed")
)

// Package is a mod archive available in the local mods resource directory.
type Package struct {
	Name string // archive file stem
	Path string
}

// Manager ties mod archives, the extractor and the manifest together.
type Manager struct {
	cfg     config.Config
	store   *manifest.Store
	history *db.Store
}

// NewManager returns a Manager. history may be nil.
func NewManager(cfg config.Config, store *manifest.Store, history *db.Store) *Manager {
	return &Manager{cfg: cfg, store: store, history: history}
}

// Discover lists the *.zip archives in the mods resource directory, sorted by file name.
func (m *Manager) Discover() ([]Package, error) {
	entries, err := os.ReadDir(m.cfg.ModsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read mods directory: %w", err)
	}

	var pkgs []Package
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".zip") {
			continue
		}
		pkgs = append(pkgs, Package{
			Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Path: filepath.Join(m.cfg.ModsDir, e.Name()),
		})
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Path < pkgs[j].Path })
	return pkgs, nil
}

// Installed returns the mods recorded in root's manifest.
func (m *Manager) Installed(root string) (map[string]manifest.ModRecord, error) {
	man, ok := m.store.Load(root)
	if !ok {
		return nil, manifest.ErrNotInstalled
	}
	return man.Mods, nil
}

// Install extracts pkg into root without stripping and records the written files.
func (m *Manager) Install(ctx context.Context, root string, pkg Package, progress archive.ProgressFunc) (*manifest.ModRecord, error) {
	layout := m.cfg.Layout(root)
	if !isDir(layout.SPTDir) {
		return nil, ErrNoGameDir
	}
	if _, err := os.Stat(layout.ServerExe); err != nil {
		return nil, ErrServerMissing
	}
	man, ok := m.store.Load(root)
	if !ok {
		return nil, manifest.ErrNotInstalled
	}
	if _, err := os.Stat(pkg.Path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrArchiveMissing, pkg.Path)
	}

	log := logger.Log.With(zap.String("mod", pkg.Name), zap.String("root", root))
	log.Infow("Installing mod")

	res, err := archive.Extract(ctx, pkg.Path, root, archive.Options{Progress: progress})
	if err != nil {
		return nil, fmt.Errorf("failed to extract mod %s: %w", pkg.Name, err)
	}

	dirs := res.CreatedDirs
	if prev, ok := man.Mods[pkg.Name]; ok {
		dirs = mergeDirs(prev.Directories, dirs)
	}
	rec := manifest.ModRecord{
		Files:       res.Files,
		Directories: dirs,
		Version:     VersionToken(pkg.Name),
		GameVersion: man.Version,
	}
	if err := m.store.RecordMod(root, pkg.Name, rec); err != nil {
		return nil, fmt.Errorf("mod extracted but could not be recorded: %w", err)
	}

	if err := m.history.Record(root, db.EventModInstall, pkg.Name, rec.Version, fmt.Sprintf("%d files", len(rec.Files))); err != nil {
		log.Warnw("Failed to record history", zap.Error(err))
	}
	log.Infow("Mod installed", zap.Int("files", len(rec.Files)), zap.String("mod_version", rec.Version))
	return &rec, nil
}

// mergeDirs returns the sorted union of prev and created.
func mergeDirs(prev, created []string) []string {
	seen := make(map[string]bool, len(prev)+len(created))
	out := make([]string, 0, len(prev)+len(created))
	for _, d := range append(append([]string{}, prev...), created...) {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

// VersionToken returns the text after the last '-' or '_' in name, or "" when there is no separator.
// It is a display hint, not a parsed version.
func VersionToken(name string) string {
	idx := strings.LastIndexAny(name, "-_")
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
