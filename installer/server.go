package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"spt-installer/archive"
	"spt-installer/db"
	"spt-installer/feed"
	"spt-installer/logger"

	"go.uber.org/zap"
)

// Downloader fetches a URL into a local file.
type Downloader interface {
	Download(ctx context.Context, url, dst string, callback feed.ProgressCallback) error
}

// ServerArchive is a server zip available in the local resource folder.
type ServerArchive struct {
	Name    string
	Path    string
	Version string
	Current bool
}

// ListServers returns the server archives in the resource folder, sorted by name.
// Current marks the archive the manifest at root was installed or switched from.
func (i *Installer) ListServers(root string) ([]ServerArchive, error) {
	entries, err := os.ReadDir(i.cfg.ServerDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list server archives: %w", err)
	}

	current := ""
	if m, ok := i.store.Load(root); ok {
		current = m.ServerZip
	}

	var out []ServerArchive
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".zip") {
			continue
		}
		out = append(out, ServerArchive{
			Name:    e.Name(),
			Path:    filepath.Join(i.cfg.ServerDir, e.Name()),
			Version: ServerVersionFromName(e.Name()),
			Current: e.Name() == current,
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

// ServerVersionFromName extracts "4.0.6" from "SPT-4.0.6-40087-d13d2dd.zip". Names that do not follow
// that pattern yield the stem.
func ServerVersionFromName(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(stem, "-")
	if len(parts) >= 2 && strings.EqualFold(parts[0], "SPT") {
		return parts[1]
	}
	return stem
}

// DownloadServer stores the server archive sv in the resource folder unless it is already there.
// It returns the archive path.
func (i *Installer) DownloadServer(ctx context.Context, dl Downloader, sv feed.ServerVersion, progress feed.ProgressCallback) (string, error) {
	name, err := feed.SafeFileName(sv.ServerZip)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(i.cfg.ServerDir, name)
	if _, err := os.Stat(dst); err == nil {
		logger.Log.Infow("Server archive already present", zap.String("path", dst))
		return dst, nil
	}
	if sv.DownloadURL == "" {
		return "", fmt.Errorf("server %s has no download URL", sv.Version)
	}
	if err := os.MkdirAll(i.cfg.ServerDir, 0755); err != nil {
		return "", err
	}
	if err := dl.Download(ctx, sv.DownloadURL, dst, progress); err != nil {
		return "", fmt.Errorf("failed to download server %s: %w", sv.Version, err)
	}
	logger.Log.Infow("Server archive downloaded", zap.String("path", dst))
	return dst, nil
}

// SwitchServer overlays the chosen server archive onto root and records the new version.
// Choosing the archive the manifest already names returns ErrSameServerVersion.
func (i *Installer) SwitchServer(ctx context.Context, root string, sa ServerArchive, progress StageFunc) error {
	layout := i.cfg.Layout(root)
	if !isDir(layout.SPTDir) {
		return ErrNoGameDir
	}
	m, ok := i.store.Load(root)
	if !ok {
		return ErrNoGameDir
	}
	if sa.Name == m.ServerZip {
		return fmt.Errorf("%w: %s", ErrSameServerVersion, sa.Name)
	}
	if _, err := os.Stat(sa.Path); err != nil {
		return fmt.Errorf("%w: %s", ErrArchiveMissing, sa.Path)
	}

	opts := archive.Options{StripCommonRoot: true}
	if progress != nil {
		opts.Progress = func(done, total int) { progress("server", done, total) }
	}
	if _, err := archive.Extract(ctx, sa.Path, root, opts); err != nil {
		return fmt.Errorf("server extraction failed: %w", err)
	}

	version := ServerVersionFromName(sa.Name)
	if err := i.store.UpdateServerVersion(root, version, sa.Name); err != nil {
		return err
	}
	if err := i.history.Record(root, db.EventServerSwitch, sa.Name, version, m.ServerZip); err != nil {
		logger.Log.Warnw("Failed to record history", zap.Error(err))
	}
	logger.Log.Infow("Server version switched", zap.String("root", root), zap.String("server", sa.Name))
	return nil
}
