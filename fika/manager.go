// Package fika switches an installation between solo play and the Fika multiplayer mod.
package fika

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"spt-installer/archive"
	"spt-installer/config"
	"spt-installer/db"
	"spt-installer/feed"
	"spt-installer/logger"
	"spt-installer/manifest"
	"spt-installer/mods"
	"spt-installer/process"

	"go.uber.org/zap"
)

var (
	ErrNoGameDir         = errors.New("game directory not found, run the automatic install first")
	ErrModUnavailable    = errors.New("multiplayer mod is not listed in the announcement feed")
	ErrConfigMissing     = errors.New("multiplayer config not generated yet, start the game once and log in")
	ErrMissingAddress    = errors.New("an IP address is required")
	ErrNothingConfigured = errors.New("multiplayer is not configured")
)

const (
	// Port is the SPT server port the launcher connects to.
	Port = 6969

	networkSection = "Network"
	loopback       = "127.0.0.1"
	anyAddress     = "0.0.0.0"
)

// Closer stops the running game before configuration files are touched.
type Closer interface {
	Close(requireConfirmation bool) (*process.CloseReport, error)
}

// Downloader fetches a URL into a local file.
type Downloader interface {
	Download(ctx context.Context, url, dst string, callback feed.ProgressCallback) error
}

// Manager installs, configures and removes the multiplayer mod.
type Manager struct {
	cfg     config.Config
	store   *manifest.Store
	mods    *mods.Manager
	history *db.Store
	closer  Closer
}

// NewManager returns a Manager. closer may be nil when no process control is wanted.
func NewManager(cfg config.Config, store *manifest.Store, modMgr *mods.Manager, history *db.Store, closer Closer) *Manager {
	return &Manager{cfg: cfg, store: store, mods: modMgr, history: history, closer: closer}
}

func (m *Manager) layout(root string) (config.Layout, error) {
	l := m.cfg.Layout(root)
	if !exists(l.SPTDir) {
		return l, ErrNoGameDir
	}
	return l, nil
}

// FilesInstalled reports whether both halves of the mod are on disk.
func (m *Manager) FilesInstalled(root string) bool {
	l := m.cfg.Layout(root)
	return exists(l.FikaServerDir) && exists(l.FikaClientDir)
}

// IsInstalled reports whether the mod is on disk and the game has generated its config file.
func (m *Manager) IsInstalled(root string) bool {
	return m.FilesInstalled(root) && m.ConfigInitialized(root)
}

// ConfigInitialized reports whether the mod's config file exists. The game writes it on first login.
func (m *Manager) ConfigInitialized(root string) bool {
	return exists(m.cfg.Layout(root).FikaConfig)
}

// EnsureInstalled downloads the mod named in the announcement if needed and installs it through the
// mod manager so it can be uninstalled like any other mod. Running game processes are closed before
// anything is written to the game tree.
func (m *Manager) EnsureInstalled(ctx context.Context, root string, ann *feed.Announcement, dl Downloader, progress feed.ProgressCallback) error {
	if _, err := m.layout(root); err != nil {
		return err
	}
	if m.FilesInstalled(root) {
		return nil
	}
	if ann == nil {
		return ErrModUnavailable
	}
	mod, ok := ann.FindFika()
	if !ok {
		return ErrModUnavailable
	}
	name, err := feed.SafeFileName(mod.ZipName)
	if err != nil {
		return err
	}
	if err := m.closeGame(); err != nil {
		return err
	}

	if err := os.MkdirAll(m.cfg.ModsDir, 0755); err != nil {
		return err
	}
	zipPath := filepath.Join(m.cfg.ModsDir, name)
	if !exists(zipPath) {
		logger.Log.Infow("Downloading multiplayer mod", zap.String("name", mod.Name))
		if err := dl.Download(ctx, mod.DownloadURL, zipPath, progress); err != nil {
			return fmt.Errorf("failed to download %s: %w", mod.Name, err)
		}
	}

	var extractProgress archive.ProgressFunc
	if progress != nil {
		extractProgress = func(done, total int) { progress(int64(done), int64(total)) }
	}
	if _, err := m.mods.Install(ctx, root, mods.Package{Name: mod.Name, Path: zipPath}, extractProgress); err != nil {
		return fmt.Errorf("failed to install %s: %w", mod.Name, err)
	}
	return nil
}

// Status describes the multiplayer state of an installation.
type Status struct {
	Installed bool
	Mode      db.Mode
	HostIP    string
	MyIP      string
}

// String renders the status for menus.
func (s Status) String() string {
	switch {
	case !s.Installed:
		return "not installed (hosting or joining installs it)"
	case s.Mode == db.ModeHost:
		return fmt.Sprintf("host (IP: %s)", s.HostIP)
	case s.Mode == db.ModeClient:
		return fmt.Sprintf("client (host: %s, me: %s)", s.HostIP, s.MyIP)
	default:
		return "installed, not configured"
	}
}

// Status reads the installed state and the last saved mode.
func (m *Manager) Status(root string) (Status, error) {
	st := Status{Installed: m.IsInstalled(root)}
	if !st.Installed {
		return st, nil
	}
	saved, err := m.history.GetMultiplayer(root)
	if err != nil {
		return st, err
	}
	if saved != nil {
		st.Mode, st.HostIP, st.MyIP = saved.Mode, saved.HostIP, saved.MyIP
	}
	return st, nil
}

// LastAddresses returns the addresses saved by the previous Host or Join, for use as prompt defaults.
func (m *Manager) LastAddresses(root string) (hostIP, myIP string) {
	saved, err := m.history.GetMultiplayer(root)
	if err != nil || saved == nil {
		return "", ""
	}
	return saved.HostIP, saved.MyIP
}

func (m *Manager) closeGame() error {
	if m.closer == nil {
		return nil
	}
	_, err := m.closer.Close(true)
	return err
}

func (m *Manager) prepare(root string) (config.Layout, error) {
	l, err := m.layout(root)
	if err != nil {
		return l, err
	}
	if err := m.closeGame(); err != nil {
		return l, err
	}
	if !m.ConfigInitialized(root) {
		return l, ErrConfigMissing
	}
	return l, nil
}

// Host configures this machine as the multiplayer server reachable at publicIP.
func (m *Manager) Host(root, publicIP string) error {
	if publicIP == "" {
		return ErrMissingAddress
	}
	l, err := m.prepare(root)
	if err != nil {
		return err
	}
	steps := []func() error{
		func() error { return writeLauncher(l, loopback) },
		func() error { return writeNetwork(l, publicIP) },
		func() error { return writeHTTP(l, anyAddress, publicIP) },
		func() error { return m.history.SaveMultiplayer(root, db.ModeHost, publicIP, "") },
	}
	if err := runSteps(steps); err != nil {
		return err
	}
	m.recordMode(root, db.ModeHost, publicIP)
	return nil
}

// Join configures this machine as a client of the server at hostIP, announcing itself as myIP.
func (m *Manager) Join(root, hostIP, myIP string) error {
	if hostIP == "" || myIP == "" {
		return ErrMissingAddress
	}
	l, err := m.prepare(root)
	if err != nil {
		return err
	}
	steps := []func() error{
		func() error { return writeLauncher(l, hostIP) },
		func() error { return writeNetwork(l, myIP) },
		func() error { return writeHTTP(l, anyAddress, anyAddress) },
		func() error { return m.history.SaveMultiplayer(root, db.ModeClient, hostIP, myIP) },
	}
	if err := runSteps(steps); err != nil {
		return err
	}
	m.recordMode(root, db.ModeClient, hostIP)
	return nil
}

// RestoreSolo points the launcher and server back at the local machine and forgets the saved mode.
// With removeFiles the mod's folders are deleted as well.
func (m *Manager) RestoreSolo(root string, removeFiles bool) error {
	l, err := m.layout(root)
	if err != nil {
		return err
	}
	if err := m.closeGame(); err != nil {
		return err
	}
	steps := []func() error{
		func() error { return writeLauncher(l, loopback) },
		func() error { return writeHTTP(l, loopback, loopback) },
		func() error { return m.history.ClearMultiplayer(root) },
	}
	if removeFiles {
		steps = append(steps, func() error { return m.RemoveFiles(root) })
	}
	if err := runSteps(steps); err != nil {
		return err
	}
	m.recordMode(root, db.ModeNone, "")
	return nil
}

// RemoveFiles deletes the mod's server and client folders and drops its manifest records.
// The BepInEx config file is kept.
func (m *Manager) RemoveFiles(root string) error {
	l := m.cfg.Layout(root)
	var errs []error
	for _, dir := range []string{l.FikaServerDir, l.FikaClientDir} {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", dir, err))
		}
	}
	if man, ok := m.store.Load(root); ok {
		for name := range man.Mods {
			if !feed.IsFikaName(name) {
				continue
			}
			if err := m.store.RemoveModRecord(root, name); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) recordMode(root string, mode db.Mode, address string) {
	subject := string(mode)
	if subject == "" {
		subject = "solo"
	}
	if err := m.history.Record(root, db.EventModeChange, subject, "", address); err != nil {
		logger.Log.Warnw("Failed to record history", zap.Error(err))
	}
	logger.Log.Infow("Multiplayer mode changed", zap.String("root", root), zap.String("mode", subject))
}

func runSteps(steps []func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
