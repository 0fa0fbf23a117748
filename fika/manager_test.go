package fika

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"spt-installer/config"
	"spt-installer/db"
	"spt-installer/feed"
	"spt-installer/manifest"
	"spt-installer/mods"
	"spt-installer/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const fikaCfg = `## Settings file
[Network]

## Force IP
Force IP = 

Force Bind IP = 

[Other]
Force IP = untouched
`

type stubCloser struct {
	calls int
	err   error
}

func (s *stubCloser) Close(bool) (*process.CloseReport, error) {
	s.calls++
	return &process.CloseReport{}, s.err
}

// filesAtCloseCloser records whether the mod files existed when Close was called.
type filesAtCloseCloser struct {
	stubCloser
	check      func() bool
	filesAtRun []bool
}

func (c *filesAtCloseCloser) Close(confirm bool) (*process.CloseReport, error) {
	c.filesAtRun = append(c.filesAtRun, c.check())
	return c.stubCloser.Close(confirm)
}

type fixture struct {
	root    string
	layout  config.Layout
	cfg     config.Config
	history *db.Store
	closer  *stubCloser
	mgr     *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	cfg := config.Config{
		TargetSubdir: "SPT",
		ManifestFile: manifest.DefaultFileName,
		ModsDir:      filepath.Join(base, "resources", "mods"),
	}
	root := filepath.Join(base, "game")
	l := cfg.Layout(root)

	require.NoError(t, os.MkdirAll(filepath.Dir(l.LauncherConfig), 0755))
	require.NoError(t, os.WriteFile(l.ServerExe, []byte("exe"), 0644))
	require.NoError(t, os.WriteFile(l.LauncherConfig, []byte(`{"IsDevMode": false, "Server": {"Name": "SPT", "Url": "https://127.0.0.1:6969"}}`), 0644))
	require.NoError(t, os.MkdirAll(filepath.Dir(l.HTTPConfig), 0755))
	require.NoError(t, os.WriteFile(l.HTTPConfig, []byte(`{"ip": "127.0.0.1", "port": 6969, "backendIp": "127.0.0.1"}`), 0644))

	store := manifest.NewStore(cfg.ManifestFile)
	_, err := store.Create(root, manifest.VersionInfo{Version: "4.0.6"})
	require.NoError(t, err)

	history, err := db.Open(filepath.Join(base, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = history.Close() })

	closer := &stubCloser{}
	mgr := NewManager(cfg, store, mods.NewManager(cfg, store, history), history, closer)
	return &fixture{root: root, layout: l, cfg: cfg, history: history, closer: closer, mgr: mgr}
}

func (f *fixture) installFiles(t *testing.T, withConfig bool) {
	t.Helper()
	require.NoError(t, os.MkdirAll(f.layout.FikaServerDir, 0755))
	require.NoError(t, os.MkdirAll(f.layout.FikaClientDir, 0755))
	if withConfig {
		require.NoError(t, os.MkdirAll(filepath.Dir(f.layout.FikaConfig), 0755))
		require.NoError(t, os.WriteFile(f.layout.FikaConfig, []byte(fikaCfg), 0644))
	}
}

func readJSON(t *testing.T, path string) gjson.Result {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return gjson.ParseBytes(raw)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	st, err := f.mgr.Status(f.root)
	require.NoError(t, err)
	assert.False(t, st.Installed)
	assert.Contains(t, st.String(), "not installed")

	f.installFiles(t, false)
	assert.True(t, f.mgr.FilesInstalled(f.root))
	assert.False(t, f.mgr.IsInstalled(f.root))

	f.installFiles(t, true)
	st, err = f.mgr.Status(f.root)
	require.NoError(t, err)
	assert.Equal(t, "installed, not configured", st.String())

	require.NoError(t, f.mgr.Host(f.root, "1.2.3.4"))
	st, err = f.mgr.Status(f.root)
	require.NoError(t, err)
	assert.Equal(t, "host (IP: 1.2.3.4)", st.String())
}

func TestHost(t *testing.T) {
	f := newFixture(t)
	f.installFiles(t, true)

	require.NoError(t, f.mgr.Host(f.root, "203.0.113.7"))
	assert.Equal(t, 1, f.closer.calls)

	launcher := readJSON(t, f.layout.LauncherConfig)
	assert.Equal(t, "true", launcher.Get("IsDevMode").String())
	assert.Equal(t, "https://127.0.0.1:6969", launcher.Get("Server.Url").String())
	assert.Equal(t, "SPT", launcher.Get("Server.Name").String())

	http := readJSON(t, f.layout.HTTPConfig)
	assert.Equal(t, "0.0.0.0", http.Get("ip").String())
	assert.Equal(t, "203.0.113.7", http.Get("backendIp").String())
	assert.Equal(t, int64(6969), http.Get("port").Int())

	raw, err := os.ReadFile(f.layout.FikaConfig)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[Network]\n\n## Force IP\nForce IP = 203.0.113.7\n\nForce Bind IP = 0.0.0.0\n")
	assert.Contains(t, string(raw), "Force IP = untouched")

	host, my := f.mgr.LastAddresses(f.root)
	assert.Equal(t, "203.0.113.7", host)
	assert.Empty(t, my)
}

func TestJoin(t *testing.T) {
	f := newFixture(t)
	f.installFiles(t, true)

	require.NoError(t, f.mgr.Join(f.root, "198.51.100.2", "203.0.113.9"))

	launcher := readJSON(t, f.layout.LauncherConfig)
	assert.Equal(t, "https://198.51.100.2:6969", launcher.Get("Server.Url").String())

	http := readJSON(t, f.layout.HTTPConfig)
	assert.Equal(t, "0.0.0.0", http.Get("ip").String())
	assert.Equal(t, "0.0.0.0", http.Get("backendIp").String())

	st, err := f.mgr.Status(f.root)
	require.NoError(t, err)
	assert.Equal(t, db.ModeClient, st.Mode)
	assert.Equal(t, "client (host: 198.51.100.2, me: 203.0.113.9)", st.String())
}

func TestJoinSkipsMissingHTTPConfig(t *testing.T) {
	f := newFixture(t)
	f.installFiles(t, true)
	require.NoError(t, os.Remove(f.layout.HTTPConfig))

	require.NoError(t, f.mgr.Join(f.root, "198.51.100.2", "203.0.113.9"))
	assert.NoFileExists(t, f.layout.HTTPConfig)
}

func TestHostRequiresGeneratedConfig(t *testing.T) {
	f := newFixture(t)
	f.installFiles(t, false)

	err := f.mgr.Host(f.root, "1.2.3.4")
	assert.ErrorIs(t, err, ErrConfigMissing)

	launcher := readJSON(t, f.layout.LauncherConfig)
	assert.Equal(t, "https://127.0.0.1:6969", launcher.Get("Server.Url").String())
}

func TestHostStopsWhenCloseDeclined(t *testing.T) {
	f := newFixture(t)
	f.installFiles(t, true)
	f.closer.err = process.ErrCancelled

	err := f.mgr.Host(f.root, "1.2.3.4")
	assert.ErrorIs(t, err, process.ErrCancelled)
	saved, err := f.history.GetMultiplayer(f.root)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestHostStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)
	f.installFiles(t, true)
	require.NoError(t, os.WriteFile(f.layout.LauncherConfig, []byte("not json"), 0644))

	err := f.mgr.Host(f.root, "1.2.3.4")
	require.Error(t, err)

	raw, err := os.ReadFile(f.layout.FikaConfig)
	require.NoError(t, err)
	assert.Equal(t, fikaCfg, string(raw))
}

func TestRestoreSolo(t *testing.T) {
	f := newFixture(t)
	f.installFiles(t, true)
	require.NoError(t, f.mgr.Host(f.root, "1.2.3.4"))

	require.NoError(t, f.mgr.RestoreSolo(f.root, false))

	launcher := readJSON(t, f.layout.LauncherConfig)
	assert.Equal(t, "https://127.0.0.1:6969", launcher.Get("Server.Url").String())
	http := readJSON(t, f.layout.HTTPConfig)
	assert.Equal(t, "127.0.0.1", http.Get("ip").String())
	assert.Equal(t, "127.0.0.1", http.Get("backendIp").String())

	saved, err := f.history.GetMultiplayer(f.root)
	require.NoError(t, err)
	assert.Nil(t, saved)
	assert.DirExists(t, f.layout.FikaClientDir)

	require.NoError(t, f.mgr.RestoreSolo(f.root, true))
	assert.NoDirExists(t, f.layout.FikaClientDir)
	assert.NoDirExists(t, f.layout.FikaServerDir)
	assert.FileExists(t, f.layout.FikaConfig)
}

func TestMissingGameDir(t *testing.T) {
	f := newFixture(t)
	other := t.TempDir()
	assert.ErrorIs(t, f.mgr.Host(other, "1.2.3.4"), ErrNoGameDir)
	assert.ErrorIs(t, f.mgr.RestoreSolo(other, false), ErrNoGameDir)
	assert.ErrorIs(t, f.mgr.Join(f.root, "", "x"), ErrMissingAddress)
}

type zipDownloader struct {
	calls int
	err   error
}

func (d *zipDownloader) Download(_ context.Context, _, dst string, _ feed.ProgressCallback) error {
	d.calls++
	if d.err != nil {
		return d.err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(out)
	for _, name := range []string{"SPT/user/mods/fika-server/package.json", "BepInEx/plugins/Fika/Fika.Core.dll"} {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte("x")); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return out.Close()
}

func TestEnsureInstalled(t *testing.T) {
	f := newFixture(t)
	ann := &feed.Announcement{ModVersions: []feed.ModVersion{
		{Name: "Other-1.0", ZipName: "other.zip", DownloadURL: "http://x/other.zip"},
		{Name: "Fika-1.2.3", ZipName: "fika.zip", DownloadURL: "http://x/fika.zip"},
	}}
	dl := &zipDownloader{}

	require.NoError(t, f.mgr.EnsureInstalled(context.Background(), f.root, ann, dl, nil))
	assert.Equal(t, 1, dl.calls)
	assert.True(t, f.mgr.FilesInstalled(f.root))

	m, ok := manifest.NewStore(f.cfg.ManifestFile).Load(f.root)
	require.True(t, ok)
	rec, ok := m.Mods["Fika-1.2.3"]
	require.True(t, ok)
	assert.Equal(t, "1.2.3", rec.Version)
	assert.Equal(t, "4.0.6", rec.GameVersion)
	assert.Len(t, rec.Files, 2)

	require.NoError(t, f.mgr.EnsureInstalled(context.Background(), f.root, ann, dl, nil))
	assert.Equal(t, 1, dl.calls)

	require.NoError(t, f.mgr.RemoveFiles(f.root))
	assert.False(t, f.mgr.FilesInstalled(f.root))
	m, ok = manifest.NewStore(f.cfg.ManifestFile).Load(f.root)
	require.True(t, ok)
	assert.NotContains(t, m.Mods, "Fika-1.2.3")
}

func TestEnsureInstalledClosesGameFirst(t *testing.T) {
	f := newFixture(t)
	closer := &filesAtCloseCloser{check: func() bool { return f.mgr.FilesInstalled(f.root) }}
	store := manifest.NewStore(f.cfg.ManifestFile)
	f.mgr = NewManager(f.cfg, store, mods.NewManager(f.cfg, store, f.history), f.history, closer)
	ann := &feed.Announcement{ModVersions: []feed.ModVersion{{Name: "Fika-1.2.3", ZipName: "fika.zip", DownloadURL: "http://x/fika.zip"}}}

	require.NoError(t, f.mgr.EnsureInstalled(context.Background(), f.root, ann, &zipDownloader{}, nil))
	assert.Equal(t, 1, closer.calls)
	assert.Equal(t, []bool{false}, closer.filesAtRun)
	assert.True(t, f.mgr.FilesInstalled(f.root))

	require.NoError(t, f.mgr.EnsureInstalled(context.Background(), f.root, ann, &zipDownloader{}, nil))
	assert.Equal(t, 1, closer.calls, "already installed, nothing to close")
}

func TestEnsureInstalledCloseDeclined(t *testing.T) {
	f := newFixture(t)
	f.closer.err = process.ErrCancelled
	ann := &feed.Announcement{ModVersions: []feed.ModVersion{{Name: "Fika-1.2.3", ZipName: "fika.zip", DownloadURL: "http://x/fika.zip"}}}
	dl := &zipDownloader{}

	err := f.mgr.EnsureInstalled(context.Background(), f.root, ann, dl, nil)
	assert.ErrorIs(t, err, process.ErrCancelled)
	assert.Equal(t, 0, dl.calls)
	assert.False(t, f.mgr.FilesInstalled(f.root))
}

func TestEnsureInstalledFailures(t *testing.T) {
	f := newFixture(t)

	err := f.mgr.EnsureInstalled(context.Background(), f.root, &feed.Announcement{}, &zipDownloader{}, nil)
	assert.ErrorIs(t, err, ErrModUnavailable)

	ann := &feed.Announcement{ModVersions: []feed.ModVersion{{Name: "联机模组", ZipName: "fika.zip", DownloadURL: "http://x"}}}
	boom := errors.New("boom")
	err = f.mgr.EnsureInstalled(context.Background(), f.root, ann, &zipDownloader{err: boom}, nil)
	assert.ErrorIs(t, err, boom)
}
