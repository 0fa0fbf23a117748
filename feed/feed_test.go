package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"spt-installer/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const announcementJSON = `{
  "content": "Welcome",
  "latest_version": "1.3.0",
  "download_url": "https://example.invalid/installer.exe",
  "server_versions": [
    {"version": "4.0.7", "server_zip": "SPT-4.0.7.zip", "download_url": "https://example.invalid/s.zip"}
  ],
  "mod_versions": [
    {"name": "Realism-1.5", "zip_name": "Realism-1.5.zip", "download_url": "https://example.invalid/r.zip"},
    {"name": "Fika-1.2.3", "zip_name": "Fika-1.2.3.zip", "download_url": "https://example.invalid/f.zip"}
  ]
}`

func TestFetchAnnouncement(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(announcementJSON))
	}))
	defer srv.Close()

	c, err := NewClient(config.Config{AnnouncementURL: srv.URL, UserAgent: "test-agent", HTTPTimeout: time.Second})
	require.NoError(t, err)

	a, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, "Welcome", a.Content)
	require.Len(t, a.ServerVersions, 1)
	assert.Equal(t, "SPT-4.0.7.zip", a.ServerVersions[0].ServerZip)

	fika, ok := a.FindFika()
	require.True(t, ok)
	assert.Equal(t, "Fika-1.2.3.zip", fika.ZipName)

	s, ok := a.FindServer("4.0.7")
	require.True(t, ok)
	assert.Equal(t, "https://example.invalid/s.zip", s.DownloadURL)
}

func TestFetchFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient(config.Config{AnnouncementURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(config.Config{})
	assert.Error(t, err)
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		current, latest string
		want            bool
	}{
		{"1.2.0", "1.3.0", true},
		{"1.2.0", "1.2.0", false},
		{"1.10.0", "1.9.0", false},
		{"v1.2", "1.2.1", true},
		{"dev", "1.0", true},
		{"1.0", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.current+"->"+tt.latest, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNewer(tt.current, tt.latest))
		})
	}
}

func TestCheckUpdate(t *testing.T) {
	a := &Announcement{LatestVersion: "2.0.0", DownloadURL: "https://example.invalid/x.exe"}
	info := a.CheckUpdate("1.2.0")
	assert.True(t, info.Available)
	assert.Equal(t, "SPT-Installer-2.0.0.exe", InstallerFileName(info.Latest))

	noURL := &Announcement{LatestVersion: "2.0.0"}
	assert.False(t, noURL.CheckUpdate("1.2.0").Available)
}

func TestDownload(t *testing.T) {
	payload := []byte("zip-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "mods", "Fika.zip")
	var last int64
	err := NewDownloader("test", time.Minute).Download(context.Background(), srv.URL+"/Fika.zip", dst, func(done, _ int64) {
		last = done
	})
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, int64(len(payload)), last)
	assert.NoFileExists(t, dst+".part")
}

func TestDownloadFailureRemovesPartial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "x.zip")
	err := NewDownloader("test", time.Minute).Download(context.Background(), srv.URL+"/x.zip", dst, nil)
	require.Error(t, err)
	assert.NoFileExists(t, dst)
	assert.NoFileExists(t, dst+".part")
}

func TestSafeFileName(t *testing.T) {
	_, err := SafeFileName("Fika-1.2.3.zip")
	assert.NoError(t, err)

	for _, bad := range []string{"", "../x.zip", "dir/x.zip", ".."} {
		_, err := SafeFileName(bad)
		assert.ErrorIs(t, err, ErrUnsafeFileName, bad)
	}
}
