package archive

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeZip builds a zip at dir/name. Entries ending in "/" become directory entries.
func writeZip(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w, err := zw.Create(k)
		require.NoError(t, err)
		if k[len(k)-1] != '/' {
			_, err = w.Write([]byte(entries[k]))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return p
}

func TestExtractStripsCommonRoot(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	zipPath := writeZip(t, src, "server.zip", map[string]string{
		"Root/":                  "",
		"Root/SPT.Server.exe":    "exe",
		"Root/SPT_Data/http.txt": "cfg",
	})

	res, err := Extract(context.Background(), zipPath, dest, Options{StripCommonRoot: true})
	require.NoError(t, err)

	assert.Equal(t, "Root", res.StrippedDir)
	assert.ElementsMatch(t, []string{"SPT.Server.exe", "SPT_Data/http.txt"}, res.Files)
	assert.FileExists(t, filepath.Join(dest, "SPT.Server.exe"))
	assert.FileExists(t, filepath.Join(dest, "SPT_Data", "http.txt"))
	assert.NoDirExists(t, filepath.Join(dest, "Root"))
}

func TestExtractMixedRootsUnchanged(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	zipPath := writeZip(t, src, "mixed.zip", map[string]string{
		"A/one.txt": "1",
		"B/two.txt": "2",
	})

	res, err := Extract(context.Background(), zipPath, dest, Options{StripCommonRoot: true})
	require.NoError(t, err)

	assert.Empty(t, res.StrippedDir)
	assert.ElementsMatch(t, []string{"A/one.txt", "B/two.txt"}, res.Files)
	assert.FileExists(t, filepath.Join(dest, "A", "one.txt"))
	assert.FileExists(t, filepath.Join(dest, "B", "two.txt"))
}

func TestExtractNoStripKeepsRoot(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	zipPath := writeZip(t, src, "mod.zip", map[string]string{
		"BepInEx/plugins/Mod/mod.dll": "dll",
	})

	res, err := Extract(context.Background(), zipPath, dest, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"BepInEx/plugins/Mod/mod.dll"}, res.Files)
	assert.Equal(t, []string{"BepInEx", "BepInEx/plugins", "BepInEx/plugins/Mod"}, res.CreatedDirs)
}

func TestExtractSkipsTraversal(t *testing.T) {
	src := t.TempDir()
	parent := t.TempDir()
	dest := filepath.Join(parent, "dest")
	zipPath := writeZip(t, src, "evil.zip", map[string]string{
		"../evil.txt": "boom",
		"safe.txt":    "ok",
	})

	res, err := Extract(context.Background(), zipPath, dest, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"safe.txt"}, res.Files)
	assert.NoFileExists(t, filepath.Join(parent, "evil.txt"))
	assert.FileExists(t, filepath.Join(dest, "safe.txt"))
}

func TestExtractReportsExistingDirsAsNotCreated(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "BepInEx", "plugins"), 0755))
	zipPath := writeZip(t, src, "mod.zip", map[string]string{
		"BepInEx/plugins/Mod/mod.dll": "dll",
	})

	res, err := Extract(context.Background(), zipPath, dest, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"BepInEx/plugins/Mod"}, res.CreatedDirs)
}

func TestExtractProgress(t *testing.T) {
	src := t.TempDir()
	zipPath := writeZip(t, src, "p.zip", map[string]string{"a": "1", "b": "2", "c": "3"})

	var last, total int
	_, err := Extract(context.Background(), zipPath, t.TempDir(), Options{
		Progress: func(done, n int) { last, total = done, n },
	})
	require.NoError(t, err)
	assert.Equal(t, 3, last)
	assert.Equal(t, 3, total)
}

func TestExtractMissingArchive(t *testing.T) {
	_, err := Extract(context.Background(), filepath.Join(t.TempDir(), "nope.zip"), t.TempDir(), Options{})
	assert.Error(t, err)
}

func TestCommonRoot(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  string
	}{
		{"shared root", []string{"Root/", "Root/a.txt", "Root/b/c.txt"}, "Root"},
		{"mixed", []string{"Root/a.txt", "Other/b.txt"}, ""},
		{"single file", []string{"a.txt"}, ""},
		{"root file and dir", []string{"readme.txt", "Root/a.txt"}, ""},
		{"backslashes", []string{`Root\a.txt`, `Root\b.txt`}, "Root"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CommonRoot(tt.names))
		})
	}
}

func TestRelativeName(t *testing.T) {
	tests := []struct {
		name   string
		strip  string
		want   string
		wantOK bool
	}{
		{"Root/a.txt", "Root", "a.txt", true},
		{"Root/", "Root", "", true},
		{"a/../b.txt", "", "", false},
		{"/abs/file", "", "abs/file", true},
		{"./x/y", "", "x/y", true},
		{"C:/Windows/x", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := relativeName(tt.name, tt.strip)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
