package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "b123.json", `{"info": {"username": "Nikita"}}`)
	writeProfile(t, dir, "a456.json", `{"info": {}}`)
	writeProfile(t, dir, "notes.txt", "x")

	profiles, err := List(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "a456.json", profiles[0].FileName)
	assert.Equal(t, "a456", profiles[0].Username)
	assert.Equal(t, "Nikita", profiles[1].Username)

	_, err = List(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, ErrNoProfiles)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	src := writeProfile(t, dir, "p.json", `{"info": {"username": "Prapor"}}`)
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(src, old, old))

	profiles, err := List(dir)
	require.NoError(t, err)

	dest := t.TempDir()
	out, err := Export(profiles[0], dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "p.json"), out)
	assert.Equal(t, "Prapor", Username(out))
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old))

	_, err = Export(profiles[0], filepath.Join(dest, "nope"))
	assert.ErrorIs(t, err, ErrDestNotFolder)
}

func TestImport(t *testing.T) {
	src := writeProfile(t, t.TempDir(), "p.json", `{"info": {"username": "Therapist"}}`)
	profiles := filepath.Join(t.TempDir(), "SPT", "user", "profiles")

	dst, err := Import(src, profiles, ImportOptions{})
	require.NoError(t, err)
	assert.FileExists(t, dst)

	_, err = Import(src, profiles, ImportOptions{})
	assert.ErrorIs(t, err, ErrExists)

	_, err = Import(src, profiles, ImportOptions{Overwrite: true})
	assert.NoError(t, err)
}

func TestImportUnnamed(t *testing.T) {
	src := writeProfile(t, t.TempDir(), "junk.json", `not json`)
	dir := t.TempDir()

	_, err := Import(src, dir, ImportOptions{})
	assert.ErrorIs(t, err, ErrNotAProfile)

	_, err = Import(src, dir, ImportOptions{AllowUnnamed: true})
	assert.NoError(t, err)
}
