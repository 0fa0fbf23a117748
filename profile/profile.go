// Package profile exports and imports SPT player profiles.
package profile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"spt-installer/logger"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var (
	ErrNoProfiles    = errors.New("profiles folder not found")
	ErrExists        = errors.New("a profile with this file name already exists")
	ErrNotAProfile   = errors.New("file is not a readable profile")
	ErrDestNotFolder = errors.New("export destination is not a folder")
)

// Profile is one saved game in SPT/user/profiles.
type Profile struct {
	Path     string
	FileName string
	// Username is the in-game name, or the file stem when the file has none.
	Username string
}

// Username reads info.username from a profile file. It returns "" when the file is not JSON or has no name.
func Username(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil || !gjson.ValidBytes(raw) {
		return ""
	}
	return gjson.GetBytes(raw, "info.username").String()
}

// List returns the profiles in dir sorted by file name.
func List(dir string) ([]Profile, error) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoProfiles, dir)
	}
	matches, err := doublestar.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	out := make([]Profile, 0, len(matches))
	for _, name := range matches {
		p := filepath.Join(dir, filepath.FromSlash(name))
		user := Username(p)
		if user == "" {
			user = strings.TrimSuffix(name, filepath.Ext(name))
		}
		out = append(out, Profile{Path: p, FileName: name, Username: user})
	}
	return out, nil
}

// Export copies p into destDir under its own file name and returns the written path.
func Export(p Profile, destDir string) (string, error) {
	info, err := os.Stat(destDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrDestNotFolder, destDir)
	}
	dst := filepath.Join(destDir, p.FileName)
	if err := copyFile(p.Path, dst); err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	logger.Log.Infow("Profile exported", zap.String("user", p.Username), zap.String("to", dst))
	return dst, nil
}

// ImportOptions controls Import.
type ImportOptions struct {
	// Overwrite replaces a profile with the same file name.
	Overwrite bool
	// AllowUnnamed accepts files without info.username.
	AllowUnnamed bool
}

// Import copies src into the profiles folder dir, creating it if needed, and returns the written path.
func Import(src, dir string, opts ImportOptions) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", src, err)
	}
	user := Username(src)
	if user == "" && !opts.AllowUnnamed {
		return "", fmt.Errorf("%w: %s", ErrNotAProfile, src)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create profiles folder: %w", err)
	}
	dst := filepath.Join(dir, filepath.Base(src))
	if _, err := os.Stat(dst); err == nil && !opts.Overwrite {
		return "", fmt.Errorf("%w: %s", ErrExists, filepath.Base(src))
	}
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("import failed: %w", err)
	}
	logger.Log.Infow("Profile imported", zap.String("user", user), zap.String("to", dst))
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
