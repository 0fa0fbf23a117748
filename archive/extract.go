// Package archive extracts zip payloads into an installation root.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"spt-installer/logger"

	"github.com/mholt/archives"
	"go.uber.org/zap"
)

// ProgressFunc receives the number of processed entries and the total entry count.
type ProgressFunc func(done, total int)

// Options controls a single extraction.
type Options struct {
	// StripCommonRoot drops a top-level folder shared by every entry.
	StripCommonRoot bool
	Progress        ProgressFunc
}

// Result lists what an extraction wrote, as slash-separated paths relative to the destination.
type Result struct {
	Files       []string
	CreatedDirs []string
	Skipped     []string
	StrippedDir string
}

// Extract writes the zip at archivePath into destDir.
// Entries whose path contains a ".." segment are skipped. An I/O error aborts the extraction and leaves already written files in place.
func Extract(ctx context.Context, archivePath, destDir string, opts Options) (*Result, error) {
	names, err := listEntries(ctx, archivePath)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if opts.StripCommonRoot {
		res.StrippedDir = CommonRoot(names)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	x := &extraction{
		destDir: destDir,
		strip:   res.StrippedDir,
		res:     res,
		seen:    map[string]bool{},
		total:   len(names),
		notify:  opts.Progress,
	}

	if err := walk(ctx, archivePath, x.handle); err != nil {
		return res, err
	}

	logger.Log.Infow("Archive extracted",
		zap.String("archive", filepath.Base(archivePath)),
		zap.String("destination", destDir),
		zap.Int("files", len(res.Files)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

type extraction struct {
	destDir string
	strip   string
	res     *Result
	seen    map[string]bool
	done    int
	total   int
	notify  ProgressFunc
}

func (x *extraction) handle(_ context.Context, f archives.FileInfo) error {
	defer x.progress()

	rel, ok := relativeName(f.NameInArchive, x.strip)
	if !ok {
		x.res.Skipped = append(x.res.Skipped, f.NameInArchive)
		logger.Log.Warnw("Skipping unsafe archive entry", zap.String("entry", f.NameInArchive))
		return nil
	}
	if rel == "" {
		// the stripped root itself
		return nil
	}

	target := filepath.Join(x.destDir, filepath.FromSlash(rel))

	if f.IsDir() {
		return x.mkdirAll(rel)
	}

	if err := x.mkdirAll(path.Dir(rel)); err != nil {
		return err
	}
	if err := writeFile(f, target); err != nil {
		return err
	}
	x.res.Files = append(x.res.Files, rel)
	return nil
}

func (x *extraction) progress() {
	x.done++
	if x.notify != nil {
		x.notify(x.done, x.total)
	}
}

// mkdirAll creates rel and its parents below destDir, remembering which ones did not exist before.
func (x *extraction) mkdirAll(rel string) error {
	if rel == "." || rel == "" {
		return nil
	}
	var missing []string
	for dir := rel; dir != "." && dir != "/"; dir = path.Dir(dir) {
		if x.seen[dir] {
			break
		}
		abs := filepath.Join(x.destDir, filepath.FromSlash(dir))
		info, err := os.Stat(abs)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("cannot create directory %s: a file is in the way", dir)
			}
			x.seen[dir] = true
			break
		}
		missing = append(missing, dir)
	}
	for i := len(missing) - 1; i >= 0; i-- {
		dir := missing[i]
		if err := os.Mkdir(filepath.Join(x.destDir, filepath.FromSlash(dir)), 0755); err != nil && !os.IsExist(err) {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		x.seen[dir] = true
		x.res.CreatedDirs = append(x.res.CreatedDirs, dir)
	}
	return nil
}

func writeFile(f archives.FileInfo, target string) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.NameInArchive, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", target, err)
	}
	return nil
}

func listEntries(ctx context.Context, archivePath string) ([]string, error) {
	var names []string
	err := walk(ctx, archivePath, func(_ context.Context, f archives.FileInfo) error {
		names = append(names, f.NameInArchive)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func walk(ctx context.Context, archivePath string, handler archives.FileHandler) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer file.Close()

	if err := (archives.Zip{}).Extract(ctx, file, handler); err != nil {
		return fmt.Errorf("failed to extract %s: %w", filepath.Base(archivePath), err)
	}
	return nil
}

// splitName breaks an archive entry name into its non-empty segments.
func splitName(name string) []string {
	name = strings.ReplaceAll(name, `\`, "/")
	var parts []string
	for _, p := range strings.Split(name, "/") {
		if p == "" || p == "." {
			continue
		}
		parts = append(parts, p)
	}
	return parts
}

// CommonRoot returns the first path segment shared by every entry, or "" if there is none.
// An archive whose only content is a single file has no root to strip.
func CommonRoot(names []string) string {
	root := ""
	nested := false
	for _, name := range names {
		parts := splitName(name)
		if len(parts) == 0 {
			continue
		}
		if root == "" {
			root = parts[0]
		} else if parts[0] != root {
			return ""
		}
		if len(parts) > 1 || strings.HasSuffix(name, "/") {
			nested = true
		}
	}
	if !nested || root == ".." {
		return ""
	}
	return root
}

// relativeName maps an entry name to its destination path, reporting false for unsafe names.
func relativeName(name, strip string) (string, bool) {
	parts := splitName(name)
	if strip != "" && len(parts) > 0 && parts[0] == strip {
		parts = parts[1:]
	}
	for _, p := range parts {
		if p == ".." {
			return "", false
		}
	}
	if len(parts) > 0 && strings.HasSuffix(parts[0], ":") {
		// drive-letter prefix such as C:
		return "", false
	}
	return strings.Join(parts, "/"), true
}
