package process

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// LogPattern matches server log files inside the log directory.
const LogPattern = "*.log"

// LogReader returns log content appended after it was created.
// If the server starts a new log file, the reader follows it from the beginning.
type LogReader struct {
	dir    string
	path   string
	offset int64
}

// NewLogReader snapshots the size of the most recently modified log in dir.
func NewLogReader(dir string) *LogReader {
	r := &LogReader{dir: dir}
	if path, _, err := newestLog(dir); err == nil && path != "" {
		r.path = path
		if info, err := os.Stat(path); err == nil {
			r.offset = info.Size()
		}
	}
	return r
}

// Path is the file currently being followed.
func (r *LogReader) Path() string {
	return r.path
}

// ReadNew returns everything written since the previous call.
func (r *LogReader) ReadNew() (string, error) {
	newest, _, err := newestLog(r.dir)
	if err != nil {
		return "", err
	}
	if newest == "" {
		return "", nil
	}
	if newest != r.path {
		r.path = newest
		r.offset = 0
	}

	f, err := os.Open(r.path)
	if err != nil {
		return "", fmt.Errorf("failed to open log %s: %w", r.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() < r.offset {
		// truncated or replaced in place
		r.offset = 0
	}
	if info.Size() == r.offset {
		return "", nil
	}

	if _, err := f.Seek(r.offset, io.SeekStart); err != nil {
		return "", err
	}
	data, err := io.ReadAll(f)
	r.offset += int64(len(data))
	if err != nil {
		return string(data), err
	}
	return string(data), nil
}

// newestLog finds the most recently modified file matching LogPattern in dir.
func newestLog(dir string) (string, time.Time, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", time.Time{}, nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), LogPattern)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to list logs in %s: %w", dir, err)
	}

	var best string
	var bestTime time.Time
	for _, m := range matches {
		p := filepath.Join(dir, filepath.FromSlash(m))
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best, bestTime = p, info.ModTime()
		}
	}
	return best, bestTime, nil
}
