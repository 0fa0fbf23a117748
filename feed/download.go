package feed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spt-installer/logger"

	"github.com/cavaliergopher/grab/v3"
	"go.uber.org/zap"
)

var ErrUnsafeFileName = errors.New("unsafe file name in feed")

// ProgressCallback receives transferred and total bytes; total is -1 when unknown.
type ProgressCallback func(bytesComplete, totalBytes int64)

// Downloader fetches package archives with grab.
type Downloader struct {
	client  *grab.Client
	timeout time.Duration
}

// NewDownloader returns a Downloader. timeout <= 0 disables the overall deadline.
func NewDownloader(userAgent string, timeout time.Duration) *Downloader {
	client := grab.NewClient()
	if userAgent != "" {
		client.UserAgent = userAgent
	}
	return &Downloader{client: client, timeout: timeout}
}

// Download saves url to dst. The body is written to dst.part and renamed on success,
// and the partial file is removed on failure.
func (d *Downloader) Download(ctx context.Context, url, dst string, callback ProgressCallback) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}
	part := dst + ".part"

	req, err := grab.NewRequest(part, url)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req = req.WithContext(ctx)
	req.NoResume = true

	logger.Log.Infow("Download started", zap.String("url", url), zap.String("file", dst))
	resp := d.client.Do(req)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ticker.C:
			if callback != nil {
				callback(resp.BytesComplete(), resp.Size())
			}
		case <-resp.Done:
			break loop
		}
	}

	if err := resp.Err(); err != nil {
		_ = os.Remove(part)
		logger.Log.Warnw("Download failed", zap.String("url", url), zap.Error(err))
		return fmt.Errorf("download failed: %w", err)
	}
	if callback != nil {
		callback(resp.BytesComplete(), resp.Size())
	}

	if err := os.Rename(part, dst); err != nil {
		_ = os.Remove(part)
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	logger.Log.Infow("Download finished", zap.String("file", dst), zap.Int64("bytes", resp.BytesComplete()))
	return nil
}

// SafeFileName rejects names from the feed that are not a single plain file name.
func SafeFileName(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeFileName, name)
	}
	return name, nil
}
