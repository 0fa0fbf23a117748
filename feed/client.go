// Package feed reads the remote announcement document and downloads the packages it lists.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spt-installer/config"
)

var ErrUnavailable = errors.New("announcement feed unavailable")

// Client fetches the announcement document.
type Client struct {
	URL        string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient creates a feed client using the configured URL, user agent and timeout.
func NewClient(cfg config.Config) (*Client, error) {
	if cfg.AnnouncementURL == "" {
		return nil, fmt.Errorf("announcement_url is not configured")
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		URL:       cfg.AnnouncementURL,
		UserAgent: cfg.UserAgent,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (c *Client) makeRequest(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d, body: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode announcement: %w", err)
	}
	return nil
}

// Fetch downloads and decodes the announcement.
func (c *Client) Fetch(ctx context.Context) (*Announcement, error) {
	var a Announcement
	if err := c.makeRequest(ctx, c.URL, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Announcement is the remote feed document.
type Announcement struct {
	Content        string          `json:"content"`
	LatestVersion  string          `json:"latest_version"`
	DownloadURL    string          `json:"download_url"`
	ServerVersions []ServerVersion `json:"server_versions"`
	ModVersions    []ModVersion    `json:"mod_versions"`
}

// ServerVersion is a downloadable server package.
type ServerVersion struct {
	Version     string `json:"version"`
	ServerZip   string `json:"server_zip"`
	DownloadURL string `json:"download_url"`
}

// ModVersion is a downloadable mod package.
type ModVersion struct {
	Name        string `json:"name"`
	ZipName     string `json:"zip_name"`
	DownloadURL string `json:"download_url"`
}

// FindFika returns the multiplayer mod entry, matched by name.
func (a *Announcement) FindFika() (ModVersion, bool) {
	for _, m := range a.ModVersions {
		if IsFikaName(m.Name) {
			return m, true
		}
	}
	return ModVersion{}, false
}

// IsFikaName reports whether a mod name refers to the multiplayer mod.
func IsFikaName(name string) bool {
	return strings.Contains(strings.ToLower(name), "fika") || strings.Contains(name, "联机")
}

// FindServer returns the server package with the given version label.
func (a *Announcement) FindServer(version string) (ServerVersion, bool) {
	for _, s := range a.ServerVersions {
		if s.Version == version {
			return s, true
		}
	}
	return ServerVersion{}, false
}
