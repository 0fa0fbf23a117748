package feed

import (
	"strings"

	"github.com/hashicorp/go-version"
)

// UpdateInfo compares the running build against the feed.
type UpdateInfo struct {
	Available   bool
	Current     string
	Latest      string
	DownloadURL string
}

// CheckUpdate reports whether the feed advertises a newer software version.
func (a *Announcement) CheckUpdate(current string) UpdateInfo {
	info := UpdateInfo{Current: current, Latest: a.LatestVersion, DownloadURL: a.DownloadURL}
	if a.LatestVersion == "" || a.DownloadURL == "" {
		return info
	}
	info.Available = IsNewer(current, a.LatestVersion)
	return info
}

// IsNewer reports whether latest is a higher version than current.
// Strings that do not parse as versions are compared for inequality only.
func IsNewer(current, latest string) bool {
	cur, errCur := version.NewVersion(strings.TrimPrefix(current, "v"))
	lat, errLat := version.NewVersion(strings.TrimPrefix(latest, "v"))
	if errCur != nil || errLat != nil {
		return strings.TrimSpace(latest) != "" && latest != current
	}
	return lat.GreaterThan(cur)
}

// InstallerFileName is the name an update download is saved as.
func InstallerFileName(latest string) string {
	return "SPT-Installer-" + latest + ".exe"
}
