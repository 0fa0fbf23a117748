// Package manifest persists the per-installation sidecar recording the installed version and mods.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spt-installer/logger"

	"go.uber.org/zap"
)

// DefaultFileName is the sidecar name inside an installation root.
const DefaultFileName = ".spt_installed.json"

// ErrNotInstalled is returned when a mutation needs a manifest and none exists.
var ErrNotInstalled = errors.New("no installation manifest found")

// TimeLayout is local time with second precision and no zone.
const TimeLayout = "2006-01-02T15:04:05"

// Timestamp marshals as TimeLayout and also accepts RFC 3339 on input.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(TimeLayout))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
	}
	t.Time = parsed
	return nil
}

// ModRecord lists what one mod's extraction wrote, relative to the installation root.
type ModRecord struct {
	Files       []string  `json:"files"`
	Directories []string  `json:"directories,omitempty"`
	InstalledAt Timestamp `json:"installed_at"`
	Version     string    `json:"mod_version,omitempty"`
	GameVersion string    `json:"supported_version,omitempty"`
}

// Manifest is the sidecar document.
type Manifest struct {
	Version     string               `json:"version"`
	ServerZip   string               `json:"server_zip"`
	ClientZip   string               `json:"client_zip"`
	InstalledAt Timestamp            `json:"installed_at"`
	UpdatedAt   *Timestamp           `json:"updated_at,omitempty"`
	Mods        map[string]ModRecord `json:"mods"`
}

// VersionInfo is what a fresh install records.
type VersionInfo struct {
	Version   string
	ServerZip string
	ClientZip string
}

// Store reads and writes manifests. Every call is a whole-file read or write with no locking.
type Store struct {
	fileName string
	now      func() time.Time
}

// NewStore returns a Store using fileName inside each root; empty means DefaultFileName.
func NewStore(fileName string) *Store {
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &Store{fileName: fileName, now: time.Now}
}

// Path returns the manifest location for root.
func (s *Store) Path(root string) string {
	return filepath.Join(root, s.fileName)
}

// Exists reports whether root holds a readable manifest.
func (s *Store) Exists(root string) bool {
	_, ok := s.Load(root)
	return ok
}

// Load parses the manifest in root. A missing or malformed file reports false.
func (s *Store) Load(root string) (*Manifest, bool) {
	data, err := os.ReadFile(s.Path(root))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Log.Warnw("Failed to read manifest", zap.String("root", root), zap.Error(err))
		}
		return nil, false
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		logger.Log.Warnw("Ignoring malformed manifest", zap.String("root", root), zap.Error(err))
		return nil, false
	}
	if m.Mods == nil {
		m.Mods = map[string]ModRecord{}
	}
	return &m, true
}

// Create writes a fresh manifest with no mods, replacing any existing file.
func (s *Store) Create(root string, info VersionInfo) (*Manifest, error) {
	m := &Manifest{
		Version:     info.Version,
		ServerZip:   info.ServerZip,
		ClientZip:   info.ClientZip,
		InstalledAt: s.stamp(),
		Mods:        map[string]ModRecord{},
	}
	if err := s.Save(root, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordMod upserts the record for name. Reinstalling a name replaces its previous record.
func (s *Store) RecordMod(root, name string, rec ModRecord) error {
	return s.update(root, func(m *Manifest) bool {
		if rec.Files == nil {
			rec.Files = []string{}
		}
		if rec.InstalledAt.IsZero() {
			rec.InstalledAt = s.stamp()
		}
		m.Mods[name] = rec
		return true
	})
}

// RemoveModRecord drops name from the manifest. Unknown names and a missing manifest are no-ops.
func (s *Store) RemoveModRecord(root, name string) error {
	err := s.update(root, func(m *Manifest) bool {
		if _, ok := m.Mods[name]; !ok {
			return false
		}
		delete(m.Mods, name)
		return true
	})
	if errors.Is(err, ErrNotInstalled) {
		return nil
	}
	return err
}

// ClearMods empties the mod map.
func (s *Store) ClearMods(root string) error {
	return s.update(root, func(m *Manifest) bool {
		m.Mods = map[string]ModRecord{}
		return true
	})
}

// UpdateServerVersion records a server switch and stamps updated_at.
func (s *Store) UpdateServerVersion(root, version, zipName string) error {
	return s.update(root, func(m *Manifest) bool {
		m.Version = version
		m.ServerZip = zipName
		ts := s.stamp()
		m.UpdatedAt = &ts
		return true
	})
}

func (s *Store) update(root string, fn func(m *Manifest) bool) error {
	m, ok := s.Load(root)
	if !ok {
		return ErrNotInstalled
	}
	if !fn(m) {
		return nil
	}
	return s.Save(root, m)
}

// Save writes m to root through a temporary file and rename.
func (s *Store) Save(root string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	data = append(data, '\n')

	path := s.Path(root)
	tmp, err := os.CreateTemp(root, "."+strings.TrimPrefix(s.fileName, ".")+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close manifest: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}

func (s *Store) stamp() Timestamp {
	return Timestamp{s.now().Truncate(time.Second)}
}
