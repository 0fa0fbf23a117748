package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// State is the installer's selected installation root. It carries no behavior.
type State struct {
	InstallPath string `mapstructure:"install_path"`
}

// HasInstallPath reports whether a root has been chosen.
func (s *State) HasInstallPath() bool {
	return s != nil && s.InstallPath != ""
}

// LoadState reads the persisted state; a missing file yields an empty State.
func LoadState(path string) (*State, error) {
	st := &State{}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return st, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return st, fmt.Errorf("failed to read state file %s: %w", path, err)
	}
	if err := v.Unmarshal(st); err != nil {
		return st, fmt.Errorf("failed to decode state file %s: %w", path, err)
	}
	return st, nil
}

// SaveState persists st to path.
func SaveState(path string, st *State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	v := viper.New()
	v.SetConfigType("json")
	v.Set("install_path", st.InstallPath)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", path, err)
	}
	return nil
}

// ClearState forgets the selected root both in memory and on disk.
func ClearState(path string, st *State) error {
	st.InstallPath = ""
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove state file %s: %w", path, err)
	}
	return nil
}
