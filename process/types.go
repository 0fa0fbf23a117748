//go:generate mockgen -destination=./mocks/process.go . Controller,Starter

// Package process detects, stops and starts the game's executables.
package process

import (
	"errors"
	"fmt"

	"spt-installer/config"
)

// Tracked image names.
const (
	ServerProcess           = config.ServerExeName
	LauncherProcess         = config.PatchedLauncherExeName
	LauncherProcessFallback = config.LauncherExeName
	GameProcess             = config.GameExeName
)

var (
	ErrCancelled         = errors.New("operation cancelled by user")
	ErrExecutableMissing = errors.New("executable not found")
)

// Controller queries and terminates processes by image name.
type Controller interface {
	IsRunning(name string) (bool, error)
	Kill(name string) error
}

// Starter launches an executable detached from the installer.
type Starter interface {
	Start(exe, dir string) error
}

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(prompt string) (bool, error)

// Status reports which tracked processes are running.
type Status struct {
	Server   bool
	Launcher bool
	Game     bool

	// LauncherImage is the launcher image name that was found running.
	LauncherImage string
}

// Any reports whether at least one tracked process is running.
func (s Status) Any() bool {
	return s.Server || s.Launcher || s.Game
}

// KillError is a termination failure for a single process.
type KillError struct {
	Name string
	Err  error
}

func (e *KillError) Error() string {
	return fmt.Sprintf("failed to stop %s: %v", e.Name, e.Err)
}

func (e *KillError) Unwrap() error {
	return e.Err
}
