//go:build !windows

package process

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
)

// PgrepController matches processes by command line, for Wine and Proton setups.
type PgrepController struct{}

func (PgrepController) IsRunning(name string) (bool, error) {
	err := exec.Command("pgrep", "-f", "--", name).Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("pgrep failed: %w", err)
}

func (PgrepController) Kill(name string) error {
	out, err := exec.Command("pkill", "-f", "--", name).CombinedOutput()
	if err != nil {
		return fmt.Errorf("pkill: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// NewController returns the platform process controller.
func NewController() Controller {
	return PgrepController{}
}
