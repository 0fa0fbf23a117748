//go:build windows

package process

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

// TaskController uses tasklist and taskkill.
type TaskController struct{}

func (TaskController) IsRunning(name string) (bool, error) {
	cmd := exec.Command("tasklist", "/FI", "IMAGENAME eq "+name, "/NH", "/FO", "CSV")
	cmd.SysProcAttr = hiddenAttr()
	out, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("tasklist failed: %w", err)
	}
	return bytes.Contains(bytes.ToLower(out), []byte(`"`+strings.ToLower(name)+`"`)), nil
}

func (TaskController) Kill(name string) error {
	cmd := exec.Command("taskkill", "/F", "/IM", name)
	cmd.SysProcAttr = hiddenAttr()
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("taskkill: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func hiddenAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{HideWindow: true, CreationFlags: windows.CREATE_NO_WINDOW}
}

func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_CONSOLE}
}

// NewController returns the platform process controller.
func NewController() Controller {
	return TaskController{}
}
