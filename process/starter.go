package process

import (
	"fmt"
	"os/exec"

	"spt-installer/logger"

	"go.uber.org/zap"
)

// ExecStarter starts executables in their own console and does not wait for them.
type ExecStarter struct{}

func (ExecStarter) Start(exe, dir string) error {
	cmd := exec.Command(exe)
	cmd.Dir = dir
	cmd.SysProcAttr = detachedAttr()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", exe, err)
	}
	logger.Log.Infow("Process started", zap.String("exe", exe), zap.Int("pid", cmd.Process.Pid))
	return cmd.Process.Release()
}
