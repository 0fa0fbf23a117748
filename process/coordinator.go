package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"spt-installer/logger"

	"go.uber.org/zap"
)

// Coordinator enforces the close-before-change and start-then-wait sequences.
type Coordinator struct {
	ctl     Controller
	starter Starter
	confirm ConfirmFunc
}

// NewCoordinator returns a Coordinator. A nil confirm answers every question with yes.
func NewCoordinator(ctl Controller, starter Starter, confirm ConfirmFunc) *Coordinator {
	if confirm == nil {
		confirm = func(string) (bool, error) { return true, nil }
	}
	return &Coordinator{ctl: ctl, starter: starter, confirm: confirm}
}

// CheckRunning reports the state of the server, launcher and game.
// A failed query counts as not running and is returned alongside the partial status.
func (c *Coordinator) CheckRunning() (Status, error) {
	var st Status
	var errs []error

	query := func(name string) bool {
		running, err := c.ctl.IsRunning(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to query %s: %w", name, err))
			return false
		}
		return running
	}

	st.Server = query(ServerProcess)
	for _, name := range []string{LauncherProcess, LauncherProcessFallback} {
		if query(name) {
			st.Launcher = true
			st.LauncherImage = name
			break
		}
	}
	st.Game = query(GameProcess)
	return st, errors.Join(errs...)
}

// CloseReport lists what Close did.
type CloseReport struct {
	Before Status
	Killed []string
}

// Close stops every running tracked process, game first, then launcher, then server.
// Each termination is attempted even if an earlier one failed; failures are joined *KillError values.
// If confirmation is required and declined, ErrCancelled is returned and nothing is stopped.
func (c *Coordinator) Close(requireConfirmation bool) (*CloseReport, error) {
	st, err := c.CheckRunning()
	if err != nil {
		logger.Log.Warnw("Process query failed", zap.Error(err))
	}
	report := &CloseReport{Before: st}
	if !st.Any() {
		return report, nil
	}

	if requireConfirmation {
		ok, err := c.confirm("The game is running. Close it now?")
		if err != nil {
			return report, err
		}
		if !ok {
			return report, ErrCancelled
		}
	}

	var order []string
	if st.Game {
		order = append(order, GameProcess)
	}
	if st.Launcher {
		order = append(order, st.LauncherImage)
	}
	if st.Server {
		order = append(order, ServerProcess)
	}

	var errs []error
	for _, name := range order {
		if err := c.ctl.Kill(name); err != nil {
			logger.Log.Warnw("Failed to stop process", zap.String("process", name), zap.Error(err))
			errs = append(errs, &KillError{Name: name, Err: err})
			continue
		}
		logger.Log.Infow("Process stopped", zap.String("process", name))
		report.Killed = append(report.Killed, name)
	}
	return report, errors.Join(errs...)
}

// LaunchOptions configures LaunchAndWaitReady.
type LaunchOptions struct {
	ServerExe   string
	LauncherExe string
	WorkDir     string
	LogDir      string
	Keyword     string
	Timeout     time.Duration
	Interval    time.Duration
	TailLines   int
	// OnTimeout receives the last new log lines and decides whether to start the launcher anyway.
	OnTimeout func(tail []string) (bool, error)
}

// LaunchResult describes how a launch ended.
type LaunchResult struct {
	Ready           bool
	LauncherStarted bool
	Tail            []string
}

// LaunchAndWaitReady starts the server, polls its log for the keyword and then starts the launcher.
// Only log content written after the call began is considered.
func (c *Coordinator) LaunchAndWaitReady(ctx context.Context, opts LaunchOptions) (*LaunchResult, error) {
	for _, exe := range []string{opts.ServerExe, opts.LauncherExe} {
		if _, err := os.Stat(exe); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrExecutableMissing, exe)
		}
	}
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}
	if opts.TailLines <= 0 {
		opts.TailLines = 10
	}

	reader := NewLogReader(opts.LogDir)

	if err := c.starter.Start(opts.ServerExe, opts.WorkDir); err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}
	logger.Log.Infow("Server started, waiting for readiness",
		zap.String("log_dir", opts.LogDir),
		zap.Duration("timeout", opts.Timeout),
	)

	res := &LaunchResult{}
	ready, seen, err := waitForKeyword(ctx, reader, opts.Keyword, opts.Timeout, opts.Interval)
	if err != nil {
		return res, err
	}
	res.Ready = ready

	if !ready {
		res.Tail = lastLines(seen, opts.TailLines)
		logger.Log.Warnw("Server readiness timed out", zap.Int("tail_lines", len(res.Tail)))
		if opts.OnTimeout == nil {
			return res, nil
		}
		startAnyway, err := opts.OnTimeout(res.Tail)
		if err != nil || !startAnyway {
			return res, err
		}
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if err := c.starter.Start(opts.LauncherExe, opts.WorkDir); err != nil {
		return res, fmt.Errorf("failed to start launcher: %w", err)
	}
	res.LauncherStarted = true
	logger.Log.Infow("Launcher started", zap.Bool("server_ready", ready))
	return res, nil
}

// LaunchClientOnly starts the launcher without a local server.
func (c *Coordinator) LaunchClientOnly(launcherExe, workDir string) error {
	if _, err := os.Stat(launcherExe); err != nil {
		return fmt.Errorf("%w: %s", ErrExecutableMissing, launcherExe)
	}
	if err := c.starter.Start(launcherExe, workDir); err != nil {
		return fmt.Errorf("failed to start launcher: %w", err)
	}
	return nil
}

func waitForKeyword(ctx context.Context, r *LogReader, keyword string, timeout, interval time.Duration) (bool, string, error) {
	var seen strings.Builder
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() bool {
		chunk, err := r.ReadNew()
		if err != nil {
			logger.Log.Warnw("Failed to read server log", zap.Error(err))
		}
		seen.WriteString(chunk)
		return keyword != "" && strings.Contains(seen.String(), keyword)
	}

	for {
		select {
		case <-ctx.Done():
			return false, seen.String(), ctx.Err()
		case <-deadline.C:
			// final read so content written just before the deadline still counts
			return check(), seen.String(), nil
		case <-ticker.C:
			if check() {
				return true, seen.String(), nil
			}
		}
	}
}

func lastLines(s string, n int) []string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	var out []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
