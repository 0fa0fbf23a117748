package cmd

import (
	"context"
	"fmt"
	"strings"

	"spt-installer/process"
	"spt-installer/ui"

	"github.com/spf13/cobra"
)

var clientOnly bool

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Start the server, wait until it is ready, then start the launcher",
	Long: `Starts SPT.Server.exe, watches its newest log file for the ready message and
then starts the launcher. With --client-only only the launcher is started, for
joining a server hosted elsewhere.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(func(a *app) error {
			if clientOnly {
				return runLaunchClient(a)
			}
			return runLaunch(cmd, a)
		})
	},
}

func init() {
	rootCmd.AddCommand(launchCmd)
	launchCmd.Flags().BoolVar(&clientOnly, "client-only", false, "start only the launcher")
}

func runLaunch(cmd *cobra.Command, a *app) error {
	l, err := a.layout()
	if err != nil {
		return err
	}
	if _, err := a.coord.Close(true); err != nil {
		return err
	}

	var res *process.LaunchResult
	err = runTask(cmd.Context(), "Starting SPT", a.cfg.NonInteractive, func(ctx context.Context, report func(string)) error {
		report("Waiting for the server to become ready...")
		var err error
		res, err = a.coord.LaunchAndWaitReady(ctx, process.LaunchOptions{
			ServerExe:   l.ServerExe,
			LauncherExe: l.Launcher(),
			WorkDir:     l.SPTDir,
			LogDir:      l.LogDir,
			Keyword:     a.cfg.ReadyKeyword,
			Timeout:     a.cfg.ReadyTimeout,
			Interval:    a.cfg.PollInterval,
		})
		if err == nil && res.LauncherStarted {
			report("Server ready, launcher started")
		}
		return err
	})
	if err != nil {
		return err
	}
	if res.LauncherStarted {
		fmt.Println(ui.Success("Server is ready and the launcher has started."))
		return nil
	}

	fmt.Println(ui.Warn(fmt.Sprintf("The server did not report ready within %s.", a.cfg.ReadyTimeout)))
	if len(res.Tail) > 0 {
		fmt.Println(ui.Dim("Last server log lines:"))
		fmt.Println(strings.Join(res.Tail, "\n"))
	}
	ok, err := a.prompt.Confirm("Start the launcher anyway?", false)
	if err != nil || !ok {
		return err
	}
	if err := a.coord.LaunchClientOnly(l.Launcher(), l.SPTDir); err != nil {
		return err
	}
	fmt.Println(ui.Success("Launcher started."))
	return nil
}

func runLaunchClient(a *app) error {
	l, err := a.layout()
	if err != nil {
		return err
	}
	if _, err := a.coord.Close(true); err != nil {
		return err
	}
	if err := a.coord.LaunchClientOnly(l.Launcher(), l.SPTDir); err != nil {
		return err
	}
	fmt.Println(ui.Success("Launcher started."))
	return nil
}
