package cmd

import (
	"fmt"
	"os"

	"spt-installer/feed"
	"spt-installer/installer"
	"spt-installer/ui"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Download and switch SPT server versions",
}

var serverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List server archives in resources/server",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withApp(func(a *app) error {
			root, _ := a.root()
			servers, err := a.installer.ListServers(root)
			if err != nil {
				return err
			}
			if len(servers) == 0 {
				fmt.Println(ui.Warn("No server archives in " + a.cfg.ServerDir))
			}
			for _, s := range servers {
				marker := " "
				if s.Current {
					marker = ui.Success("*")
				}
				fmt.Printf("%s %-10s %s\n", marker, s.Version, s.Name)
			}
			return nil
		})
	},
}

var serverDownloadCmd = &cobra.Command{
	Use:   "download [version]",
	Short: "Download a server version listed in the announcement feed",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return runServerDownload(cmd, a, args) })
	},
}

var serverSwitchCmd = &cobra.Command{
	Use:   "switch [archive]",
	Short: "Overlay another server version onto the installation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return runServerSwitch(cmd, a, args) })
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.AddCommand(serverListCmd, serverDownloadCmd, serverSwitchCmd)
}

func runServerDownload(cmd *cobra.Command, a *app, args []string) error {
	if _, err := a.root(); err != nil {
		return err
	}
	ann, err := a.announcement(cmd.Context())
	if err != nil {
		return err
	}
	if len(ann.ServerVersions) == 0 {
		return fmt.Errorf("the announcement feed lists no server versions")
	}

	var sv feed.ServerVersion
	if len(args) == 1 {
		var ok bool
		if sv, ok = ann.FindServer(args[0]); !ok {
			return fmt.Errorf("server version %s is not offered", args[0])
		}
	} else {
		labels := make([]string, len(ann.ServerVersions))
		for i, s := range ann.ServerVersions {
			labels[i] = s.Version
		}
		idx, err := a.prompt.Select("Server version:", labels)
		if err != nil {
			return err
		}
		sv = ann.ServerVersions[idx]
	}

	bar := ui.NewProgressBar(os.Stdout, sv.Version)
	path, err := a.installer.DownloadServer(cmd.Context(), a.downloader(), sv, bar.Update)
	bar.Done()
	if err != nil {
		return err
	}
	fmt.Println(ui.Success("Server archive ready: " + path))
	return nil
}

func runServerSwitch(cmd *cobra.Command, a *app, args []string) error {
	root, err := a.root()
	if err != nil {
		return err
	}
	servers, err := a.installer.ListServers(root)
	if err != nil {
		return err
	}
	if len(servers) == 0 {
		return fmt.Errorf("no server archives in %s, download one first", a.cfg.ServerDir)
	}

	var chosen *installer.ServerArchive
	if len(args) == 1 {
		for i := range servers {
			if servers[i].Name == args[0] || servers[i].Version == args[0] {
				chosen = &servers[i]
				break
			}
		}
		if chosen == nil {
			return fmt.Errorf("%w: %s", installer.ErrArchiveMissing, args[0])
		}
	} else {
		labels := make([]string, len(servers))
		for i, s := range servers {
			labels[i] = s.Name
			if s.Current {
				labels[i] += " (current)"
			}
		}
		idx, err := a.prompt.Select("Switch to:", labels)
		if err != nil {
			return err
		}
		chosen = &servers[idx]
	}

	if _, err := a.coord.Close(true); err != nil {
		return err
	}
	bar := ui.NewProgressBar(os.Stdout, chosen.Version)
	err = a.installer.SwitchServer(cmd.Context(), root, *chosen, func(_ string, done, total int) { bar.Count(done, total) })
	bar.Done()
	if err != nil {
		return err
	}
	fmt.Println(ui.Success("Server switched to " + chosen.Name))
	return nil
}
