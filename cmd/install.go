package cmd

import (
	"fmt"
	"os"

	"spt-installer/config"
	"spt-installer/ui"

	"github.com/spf13/cobra"
)

var installVersion string

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Unpack the client and server into the selected folder",
	Long: `Unpacks the client archive, then the server archive, into the selected
installation folder, copies the required runtime files and records the installed
version. The folder must be empty.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(func(a *app) error {
			return runInstall(cmd, a, installVersion)
		})
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.Flags().StringVar(&installVersion, "game-version", "", "version label to install (default: first configured)")
}

func runInstall(cmd *cobra.Command, a *app, label string) error {
	root, err := a.root()
	if err != nil {
		return err
	}
	v, err := chooseVersion(a, label)
	if err != nil {
		return err
	}

	ok, err := a.prompt.Confirm(fmt.Sprintf("Install %s into %s?", v.Label, root), true)
	if err != nil {
		return err
	}
	if !ok {
		return ui.ErrAborted
	}

	bar := ui.NewProgressBar(os.Stdout, "")
	stage := ""
	m, err := a.installer.AutoInstall(cmd.Context(), root, v, func(name string, done, total int) {
		if name != stage {
			stage = name
			bar.SetLabel(fmt.Sprintf("%-7s", name))
		}
		bar.Count(done, total)
	})
	bar.Done()
	if err != nil {
		return err
	}
	if m == nil {
		fmt.Println(ui.Warn("Installed, but the version record could not be written."))
	}
	fmt.Println(ui.Success(fmt.Sprintf("SPT %s installed into %s", v.Label, root)))
	return nil
}

func chooseVersion(a *app, label string) (config.GameVersion, error) {
	if label != "" {
		v, ok := a.cfg.FindVersion(label)
		if !ok {
			return config.GameVersion{}, fmt.Errorf("unknown game version %q", label)
		}
		return v, nil
	}
	if len(a.cfg.Versions) == 0 {
		return config.GameVersion{}, fmt.Errorf("no game versions configured")
	}
	labels := make([]string, len(a.cfg.Versions))
	for i, v := range a.cfg.Versions {
		labels[i] = v.Label
	}
	if a.cfg.NonInteractive {
		v, _ := a.cfg.DefaultVersion()
		return v, nil
	}
	idx, err := a.prompt.Select("Game version:", labels)
	if err != nil {
		return config.GameVersion{}, err
	}
	return a.cfg.Versions[idx], nil
}
