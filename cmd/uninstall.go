package cmd

import (
	"fmt"

	"spt-installer/config"
	"spt-installer/ui"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Delete the whole game installation",
	Long: `Stops the game, deletes the selected installation folder with everything in it,
profiles included, and forgets the selected path.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withApp(runUninstallGame)
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstallGame(a *app) error {
	root, err := a.root()
	if err != nil {
		return err
	}
	fmt.Println(ui.Warn("This deletes " + root + " including all profiles and mods."))
	ok, err := a.prompt.Confirm("Delete the installation?", false)
	if err != nil {
		return err
	}
	if !ok {
		return ui.ErrAborted
	}
	if _, err := a.coord.Close(false); err != nil {
		return err
	}
	if err := a.installer.UninstallGame(root); err != nil {
		return err
	}
	if err := config.ClearState(a.cfg.StateFile, a.state); err != nil {
		return err
	}
	fmt.Println(ui.Success("Game uninstalled."))
	return nil
}
