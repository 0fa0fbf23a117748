package cmd

import (
	"fmt"

	"spt-installer/config"
	"spt-installer/logger"
	"spt-installer/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var pathCmd = &cobra.Command{
	Use:   "path [folder]",
	Short: "Select the installation folder",
	Long: `Select the folder the game is installed into. The folder must be empty, or hold an
installation made by this tool, and its name must not contain Chinese characters.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return selectPath(a, target)
		})
	},
}

func init() {
	rootCmd.AddCommand(pathCmd)
}

func selectPath(a *app, target string) error {
	if target == "" {
		var err error
		target, err = a.prompt.Input("Installation folder:", a.state.InstallPath)
		if err != nil {
			return err
		}
	}

	sel, err := a.installer.ValidateTarget(target)
	if err != nil {
		return err
	}

	a.state.InstallPath = sel.Path
	if err := config.SaveState(a.cfg.StateFile, a.state); err != nil {
		return err
	}
	logger.Log.Infow("Installation folder selected", zap.String("path", sel.Path))

	if sel.Existing != nil {
		fmt.Println(ui.Success(fmt.Sprintf("Found existing installation %s in %s", sel.Existing.Version, sel.Path)))
	} else {
		fmt.Println(ui.Success("Installation folder set to " + sel.Path))
	}
	return nil
}
