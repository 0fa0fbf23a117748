// Package cmd wires the installer's operations to the command line.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"spt-installer/config"
	"spt-installer/feed"
	"spt-installer/fika"
	"spt-installer/installer"
	"spt-installer/logger"
	"spt-installer/manifest"
	"spt-installer/mods"
	"spt-installer/process"
	"spt-installer/profile"
	"spt-installer/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	baseDir     string
	assumeYes   bool
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:   "spt-installer",
	Short: "Installs, launches and maintains an SPT game installation",
	Long: `spt-installer unpacks the SPT client and server into a folder of your choice,
starts the server and launcher, manages mods and switches between solo play and
Fika multiplayer. Run without a subcommand for the interactive menu.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if showVersion {
			fmt.Println(config.SoftwareVersion)
			return nil
		}
		return runMenu(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "", "folder holding resources/ and the installer state (default: executable folder)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer every prompt with its default")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "print the installer version")
}

// Execute runs the command tree. Errors are printed with a remedy hint and, in an interactive
// session, the window is held open until Enter is pressed.
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fail(fmt.Errorf("unexpected failure: %v", r))
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fail(err)
	}
}

func fail(err error) {
	logger.Log.Errorw("Command failed", zap.Error(err))
	fmt.Fprintln(os.Stderr, ui.Error("Error: "+err.Error()))
	if hint := remedy(err); hint != "" {
		fmt.Fprintln(os.Stderr, ui.Warn(hint))
	}
	(&ui.Prompter{NonInteractive: assumeYes}).Pause()
	logger.Sync()
	os.Exit(1)
}

// remedy maps known failures to a hint telling the user what to do next.
func remedy(err error) string {
	var killErr *process.KillError
	switch {
	case errors.Is(err, ui.ErrAborted), errors.Is(err, process.ErrCancelled):
		return ""
	case errors.Is(err, installer.ErrPathNotSet):
		return "Choose an installation folder first: spt-installer path <folder>"
	case errors.Is(err, installer.ErrInvalidDirName):
		return "Pick a folder whose name uses only Latin letters, digits and symbols."
	case errors.Is(err, installer.ErrNotEmpty):
		return "Choose an empty folder, or one that already holds an installation made by this tool."
	case errors.Is(err, installer.ErrArchiveMissing), errors.Is(err, mods.ErrArchiveMissing):
		return "Check that the archives are present under resources/."
	case errors.Is(err, installer.ErrNoGameDir), errors.Is(err, mods.ErrNoGameDir),
		errors.Is(err, fika.ErrNoGameDir), errors.Is(err, manifest.ErrNotInstalled),
		errors.Is(err, mods.ErrServerMissing), errors.Is(err, process.ErrExecutableMissing):
		return "Run the automatic install first: spt-installer install"
	case errors.Is(err, fika.ErrConfigMissing):
		return "Start the game once, log in to the character screen, quit, then configure multiplayer again."
	case errors.Is(err, feed.ErrUnavailable), errors.Is(err, fika.ErrModUnavailable):
		return "Check your network connection and try again."
	case errors.Is(err, profile.ErrNoProfiles):
		return "Start the game once so a profile is created."
	case errors.As(err, &killErr):
		return "Close " + killErr.Name + " from Task Manager, or run the installer as administrator, and retry."
	case errors.Is(err, os.ErrPermission):
		return "A file is in use. Close SPT.Server.exe and the launcher, then retry."
	}
	return ""
}
