package cmd

import (
	"errors"
	"fmt"

	"spt-installer/profile"
	"spt-installer/ui"

	"github.com/spf13/cobra"
)

var overwriteProfile bool

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Export and import player profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List player profiles",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withApp(func(a *app) error {
			l, err := a.layout()
			if err != nil {
				return err
			}
			profiles, err := profile.List(l.ProfilesDir)
			if err != nil {
				return err
			}
			for _, p := range profiles {
				fmt.Printf("%-24s %s\n", ui.Info(p.Username), ui.Dim(p.FileName))
			}
			return nil
		})
	},
}

var profileExportCmd = &cobra.Command{
	Use:   "export [destination-folder]",
	Short: "Copy a profile out of the installation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return runProfileExport(a, args) })
	},
}

var profileImportCmd = &cobra.Command{
	Use:   "import <profile.json>",
	Short: "Copy a profile file into the installation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return runProfileImport(a, args) })
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd, profileExportCmd, profileImportCmd)
	profileImportCmd.Flags().BoolVar(&overwriteProfile, "overwrite", false, "replace a profile with the same file name")
}

func runProfileExport(a *app, args []string) error {
	l, err := a.layout()
	if err != nil {
		return err
	}
	profiles, err := profile.List(l.ProfilesDir)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		return fmt.Errorf("%w: no profiles in %s", profile.ErrNoProfiles, l.ProfilesDir)
	}
	labels := make([]string, len(profiles))
	for i, p := range profiles {
		labels[i] = fmt.Sprintf("%s (%s)", p.Username, p.FileName)
	}
	idx, err := a.prompt.Select("Profile to export:", labels)
	if err != nil {
		return err
	}

	dest := ""
	if len(args) == 1 {
		dest = args[0]
	} else if dest, err = a.prompt.Input("Export to folder:", ""); err != nil {
		return err
	}
	out, err := profile.Export(profiles[idx], dest)
	if err != nil {
		return err
	}
	fmt.Println(ui.Success("Profile exported to " + out))
	return nil
}

func runProfileImport(a *app, args []string) error {
	l, err := a.layout()
	if err != nil {
		return err
	}
	src := ""
	if len(args) == 1 {
		src = args[0]
	} else if src, err = a.prompt.Input("Profile file to import:", ""); err != nil {
		return err
	}

	opts := profile.ImportOptions{Overwrite: overwriteProfile}
	for {
		out, err := profile.Import(src, l.ProfilesDir, opts)
		if err == nil {
			fmt.Println(ui.Success("Profile imported to " + out))
			return nil
		}

		var question string
		switch {
		case errors.Is(err, profile.ErrNotAProfile) && !opts.AllowUnnamed:
			question = "The file has no username and may not be a profile. Import anyway?"
			opts.AllowUnnamed = true
		case errors.Is(err, profile.ErrExists) && !opts.Overwrite:
			question = "A profile with this file name exists. Overwrite it?"
			opts.Overwrite = true
		default:
			return err
		}
		ok, perr := a.prompt.Confirm(question, false)
		if perr != nil {
			return perr
		}
		if !ok {
			return ui.ErrAborted
		}
	}
}
