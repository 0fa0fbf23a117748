package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"spt-installer/feed"
	"spt-installer/mods"
	"spt-installer/ui"

	"github.com/spf13/cobra"
)

var errUnknownMod = errors.New("no such mod")

var modCmd = &cobra.Command{
	Use:   "mod",
	Short: "Install, list and remove mods",
}

var modListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available mod archives and installed mods",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withApp(runModList)
	},
}

var modInstallCmd = &cobra.Command{
	Use:   "install [name...]",
	Short: "Install mod archives from resources/mods",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return runModInstall(cmd, a, args) })
	},
}

var modUninstallCmd = &cobra.Command{
	Use:   "uninstall [name...]",
	Short: "Remove installed mods using their recorded file lists",
	RunE: func(_ *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return runModUninstall(a, args) })
	},
}

var modUninstallAllCmd = &cobra.Command{
	Use:   "uninstall-all",
	Short: "Remove every server mod and client plugin except the base game's",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withApp(runModUninstallAll)
	},
}

var modDownloadCmd = &cobra.Command{
	Use:   "download [name]",
	Short: "Download a mod listed in the announcement feed into resources/mods",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return runModDownload(cmd, a, args) })
	},
}

func init() {
	rootCmd.AddCommand(modCmd)
	modCmd.AddCommand(modListCmd, modInstallCmd, modUninstallCmd, modUninstallAllCmd, modDownloadCmd)
}

func runModList(a *app) error {
	pkgs, err := a.mods.Discover()
	if err != nil {
		return err
	}
	installed := map[string]bool{}
	if root, err := a.root(); err == nil {
		if recs, err := a.mods.Installed(root); err == nil {
			for name, rec := range recs {
				installed[name] = true
				fmt.Printf("%s %-40s %-12s %d files\n", ui.Success("●"), name, rec.Version, len(rec.Files))
			}
		}
	}
	for _, p := range pkgs {
		if !installed[p.Name] {
			fmt.Printf("%s %-40s %s\n", ui.Dim("○"), p.Name, ui.Dim("available"))
		}
	}
	if len(pkgs) == 0 && len(installed) == 0 {
		fmt.Println(ui.Warn("No mods found in " + a.cfg.ModsDir))
	}
	return nil
}

func pickPackages(a *app, names []string) ([]mods.Package, error) {
	pkgs, err := a.mods.Discover()
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no mod archives in %s", a.cfg.ModsDir)
	}
	if len(names) == 0 {
		labels := make([]string, len(pkgs))
		for i, p := range pkgs {
			labels[i] = p.Name
		}
		idx, err := a.prompt.Select("Mod to install:", labels)
		if err != nil {
			return nil, err
		}
		return []mods.Package{pkgs[idx]}, nil
	}

	byName := map[string]mods.Package{}
	for _, p := range pkgs {
		byName[p.Name] = p
	}
	var out []mods.Package
	for _, n := range names {
		p, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("%w: %s", errUnknownMod, n)
		}
		out = append(out, p)
	}
	return out, nil
}

func runModInstall(cmd *cobra.Command, a *app, names []string) error {
	root, err := a.root()
	if err != nil {
		return err
	}
	pkgs, err := pickPackages(a, names)
	if err != nil {
		return err
	}
	if _, err := a.coord.Close(true); err != nil {
		return err
	}

	var errs []error
	for _, p := range pkgs {
		bar := ui.NewProgressBar(os.Stdout, p.Name)
		rec, err := a.mods.Install(cmd.Context(), root, p, bar.Count)
		bar.Done()
		if err != nil {
			fmt.Println(ui.Error(fmt.Sprintf("%s: %v", p.Name, err)))
			errs = append(errs, err)
			continue
		}
		fmt.Println(ui.Success(fmt.Sprintf("Installed %s (%d files)", p.Name, len(rec.Files))))
	}
	return errors.Join(errs...)
}

func runModUninstall(a *app, names []string) error {
	root, err := a.root()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		recs, err := a.mods.Installed(root)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println(ui.Warn("No mods installed."))
			return nil
		}
		labels := make([]string, 0, len(recs))
		for n := range recs {
			labels = append(labels, n)
		}
		sort.Strings(labels)
		idx, err := a.prompt.Select("Mod to uninstall:", labels)
		if err != nil {
			return err
		}
		names = []string{labels[idx]}
	}
	if _, err := a.coord.Close(true); err != nil {
		return err
	}

	var errs []error
	for _, n := range names {
		res, err := a.mods.Uninstall(root, n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Println(ui.Success(fmt.Sprintf("Uninstalled %s: %s", n, res.Summary())))
		for _, e := range res.Errors {
			fmt.Println(ui.Warn("  " + e.Error()))
		}
	}
	return errors.Join(errs...)
}

func runModUninstallAll(a *app) error {
	root, err := a.root()
	if err != nil {
		return err
	}
	ok, err := a.prompt.Confirm("Remove every mod (the base game's spt plugins are kept)?", false)
	if err != nil {
		return err
	}
	if !ok {
		return ui.ErrAborted
	}
	if _, err := a.coord.Close(true); err != nil {
		return err
	}
	res, err := a.mods.UninstallAll(root)
	if err != nil {
		return err
	}
	fmt.Println(ui.Success("All mods removed: " + res.Summary()))
	return nil
}

func runModDownload(cmd *cobra.Command, a *app, args []string) error {
	ann, err := a.announcement(cmd.Context())
	if err != nil {
		return err
	}
	if len(ann.ModVersions) == 0 {
		return fmt.Errorf("the announcement feed lists no mods")
	}

	var mv feed.ModVersion
	if len(args) == 1 {
		found := false
		for _, m := range ann.ModVersions {
			if m.Name == args[0] {
				mv, found = m, true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", errUnknownMod, args[0])
		}
	} else {
		labels := make([]string, len(ann.ModVersions))
		for i, m := range ann.ModVersions {
			labels[i] = m.Name
		}
		idx, err := a.prompt.Select("Mod to download:", labels)
		if err != nil {
			return err
		}
		mv = ann.ModVersions[idx]
	}

	name, err := feed.SafeFileName(mv.ZipName)
	if err != nil {
		return err
	}
	if err := a.cfg.EnsureResourceDirs(); err != nil {
		return err
	}
	dst := filepath.Join(a.cfg.ModsDir, name)
	if _, err := os.Stat(dst); err == nil {
		fmt.Println(ui.Info(name + " is already downloaded."))
		return nil
	}
	bar := ui.NewProgressBar(os.Stdout, mv.Name)
	err = a.downloader().Download(cmd.Context(), mv.DownloadURL, dst, bar.Update)
	bar.Done()
	if err != nil {
		return err
	}
	fmt.Println(ui.Success("Downloaded " + name + ". Install it with: spt-installer mod install"))
	return nil
}
