package cmd

import (
	"errors"
	"fmt"
	"strings"

	"spt-installer/config"
	"spt-installer/ui"

	"github.com/spf13/cobra"
)

// menuItem is one entry of the interactive menu.
type menuItem struct {
	label string
	run   func(cmd *cobra.Command, a *app) error
}

var errQuit = errors.New("quit")

func menuItems() []menuItem {
	return []menuItem{
		{"Select installation folder", func(_ *cobra.Command, a *app) error { return selectPath(a, "") }},
		{"Automatic install", func(cmd *cobra.Command, a *app) error { return runInstall(cmd, a, "") }},
		{"Start game", runLaunch},
		{"Install mods", func(cmd *cobra.Command, a *app) error { return runModInstall(cmd, a, nil) }},
		{"Uninstall a mod", func(_ *cobra.Command, a *app) error { return runModUninstall(a, nil) }},
		{"Uninstall all mods", func(_ *cobra.Command, a *app) error { return runModUninstallAll(a) }},
		{"Mod browser", func(cmd *cobra.Command, a *app) error { return runModBrowser(cmd.Context(), a) }},
		{"Download a mod", func(cmd *cobra.Command, a *app) error { return runModDownload(cmd, a, nil) }},
		{"Multiplayer: host", func(cmd *cobra.Command, a *app) error { return runFikaHost(cmd, a, nil) }},
		{"Multiplayer: join", func(cmd *cobra.Command, a *app) error { return runFikaJoin(cmd, a, nil) }},
		{"Multiplayer: back to solo", runFikaSolo},
		{"Download a server version", func(cmd *cobra.Command, a *app) error { return runServerDownload(cmd, a, nil) }},
		{"Switch server version", func(cmd *cobra.Command, a *app) error { return runServerSwitch(cmd, a, nil) }},
		{"Export a profile", func(_ *cobra.Command, a *app) error { return runProfileExport(a, nil) }},
		{"Import a profile", func(_ *cobra.Command, a *app) error { return runProfileImport(a, nil) }},
		{"Check for installer update", func(cmd *cobra.Command, a *app) error {
			ann, err := a.announcement(cmd.Context())
			if err != nil {
				return err
			}
			return runSelfUpdate(cmd.Context(), a, ann)
		}},
		{"Uninstall game", func(_ *cobra.Command, a *app) error { return runUninstallGame(a) }},
		{"Exit", func(*cobra.Command, *app) error { return errQuit }},
	}
}

// runMenu shows the interactive menu until the user exits.
func runMenu(cmd *cobra.Command) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.NonInteractive {
		return fmt.Errorf("the menu needs an interactive terminal, pass a subcommand instead")
	}

	fmt.Println(ui.Title("SPT Installer " + config.SoftwareVersion))
	if ann := checkUpdateQuietly(cmd.Context(), a); ann != nil {
		printAnnouncement(ann)
		if info := ann.CheckUpdate(a.cfg.SoftwareVersion); info.Available {
			fmt.Println(ui.Warn("A newer installer (" + info.Latest + ") is available, see \"Check for installer update\"."))
		}
	}

	items := menuItems()
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.label
	}

	for {
		fmt.Println()
		fmt.Println(statusLine(a))
		idx, err := a.prompt.Select("What do you want to do?", labels)
		if errors.Is(err, ui.ErrAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		err = items[idx].run(cmd, a)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case errors.Is(err, ui.ErrAborted):
			fmt.Println(ui.Dim("Cancelled."))
		case err != nil:
			fmt.Println(ui.Error("Error: " + err.Error()))
			if hint := remedy(err); hint != "" {
				fmt.Println(ui.Warn(hint))
			}
		}
	}
}

func statusLine(a *app) string {
	root, err := a.root()
	if err != nil {
		return ui.Warn("No installation folder selected.")
	}
	parts := []string{"Folder: " + root}
	if m, ok := a.store.Load(root); ok {
		parts = append(parts, "Version: "+m.Version, fmt.Sprintf("Mods: %d", len(m.Mods)))
	} else {
		parts = append(parts, "Not installed")
	}
	if st, err := a.fika.Status(root); err == nil {
		parts = append(parts, "Multiplayer: "+st.String())
	}
	return ui.Info(strings.Join(parts, "  |  "))
}
