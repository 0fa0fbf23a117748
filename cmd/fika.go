package cmd

import (
	"fmt"
	"os"

	"spt-installer/fika"
	"spt-installer/ui"

	"github.com/spf13/cobra"
)

var removeFika bool

var fikaCmd = &cobra.Command{
	Use:   "fika",
	Short: "Host, join or leave Fika multiplayer",
}

var fikaStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the multiplayer mode of the installation",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withApp(func(a *app) error {
			root, err := a.root()
			if err != nil {
				return err
			}
			st, err := a.fika.Status(root)
			if err != nil {
				return err
			}
			fmt.Println("Multiplayer:", ui.Info(st.String()))
			return nil
		})
	},
}

var fikaHostCmd = &cobra.Command{
	Use:   "host [public-ip]",
	Short: "Run the server for other players",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return runFikaHost(cmd, a, args) })
	},
}

var fikaJoinCmd = &cobra.Command{
	Use:   "join [host-ip] [my-ip]",
	Short: "Connect to another player's server",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return runFikaJoin(cmd, a, args) })
	},
}

var fikaSoloCmd = &cobra.Command{
	Use:   "solo",
	Short: "Return to single-player",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(func(a *app) error { return runFikaSolo(cmd, a) })
	},
}

func init() {
	rootCmd.AddCommand(fikaCmd)
	fikaCmd.AddCommand(fikaStatusCmd, fikaHostCmd, fikaJoinCmd, fikaSoloCmd)
	fikaSoloCmd.Flags().BoolVar(&removeFika, "remove", false, "also delete the multiplayer mod files")
}

func ensureFika(cmd *cobra.Command, a *app, root string) error {
	if a.fika.FilesInstalled(root) {
		return nil
	}
	fmt.Println(ui.Info("Installing the multiplayer mod..."))
	ann, err := a.announcement(cmd.Context())
	if err != nil {
		return err
	}
	bar := ui.NewProgressBar(os.Stdout, "fika")
	err = a.fika.EnsureInstalled(cmd.Context(), root, ann, a.downloader(), bar.Update)
	bar.Done()
	if err != nil {
		return err
	}
	fmt.Println(ui.Success("Multiplayer mod installed."))
	return nil
}

// askIP prompts with the remembered value as default unless arg already holds the answer.
func askIP(a *app, args []string, i int, question, last string) (string, error) {
	if len(args) > i && args[i] != "" {
		return args[i], nil
	}
	return a.prompt.Input(question, last)
}

func runFikaHost(cmd *cobra.Command, a *app, args []string) error {
	root, err := a.root()
	if err != nil {
		return err
	}
	if err := ensureFika(cmd, a, root); err != nil {
		return err
	}
	if !a.fika.ConfigInitialized(root) {
		return offerFirstLaunch(cmd, a)
	}
	lastHost, _ := a.fika.LastAddresses(root)
	ip, err := askIP(a, args, 0, "Your public IP:", lastHost)
	if err != nil {
		return err
	}
	if err := a.fika.Host(root, ip); err != nil {
		return err
	}
	fmt.Println(ui.Success("Server configured. Give other players this IP: " + ip))

	ok, err := a.prompt.Confirm("Start the game now?", true)
	if err != nil || !ok {
		return err
	}
	return runLaunch(cmd, a)
}

func runFikaJoin(cmd *cobra.Command, a *app, args []string) error {
	root, err := a.root()
	if err != nil {
		return err
	}
	if err := ensureFika(cmd, a, root); err != nil {
		return err
	}
	if !a.fika.ConfigInitialized(root) {
		return offerFirstLaunch(cmd, a)
	}
	lastHost, lastMine := a.fika.LastAddresses(root)
	hostIP, err := askIP(a, args, 0, "Host's server IP:", lastHost)
	if err != nil {
		return err
	}
	myIP, err := askIP(a, args, 1, "Your public IP:", lastMine)
	if err != nil {
		return err
	}
	if err := a.fika.Join(root, hostIP, myIP); err != nil {
		return err
	}
	fmt.Println(ui.Success("Client configured for " + hostIP))

	ok, err := a.prompt.Confirm("Start the game now?", true)
	if err != nil || !ok {
		return err
	}
	return runLaunchClient(a)
}

// offerFirstLaunch starts the game once so the mod can write its config file.
func offerFirstLaunch(cmd *cobra.Command, a *app) error {
	fmt.Println(ui.Warn("The multiplayer config file has not been generated yet."))
	fmt.Println("Start the game, log in to the character screen, quit, then configure multiplayer again.")
	ok, err := a.prompt.Confirm("Start the game now?", true)
	if err != nil {
		return err
	}
	if !ok {
		return fika.ErrConfigMissing
	}
	return runLaunch(cmd, a)
}

func runFikaSolo(cmd *cobra.Command, a *app) error {
	root, err := a.root()
	if err != nil {
		return err
	}
	remove := removeFika
	if !cmd.Flags().Changed("remove") && a.fika.FilesInstalled(root) {
		remove, err = a.prompt.Confirm("Also uninstall the multiplayer mod? (keep it to rejoin faster)", false)
		if err != nil {
			return err
		}
	}
	if err := a.fika.RestoreSolo(root, remove); err != nil {
		return err
	}
	fmt.Println(ui.Success("Single-player settings restored."))
	if remove {
		fmt.Println(ui.Success("Multiplayer mod removed."))
	}
	return nil
}
