package cmd

import (
	"fmt"

	"spt-installer/ui"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent changes made to the installation",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withApp(func(a *app) error {
			root, err := a.root()
			if err != nil {
				return err
			}
			entries, err := a.history.History(root, historyLimit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println(ui.Dim("No history yet."))
			}
			for _, e := range entries {
				fmt.Printf("%s  %-15s %-30s %-10s %s\n",
					ui.Dim(e.CreatedAt.Format("2006-01-02 15:04")),
					ui.Info(string(e.Kind)),
					truncate(e.Subject, 30),
					e.Version,
					e.Detail,
				)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show")
}
