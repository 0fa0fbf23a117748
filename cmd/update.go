package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"spt-installer/feed"
	"spt-installer/logger"
	"spt-installer/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Show the announcement and download a newer installer if one is available",
	Long: `Fetches the announcement feed, prints its message and compares the advertised
installer version with this one. A newer installer is saved next to this executable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(func(a *app) error {
			ann, err := a.announcement(cmd.Context())
			if err != nil {
				return err
			}
			printAnnouncement(ann)
			return runSelfUpdate(cmd.Context(), a, ann)
		})
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func printAnnouncement(ann *feed.Announcement) {
	if content := strings.TrimSpace(ann.Content); content != "" {
		fmt.Println(ui.Banner(content))
	}
}

func runSelfUpdate(ctx context.Context, a *app, ann *feed.Announcement) error {
	info := ann.CheckUpdate(a.cfg.SoftwareVersion)
	if !info.Available {
		fmt.Println(ui.Success(fmt.Sprintf("Installer %s is up to date.", info.Current)))
		return nil
	}

	fmt.Println(ui.Warn(fmt.Sprintf("Installer %s is available (running %s).", info.Latest, info.Current)))
	ok, err := a.prompt.Confirm("Download it now?", true)
	if err != nil || !ok {
		return err
	}

	name, err := feed.SafeFileName(feed.InstallerFileName(info.Latest))
	if err != nil {
		return err
	}
	dst := filepath.Join(a.cfg.BaseDir, name)
	bar := ui.NewProgressBar(os.Stdout, info.Latest)
	err = a.downloader().Download(ctx, info.DownloadURL, dst, bar.Update)
	bar.Done()
	if err != nil {
		return err
	}
	logger.Log.Infow("Installer update downloaded", zap.String("path", dst))
	fmt.Println(ui.Success("Saved " + dst + ". Close this window and run the new installer."))
	return nil
}

// checkUpdateQuietly is used by the menu at startup. Network failures are only logged.
func checkUpdateQuietly(ctx context.Context, a *app) *feed.Announcement {
	ann, err := a.announcement(ctx)
	if err != nil {
		logger.Log.Warnw("Announcement unavailable", zap.Error(err))
		return nil
	}
	return ann
}
