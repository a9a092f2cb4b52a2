package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sunocrawl/pkg/auth"
	"sunocrawl/pkg/capture"
	"sunocrawl/pkg/logger"
	"sunocrawl/pkg/ui"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Store fresh credentials whenever a new cURL command is copied",
	Long: `Watch the clipboard (or stdin when no clipboard is available) and store
the credentials of every new 'Copy as cURL (bash)' command.

Run it next to 'sunocrawl crawl': a crawl waiting on expired credentials
resumes as soon as the watcher stores new ones. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.GetLogger()
		store, err := auth.NewStore(&cfg.Credentials)
		if err != nil {
			return fmt.Errorf("failed to open credential store: %w", err)
		}

		cfg.Watcher.Enabled = true
		watcher := newRefreshWatcher(cfg, store, bufio.NewReader(os.Stdin), log)
		if watcher == nil {
			return errors.New("no clipboard available and stdin is not a terminal")
		}
		if w, ok := watcher.(*capture.Watcher); ok {
			w.SkipCurrent()
		}

		if !ui.IsQuietMode() {
			auth.ShowQuickCaptureGuide(ui.Output())
		}
		ui.PrintHighlight("Watching for cURL commands, Ctrl+C to stop")
		return watcher.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("watcher-mode", "", "refresh source (clipboard, stdin)")
}
