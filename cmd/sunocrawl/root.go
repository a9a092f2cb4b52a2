package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"sunocrawl/pkg/config"
	"sunocrawl/pkg/logger"
	"sunocrawl/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	quiet      bool

	// cfg is loaded once per invocation before any command runs
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sunocrawl",
	Short: "Export every Suno clip of your account, collection by collection",
	Long: `sunocrawl pages through the clip feed of every Suno collection (the
default workspace and each project), merges the pages into one JSON
artifact per collection and builds an Excel workbook from the result.

Credentials come from a browser request copied as cURL. When they expire
mid-crawl the terminal beeps and the crawl waits; copy a fresh cURL command
and it resumes on the same page.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configFile, collectFlags(cmd))
		if err != nil {
			return err
		}
		cfg = loaded

		if quiet || cfg.Logging.Level == "error" {
			ui.SetQuietMode(true)
		}
		// Resolve the per-run log file once so the path logged below is the
		// one written to
		cfg.Logging.File = logger.LogFilePath(&cfg.Logging, time.Now())
		if err := logger.Initialize(&cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		if cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
			ui.PrintInfo("Version", version)
		}
		logger.WithFields(map[string]interface{}{
			"version": version,
			"command": cmd.Name(),
			"log":     cfg.Logging.File,
		}).Info("sunocrawl starting")
		return nil
	},
}

// Execute runs the root command and returns the process exit code
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		ui.PrintWarning("Interrupted")
		return 130
	default:
		ui.PrintError("sunocrawl failed", err.Error())
		if cfg != nil {
			logger.WithError(err).Error("Run failed")
		}
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .sunocrawl.yaml or ~/.config/sunocrawl/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-dir", "", "directory for run_<timestamp>.log files")
	rootCmd.PersistentFlags().StringP("output", "o", "", "dump directory for per-collection artifacts")
	rootCmd.PersistentFlags().String("auth-file", "", "credential file path")
	rootCmd.PersistentFlags().String("credentials-backend", "", "credential store backend (file, encrypted, keyring)")
	rootCmd.PersistentFlags().Bool("notifications", true, "ring the bell and show alerts")

	rootCmd.SetVersionTemplate(`sunocrawl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

var (
	stringFlags = []string{"output", "auth-file", "credentials-backend", "log-level", "log-dir", "watcher-mode"}
	intFlags    = []string{"page-size", "requests-per-minute", "max-retries"}
	boolFlags   = []string{"no-watcher", "open-workbook", "save-pages", "notifications"}
)

// collectFlags returns the configuration overrides the user set explicitly
// on the command line, keyed the way config.MergeCommandLineFlags expects
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	fs := cmd.Flags()

	for _, name := range stringFlags {
		if fs.Changed(name) {
			if v, err := fs.GetString(name); err == nil {
				flags[name] = v
			}
		}
	}
	for _, name := range intFlags {
		if fs.Changed(name) {
			if v, err := fs.GetInt(name); err == nil {
				flags[name] = v
			}
		}
	}
	for _, name := range boolFlags {
		if fs.Changed(name) {
			if v, err := fs.GetBool(name); err == nil {
				flags[name] = v
			}
		}
	}
	if fs.Changed("workspace") {
		if v, err := fs.GetStringArray("workspace"); err == nil {
			flags["workspace"] = v
		}
	}
	return flags
}
