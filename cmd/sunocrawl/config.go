package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sunocrawl/pkg/config"
	"sunocrawl/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage sunocrawl configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables (SUNOCRAWL_*, also read from .env)
  - Configuration file
  - Default values`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every default",
	Long: `Write a configuration file holding every option at its default value.

The file is created as '.sunocrawl.yaml' in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	// The file to create does not exist yet, so skip loading it
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			path = ".sunocrawl.yaml"
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s", path)
		}

		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		ui.PrintSuccess("Configuration file created: " + path)
		return nil
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging flags, environment variables, the
configuration file and defaults. Credentials are never part of it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to format configuration: %w", err)
		}

		ui.PrintHighlight("Current Configuration")
		fmt.Fprint(ui.Output(), string(data))
		return nil
	},
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		// Loading already validated it; getting here means it is valid
		ui.PrintSuccess("Configuration is valid")
		out := ui.Output()
		fmt.Fprintf(out, "  Output directory:    %s\n", cfg.Output.BaseDirectory)
		fmt.Fprintf(out, "  Credentials backend: %s\n", cfg.Credentials.Backend)
		fmt.Fprintf(out, "  Page size:           %d\n", cfg.Crawl.PageSize)
		fmt.Fprintf(out, "  Rate limit:          %d requests/minute\n", cfg.Crawl.RequestsPerMinute)
		fmt.Fprintf(out, "  Max retries:         %d\n", cfg.Retry.MaxAttempts)
		fmt.Fprintf(out, "  Watcher:             %s (enabled: %t)\n", cfg.Watcher.Mode, cfg.Watcher.Enabled)
		fmt.Fprintf(out, "  Log level:           %s\n", cfg.Logging.Level)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}
