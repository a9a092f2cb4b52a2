package main

import (
	"github.com/spf13/cobra"

	"sunocrawl/pkg/logger"
)

var (
	exportDir    string
	exportOut    string
	exportNoOpen bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Build the Excel workbook from existing artifacts",
	Long: `Build suno_clips_<date>.xlsx from the *_clips.json artifacts of a dump
directory without contacting the API.

The workbook has one ALL sheet with every clip and one sheet per
collection. An existing workbook of the same day is never overwritten.`,
	Example: `  sunocrawl export
  sunocrawl export --dir ./suno_api_dump --out ./reports --no-open`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		dir := exportDir
		if dir == "" {
			dir = cfg.Output.BaseDirectory
		}
		out := exportOut
		if out == "" {
			out = cfg.Output.WorkbookDirectory
		}
		buildWorkbook(dir, out, cfg.Output.OpenWorkbook && !exportNoOpen, logger.GetLogger())
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportDir, "dir", "", "dump directory to read (default: output directory)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "directory for the workbook")
	exportCmd.Flags().BoolVar(&exportNoOpen, "no-open", false, "do not open the workbook")
}
