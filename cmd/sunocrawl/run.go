package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"sunocrawl/pkg/auth"
	"sunocrawl/pkg/capture"
	"sunocrawl/pkg/checkpoint"
	"sunocrawl/pkg/config"
	"sunocrawl/pkg/crawler"
	"sunocrawl/pkg/export"
	"sunocrawl/pkg/logger"
	"sunocrawl/pkg/refresh"
	"sunocrawl/pkg/storage"
	"sunocrawl/pkg/suno"
	"sunocrawl/pkg/ui"
)

var resumeRun bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture credentials, crawl every collection and build the workbook",
	Long: `Run the complete export.

1. Read a 'Copy as cURL (bash)' command from the clipboard, or from a paste
   ended by an empty line, and store the credentials it carries.
2. Watch for fresh cURL commands in the background.
3. Crawl every collection, writing one <name>_clips.json per collection.
4. Build suno_clips_<date>.xlsx and open it.

The stored credentials are deleted after a run in which every collection
succeeded, unless credentials.delete_on_success is false.`,
	Example: `  # Full export with defaults
  sunocrawl run

  # Only two workspaces, into a custom directory
  sunocrawl run --workspace "Lo-fi" --workspace Default -o ./dump

  # Resume an interrupted run
  sunocrawl run --resume`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl with already stored credentials",
	Long: `Crawl every collection using the credentials already in the store.

Use 'sunocrawl auth capture' first, and 'sunocrawl watch' in another
terminal to feed fresh credentials when they expire.`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(crawlCmd)

	for _, c := range []*cobra.Command{runCmd, crawlCmd} {
		c.Flags().StringArray("workspace", nil, "only crawl collections with this name (repeatable, case-insensitive)")
		c.Flags().Int("page-size", 0, "clips requested per page")
		c.Flags().Int("requests-per-minute", 0, "request pacing")
		c.Flags().Int("max-retries", 0, "attempts for transient failures")
		c.Flags().Bool("save-pages", true, "dump every raw page under pages/")
		c.Flags().Bool("open-workbook", true, "open the workbook when done")
		c.Flags().BoolVar(&resumeRun, "resume", false, "skip collections completed by an interrupted run")
	}
	runCmd.Flags().Bool("no-watcher", false, "do not watch for refreshed credentials")
	runCmd.Flags().String("watcher-mode", "", "refresh source (clipboard, stdin)")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logger.GetLogger()

	store, err := auth.NewStore(&cfg.Credentials)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	var source capture.Source
	if useClipboard(cfg) {
		source = capture.ClipboardSource{}
	}
	if !ui.IsQuietMode() {
		auth.ShowCaptureGuide(ui.Output())
	}

	// One reader serves the initial paste and the refresh watcher, so input
	// buffered past the first paste still reaches the watcher
	stdin := bufio.NewReader(os.Stdin)
	text, err := capture.ReadInitial(source, stdin, ui.Output(), log)
	if err != nil {
		return err
	}
	// Unusable credentials stop the run before any request is sent
	if _, err := capture.Apply(store, text, log); err != nil {
		return fmt.Errorf("initial credentials rejected: %w", err)
	}
	ui.PrintSuccess("Credentials stored")

	notifier := ui.NewNotifier(cfg.Notifications)
	watcher := newRefreshWatcher(cfg, store, stdin, log)
	if w, ok := watcher.(*capture.Watcher); ok {
		// The clipboard still holds the command just applied
		w.SkipCurrent()
	}

	report, crawlErr := crawlWithWatcher(ctx, store, notifier, watcher, log)
	if errors.Is(crawlErr, context.Canceled) {
		return crawlErr
	}

	finishRun(report, crawlErr, notifier, log)

	if crawlErr == nil && cfg.Credentials.DeleteOnSuccess {
		if err := store.Delete(); err != nil {
			log.WithError(err).Warn("Failed to delete stored credentials")
		} else {
			log.Info("Stored credentials deleted")
		}
	}
	return crawlErr
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logger.GetLogger()

	store, err := auth.NewStore(&cfg.Credentials)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	tuple, err := store.Load()
	if err != nil {
		ui.PrintError("No usable credentials stored", "run 'sunocrawl auth capture' first")
		return err
	}
	ui.PrintInfo("Using credentials", tuple.Sanitized().Bearer)

	notifier := ui.NewNotifier(cfg.Notifications)
	report, crawlErr := crawlWithWatcher(ctx, store, notifier, nil, log)
	if errors.Is(crawlErr, context.Canceled) {
		return crawlErr
	}

	finishRun(report, crawlErr, notifier, log)
	return crawlErr
}

// refreshWatcher produces fresh credentials while a crawl runs
type refreshWatcher interface {
	OnSaved(fn func(*auth.Tuple))
	Run(ctx context.Context) error
}

func useClipboard(c *config.Config) bool {
	return c.Watcher.Mode == "clipboard" && capture.ClipboardAvailable()
}

// newRefreshWatcher picks the refresh source: the clipboard when one is
// available, otherwise pastes read from stdin when it is interactive. It
// returns nil when neither can be used.
func newRefreshWatcher(c *config.Config, store auth.Store, stdin *bufio.Reader, log logger.Logger) refreshWatcher {
	if !c.Watcher.Enabled {
		return nil
	}

	var w refreshWatcher
	switch {
	case useClipboard(c):
		w = capture.NewWatcher(capture.ClipboardSource{}, store, c.Watcher.PollInterval, log)
	case term.IsTerminal(int(os.Stdin.Fd())):
		w = capture.NewStdinWatcher(stdin, ui.Output(), store, log)
	default:
		log.Warn("No clipboard and stdin is not a terminal; refresh credentials with 'sunocrawl auth capture'")
		return nil
	}

	w.OnSaved(func(*auth.Tuple) {
		ui.PrintSuccess("Fresh credentials captured")
	})
	return w
}

// crawlWithWatcher runs the crawl and, when given, the refresh watcher side
// by side. The watcher is stopped as soon as the crawl returns.
func crawlWithWatcher(ctx context.Context, store auth.Store, notifier *ui.Notifier, watcher refreshWatcher, log logger.Logger) (*crawler.Report, error) {
	orchestrator, err := newOrchestrator(store, notifier, log)
	if err != nil {
		return nil, err
	}

	crawlCtx, stopWatcher := context.WithCancel(ctx)
	defer stopWatcher()
	g, gctx := errgroup.WithContext(crawlCtx)

	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	var (
		report   *crawler.Report
		crawlErr error
	)
	g.Go(func() error {
		defer stopWatcher()
		report, crawlErr = orchestrator.CrawlAll(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("credential watcher failed: %w", err)
	}
	if crawlErr != nil && ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, crawlErr
}

// newOrchestrator wires the request client, refresh coordination, storage
// and checkpoints into an orchestrator for cfg
func newOrchestrator(store auth.Store, notifier *ui.Notifier, log logger.Logger) (*crawler.Orchestrator, error) {
	client := suno.NewClient(store, suno.OptionsFromConfig(cfg), log)
	feed := suno.NewFeed(client, cfg.Crawl.PageSize, suno.FeedFilters{
		HideDisliked:    cfg.Crawl.HideDisliked,
		HideStudioClips: cfg.Crawl.HideStudioClips,
		HideGenStems:    cfg.Crawl.HideGenStems,
	})
	coordinator := refresh.NewCoordinator(store, notifier, cfg.Retry.RefreshPollInterval, log)

	output, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, err
	}

	progress := ui.NewProgressDisplay()
	engine := crawler.NewEngine(feed, coordinator, cfg.Crawl.PageDelay, log)
	engine.SetProgress(progress)
	if cfg.Output.SavePages {
		engine.SetPageSink(output)
	}

	orchestrator := crawler.NewOrchestrator(feed, engine, output, crawler.Options{
		Workspaces: cfg.Crawl.Workspaces,
		Resume:     resumeRun,
	}, log)
	orchestrator.SetProgress(progress)

	checkpoints, err := checkpoint.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		log.WithError(err).Warn("Checkpoints disabled")
	} else {
		orchestrator.SetCheckpointManager(checkpoints)
	}
	return orchestrator, nil
}

// finishRun prints the summary, builds the workbook and rings the bell
func finishRun(report *crawler.Report, crawlErr error, notifier *ui.Notifier, log logger.Logger) {
	if report != nil {
		ui.PrintSummary(summaryRows(report), report.Elapsed)
	}
	if crawlErr != nil {
		ui.PrintError("Some collections failed", crawlErr.Error())
	}

	if cfg.Output.BuildWorkbook {
		buildWorkbook(cfg.Output.BaseDirectory, cfg.Output.WorkbookDirectory, cfg.Output.OpenWorkbook, log)
	}

	if crawlErr != nil {
		notifier.SendError("sunocrawl", "Crawl finished with failures")
	} else {
		notifier.SendSuccess("sunocrawl", "Crawl finished")
	}
	notifier.Bell()
}

func summaryRows(report *crawler.Report) []ui.SummaryRow {
	rows := make([]ui.SummaryRow, 0, len(report.Collections))
	for _, c := range report.Collections {
		rows = append(rows, ui.SummaryRow{
			Name:   c.Collection.Name,
			ID:     c.Collection.ID,
			Count:  c.Count,
			Failed: c.Err != nil,
		})
	}
	return rows
}

// buildWorkbook builds the spreadsheet from dumpDir and optionally opens it.
// Failures are reported but never fail the run: the JSON artifacts are the
// primary output.
func buildWorkbook(dumpDir, outDir string, open bool, log logger.Logger) string {
	start := time.Now()
	path, err := export.NewBuilder(log).Build(dumpDir, outDir)
	if err != nil {
		if errors.Is(err, export.ErrNoClips) {
			ui.PrintWarning("No clips to export", dumpDir)
		} else {
			ui.PrintError("Failed to build workbook", err.Error())
		}
		return ""
	}

	ui.PrintSuccess(fmt.Sprintf("Workbook written: %s (%s)", path, ui.FormatDuration(time.Since(start))))
	if open {
		if err := ui.OpenFile(path); err != nil {
			log.WithError(err).Warn("Failed to open workbook")
		}
	}
	return path
}
