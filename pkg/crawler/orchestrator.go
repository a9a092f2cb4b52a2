package crawler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"sunocrawl/pkg/checkpoint"
	"sunocrawl/pkg/logger"
	"sunocrawl/pkg/models"
	"sunocrawl/pkg/storage"
)

// Options controls which collections a run crawls
type Options struct {
	// Workspaces is an allow-list of collection names; empty selects all
	Workspaces []string
	// Resume skips collections recorded as complete in the checkpoint
	Resume bool
}

// CollectionReport is the outcome for one collection
type CollectionReport struct {
	Collection models.Collection
	Count      int
	Artifact   string
	// Resumed is set when the collection was completed by an earlier run
	Resumed bool
	Err     error
}

// Report summarizes a run
type Report struct {
	Collections []CollectionReport
	Elapsed     time.Duration
}

// Counts maps collection id to item count for every persisted collection
func (r *Report) Counts() map[string]int {
	counts := make(map[string]int, len(r.Collections))
	for _, c := range r.Collections {
		if c.Err == nil {
			counts[c.Collection.ID] = c.Count
		}
	}
	return counts
}

// Failed returns the collections that could not be crawled or persisted
func (r *Report) Failed() []CollectionReport {
	var failed []CollectionReport
	for _, c := range r.Collections {
		if c.Err != nil {
			failed = append(failed, c)
		}
	}
	return failed
}

// Orchestrator crawls every selected collection in turn and persists each
// one as soon as it is complete
type Orchestrator struct {
	lister      CollectionLister
	engine      *Engine
	storage     *storage.Manager
	checkpoints *checkpoint.Manager
	progress    Progress
	opts        Options
	logger      logger.Logger
}

// NewOrchestrator creates an orchestrator writing artifacts through store
func NewOrchestrator(lister CollectionLister, engine *Engine, store *storage.Manager, opts Options, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Orchestrator{
		lister:  lister,
		engine:  engine,
		storage: store,
		opts:    opts,
		logger:  log,
	}
}

// SetCheckpointManager enables run checkpoints
func (o *Orchestrator) SetCheckpointManager(m *checkpoint.Manager) {
	o.checkpoints = m
}

// SetProgress sets the progress display for collection headers and footers
func (o *Orchestrator) SetProgress(p Progress) {
	o.progress = p
}

// CrawlAll enumerates the collections once, dumps the enumeration, then
// crawls the selected collections sequentially. A collection that fails is
// recorded and the run moves on; the returned error joins every such
// failure. Cancellation stops the run immediately.
func (o *Orchestrator) CrawlAll(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}
	defer func() { report.Elapsed = time.Since(start) }()

	listing, err := o.lister.ListCollections(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to enumerate collections: %w", err)
	}

	if path, err := o.storage.SaveEnumeration(listing.Raw); err != nil {
		o.logger.WithError(err).Warn("Failed to save collection enumeration")
	} else {
		o.logger.DebugWithFields("Saved collection enumeration", map[string]interface{}{"path": path})
	}

	selected := FilterCollections(listing.Collections, o.opts.Workspaces)
	o.logger.InfoWithFields("Collections selected", map[string]interface{}{
		"enumerated": len(listing.Collections),
		"selected":   len(selected),
	})
	if len(selected) == 0 && len(o.opts.Workspaces) > 0 {
		o.logger.WarnWithFields("No collection matched the workspace filter", map[string]interface{}{
			"workspaces": strings.Join(o.opts.Workspaces, ","),
		})
	}

	cp := o.openCheckpoint()
	if cp != nil {
		o.reserveCompleted(selected, cp)
	}

	var failures []error
	for _, c := range selected {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if cp != nil && cp.IsCompleted(c.ID) {
			rec := cp.Completed[c.ID]
			o.logger.InfoWithFields("Skipping collection completed by an earlier run", map[string]interface{}{
				"collection": c.Name,
				"count":      rec.Count,
			})
			report.Collections = append(report.Collections, CollectionReport{
				Collection: c, Count: rec.Count, Artifact: rec.Artifact, Resumed: true,
			})
			continue
		}

		entry, err := o.crawlOne(ctx, c, cp)
		if err != nil && ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Collections = append(report.Collections, entry)
		if err != nil {
			failures = append(failures, fmt.Errorf("collection %q (%s): %w", c.Name, c.ID, err))
		}
	}

	if len(failures) == 0 && o.checkpoints != nil {
		if err := o.checkpoints.Delete(); err != nil {
			o.logger.WithError(err).Warn("Failed to delete checkpoint")
		}
	}

	o.logger.InfoWithFields("Crawl finished", map[string]interface{}{
		"collections": len(report.Collections),
		"failed":      len(failures),
	})
	return report, errors.Join(failures...)
}

// crawlOne crawls and persists a single collection
func (o *Orchestrator) crawlOne(ctx context.Context, c models.Collection, cp *checkpoint.Checkpoint) (CollectionReport, error) {
	entry := CollectionReport{Collection: c}
	if o.progress != nil {
		o.progress.StartCollection(c.SafeName(), c.ID, c.ExpectedCount)
	}

	result, err := o.engine.CrawlCollection(ctx, c)
	if err == nil {
		entry.Artifact, err = o.storage.SaveCollection(c, result)
	}
	if err != nil {
		entry.Err = err
		if ctx.Err() == nil {
			o.logger.WithError(err).ErrorWithFields("Collection failed, continuing with the next one", map[string]interface{}{
				"collection_id": c.ID,
				"collection":    c.Name,
				"merged":        result.Count(),
			})
			if o.progress != nil {
				o.progress.FailCollection(err)
			}
		}
		return entry, err
	}

	entry.Count = result.Count()
	if o.progress != nil {
		o.progress.CompleteCollection(entry.Artifact)
	}
	o.logger.InfoWithFields("Collection saved", map[string]interface{}{
		"collection_id": c.ID,
		"count":         entry.Count,
		"path":          entry.Artifact,
	})

	if cp != nil {
		if err := o.checkpoints.RecordCollection(cp, c.ID, checkpoint.CollectionRecord{
			Name: c.Name, Count: entry.Count, Artifact: entry.Artifact,
		}); err != nil {
			o.logger.WithError(err).Warn("Failed to update checkpoint")
		}
	}
	return entry, nil
}

// reserveCompleted claims the file names of collections persisted by an
// earlier run before anything is written, so no collection of this run can
// resolve to one of them
func (o *Orchestrator) reserveCompleted(selected []models.Collection, cp *checkpoint.Checkpoint) {
	for _, c := range selected {
		rec, ok := cp.Completed[c.ID]
		if !ok {
			continue
		}
		base := strings.TrimSuffix(filepath.Base(rec.Artifact), storage.ArtifactSuffix)
		if rec.Artifact == "" || base == "" {
			base = o.storage.BaseName(c)
		}
		o.storage.Reserve(c, base)
	}
}

// openCheckpoint loads the checkpoint when resuming, or starts a new one
func (o *Orchestrator) openCheckpoint() *checkpoint.Checkpoint {
	if o.checkpoints == nil {
		return nil
	}

	if o.opts.Resume {
		cp, err := o.checkpoints.Load()
		if err != nil {
			o.logger.WithError(err).Warn("Failed to load checkpoint, starting fresh")
		} else if cp != nil {
			o.logger.InfoWithFields("Resuming from checkpoint", map[string]interface{}{
				"completed": len(cp.Completed),
			})
			o.trackPages(cp)
			return cp
		}
	}

	cp, err := o.checkpoints.Create(o.storage.GetOutputDir())
	if err != nil {
		o.logger.WithError(err).Warn("Failed to create checkpoint, continuing without one")
		return nil
	}
	o.trackPages(cp)
	return cp
}

// trackPages records the page in flight in the checkpoint
func (o *Orchestrator) trackPages(cp *checkpoint.Checkpoint) {
	o.engine.SetPageHook(func(c models.Collection, page int) {
		if err := o.checkpoints.UpdateProgress(cp, c.ID, page); err != nil {
			o.logger.WithError(err).Debug("Failed to update checkpoint progress")
		}
	})
}

// FilterCollections keeps the collections whose raw or sanitized name
// matches an allow-list entry, ignoring case. An empty allow-list keeps all.
func FilterCollections(collections []models.Collection, allow []string) []models.Collection {
	fold := cases.Fold()

	wanted := make(map[string]struct{}, len(allow))
	for _, name := range allow {
		if name = strings.TrimSpace(name); name != "" {
			wanted[fold.String(name)] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return collections
	}

	var selected []models.Collection
	for _, c := range collections {
		_, raw := wanted[fold.String(c.Name)]
		_, safe := wanted[fold.String(c.SafeName())]
		if raw || safe {
			selected = append(selected, c)
		}
	}
	return selected
}
