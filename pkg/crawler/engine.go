package crawler

import (
	"context"
	"fmt"
	"time"

	errs "sunocrawl/pkg/errors"
	"sunocrawl/pkg/logger"
	"sunocrawl/pkg/models"
	"sunocrawl/pkg/ratelimit"
)

// Stop reasons, in the order they are evaluated after each page
const (
	StopEmptyPage     = "empty_page"
	StopNoNewItems    = "no_new_items"
	StopExpectedCount = "expected_count_reached"
	StopShortPage     = "short_page"
)

// PageHook is called before each page request
type PageHook func(collection models.Collection, page int)

// Engine crawls one collection page by page into a deduplicated result
type Engine struct {
	fetcher   PageFetcher
	refresher RefreshCoordinator
	pacer     ratelimit.Limiter
	pages     PageSink
	progress  Progress
	onPage    PageHook
	logger    logger.Logger
}

// NewEngine creates an engine. pageDelay spaces consecutive page requests;
// zero disables it. refresher may be nil, in which case a 401 ends the
// collection with an auth error.
func NewEngine(fetcher PageFetcher, refresher RefreshCoordinator, pageDelay time.Duration, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	e := &Engine{
		fetcher:   fetcher,
		refresher: refresher,
		logger:    log,
	}
	if pageDelay > 0 {
		e.pacer = ratelimit.NewInterval(pageDelay)
	}
	return e
}

// SetPageSink enables raw page dumps
func (e *Engine) SetPageSink(sink PageSink) {
	e.pages = sink
}

// SetProgress sets the progress display
func (e *Engine) SetProgress(p Progress) {
	e.progress = p
}

// SetPageHook registers a callback run before each page request
func (e *Engine) SetPageHook(hook PageHook) {
	e.onPage = hook
}

// CrawlCollection fetches pages 1, 2, ... of collection and merges them.
//
// Items are deduplicated by identifier. Items without one are always
// appended, so a page repeating them adds them again. After each page the
// crawl stops on, in order: an empty page, a page with no new items, the
// distinct identifier count reaching the collection's expected count (when
// known), or a page shorter than the page size. There is no page cap.
//
// A 401 suspends the crawl until the credentials change, then the same page
// is requested again. On any other error the partial result is returned
// with the error.
func (e *Engine) CrawlCollection(ctx context.Context, collection models.Collection) (*models.MergedResult, error) {
	log := e.logger.WithFields(map[string]interface{}{
		"collection_id": collection.ID,
		"collection":    collection.Name,
	})

	result := &models.MergedResult{CollectionID: collection.ID, Name: collection.Name}
	seen := make(map[string]struct{})
	pageSize := e.fetcher.PageSize()

	log.InfoWithFields("Crawling collection", map[string]interface{}{
		"expected":  collection.ExpectedCount,
		"page_size": pageSize,
	})

	page := 1
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if e.pacer != nil {
			if err := e.pacer.Wait(ctx); err != nil {
				return result, err
			}
		}
		if e.onPage != nil {
			e.onPage(collection, page)
		}

		items, err := e.fetcher.FetchPage(ctx, collection, page)
		if err != nil {
			if errs.IsType(err, errs.ErrorTypeAuth) && e.refresher != nil {
				log.WarnWithFields("Credentials rejected mid-crawl", map[string]interface{}{
					"page": page,
				})
				if e.progress != nil {
					e.progress.AwaitingRefresh(page)
				}
				if err := e.refresher.OnUnauthorized(ctx); err != nil {
					return result, err
				}
				log.InfoWithFields("Replaying page with refreshed credentials", map[string]interface{}{
					"page": page,
				})
				continue
			}
			return result, fmt.Errorf("page %d: %w", page, err)
		}

		if items.IsEmpty() {
			e.finish(log, result, page, StopEmptyPage)
			return result, nil
		}

		if e.pages != nil {
			if _, err := e.pages.SavePage(collection, page, items); err != nil {
				log.WithError(err).WarnWithFields("Failed to save page dump", map[string]interface{}{
					"page": page,
				})
			}
		}

		added := merge(result, seen, items)
		if e.progress != nil {
			e.progress.Page(page, added, result.Count())
		}
		logger.LogCrawlProgress(log, collection.Name, page, added, result.Count())

		if reason := stopReason(collection, items, added, len(seen), pageSize); reason != "" {
			e.finish(log, result, page, reason)
			return result, nil
		}
		page++
	}
}

// merge appends the items of page not seen before and returns how many
// were appended
func merge(result *models.MergedResult, seen map[string]struct{}, page models.Page) int {
	added := 0
	for _, item := range page {
		if item.ID != "" {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
		}
		result.Items = append(result.Items, item)
		added++
	}
	return added
}

// stopReason evaluates the stop conditions for a non-empty page
func stopReason(c models.Collection, page models.Page, added, distinct, pageSize int) string {
	switch {
	case added == 0:
		return StopNoNewItems
	case c.ExpectedCount > 0 && distinct >= c.ExpectedCount:
		return StopExpectedCount
	case page.IsShort(pageSize):
		return StopShortPage
	default:
		return ""
	}
}

func (e *Engine) finish(log logger.Logger, result *models.MergedResult, page int, reason string) {
	log.InfoWithFields("Collection crawl finished", map[string]interface{}{
		"pages":  page,
		"items":  result.Count(),
		"reason": reason,
	})
}
