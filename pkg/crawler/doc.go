// Package crawler drives the paginated crawl of a user's collections.
//
// Engine crawls one collection: it requests pages 1, 2, ... through a
// PageFetcher, merges them into a result deduplicated by item identifier
// and stops on an empty page, a page with nothing new, the expected count
// being reached, or a short page. When the API rejects the credentials the
// engine hands control to a RefreshCoordinator and, once new credentials
// arrive, requests the same page again.
//
// Items that carry no identifier cannot be deduplicated and are appended
// every time they are returned.
//
// Orchestrator enumerates the collections, filters them by an optional
// allow-list of names, crawls them one at a time and writes each artifact
// as soon as its collection is complete:
//
//	feed := suno.NewFeed(client, cfg.Crawl.PageSize, filters)
//	engine := crawler.NewEngine(feed, coordinator, cfg.Crawl.PageDelay, log)
//	orch := crawler.NewOrchestrator(feed, engine, store, crawler.Options{}, log)
//	report, err := orch.CrawlAll(ctx)
package crawler
