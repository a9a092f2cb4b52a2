package crawler

import (
	"context"

	"sunocrawl/pkg/models"
	"sunocrawl/pkg/suno"
)

// PageFetcher fetches one page of a collection. suno.Feed implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, collection models.Collection, page int) (models.Page, error)
	PageSize() int
}

// CollectionLister enumerates the user's collections. suno.Feed implements it.
type CollectionLister interface {
	ListCollections(ctx context.Context) (*suno.Listing, error)
}

// RefreshCoordinator suspends the crawl after a 401 until credentials
// change. refresh.Coordinator implements it.
type RefreshCoordinator interface {
	OnUnauthorized(ctx context.Context) error
}

// PageSink receives the raw items of every non-empty page.
// storage.Manager implements it.
type PageSink interface {
	SavePage(collection models.Collection, page int, items models.Page) (string, error)
}

// Progress receives operator-facing progress. ui.ProgressDisplay implements it.
type Progress interface {
	StartCollection(name, id string, expected int)
	Page(page, added, total int)
	AwaitingRefresh(page int)
	CompleteCollection(path string)
	FailCollection(err error)
}
