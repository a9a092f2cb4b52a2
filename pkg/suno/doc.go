// Package suno is a client for the studio API behind suno.com.
//
// It covers the two read endpoints the crawler needs: the collection
// enumeration and the paginated clip feed. Every request is authenticated
// with the tuple currently held by an auth.Store and classified as
// success, throttled, transient, unauthorized or fatal:
//
//	client := suno.NewClient(store, suno.OptionsFromConfig(cfg), log)
//	feed := suno.NewFeed(client, 250, suno.FeedFilters{HideDisliked: true})
//	page, err := feed.FetchPage(ctx, collection, 1)
//	if errors.IsType(err, errors.ErrorTypeAuth) {
//	    // wait for fresh credentials, then fetch the same page again
//	}
package suno
