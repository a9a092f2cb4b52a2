package suno

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"sunocrawl/pkg/models"
)

const (
	// DefaultBaseURL is the studio API origin
	DefaultBaseURL = "https://studio-api.prod.suno.com"

	// ProjectsPath enumerates the user's collections
	ProjectsPath = "/api/project/me"

	// FeedPath serves one page of a collection
	FeedPath = "/api/feed/v2"

	// DefaultPageSize is the page size the feed is requested with
	DefaultPageSize = 250
)

// FeedFilters are the boolean filter flags sent with every feed request
type FeedFilters struct {
	HideDisliked    bool
	HideStudioClips bool
	HideGenStems    bool
}

// FeedQuery builds the query for one page of a collection. The default
// collection is addressed by workspace, all others by project id.
func FeedQuery(c models.Collection, page, limit int, f FeedFilters) url.Values {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("hide_disliked", strconv.FormatBool(f.HideDisliked))
	q.Set("hide_studio_clips", strconv.FormatBool(f.HideStudioClips))
	if f.HideGenStems {
		q.Set("hide_gen_stems", "true")
	}

	if c.IsDefault() {
		q.Set("workspace", models.DefaultCollectionID)
	} else {
		q.Set("project_id", c.ID)
	}
	return q
}

// Listing is the decoded collection enumeration plus the raw body it came from
type Listing struct {
	Collections []models.Collection
	Raw         json.RawMessage
}

// ListCollections enumerates the user's collections
func (c *Client) ListCollections(ctx context.Context) (*Listing, error) {
	var raw json.RawMessage
	if err := c.GetJSON(ctx, ProjectsPath, nil, &raw); err != nil {
		return nil, err
	}

	var resp models.ProjectsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode collections: %w", err)
	}

	c.logger.DebugWithFields("enumerated collections", map[string]interface{}{
		"count": len(resp.Projects),
	})

	return &Listing{Collections: resp.Projects, Raw: raw}, nil
}

// Feed fetches pages of collections with fixed size and filters. It
// satisfies the crawler's page fetcher.
type Feed struct {
	client   *Client
	pageSize int
	filters  FeedFilters
}

// NewFeed binds page size and filters to a client
func NewFeed(client *Client, pageSize int, filters FeedFilters) *Feed {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Feed{client: client, pageSize: pageSize, filters: filters}
}

// PageSize returns the requested page length
func (f *Feed) PageSize() int {
	return f.pageSize
}

// FetchPage fetches one page (1-based) of collection
func (f *Feed) FetchPage(ctx context.Context, collection models.Collection, page int) (models.Page, error) {
	var resp models.FeedResponse
	query := FeedQuery(collection, page, f.pageSize, f.filters)
	if err := f.client.GetJSON(ctx, FeedPath, query, &resp); err != nil {
		return nil, err
	}
	return resp.Page(), nil
}

// ListCollections enumerates the user's collections
func (f *Feed) ListCollections(ctx context.Context) (*Listing, error) {
	return f.client.ListCollections(ctx)
}
