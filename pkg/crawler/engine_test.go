package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunocrawl/pkg/auth"
	errs "sunocrawl/pkg/errors"
	"sunocrawl/pkg/logger"
	"sunocrawl/pkg/models"
	"sunocrawl/pkg/refresh"
)

// item builds an item from raw JSON
func item(t *testing.T, raw string) models.Item {
	t.Helper()
	var it models.Item
	require.NoError(t, json.Unmarshal([]byte(raw), &it))
	return it
}

// page builds a page of items with the given ids; "" makes an id-less item
func page(t *testing.T, ids ...string) models.Page {
	t.Helper()
	p := models.Page{}
	for i, id := range ids {
		if id == "" {
			p = append(p, item(t, fmt.Sprintf(`{"title":"untitled %d"}`, i)))
			continue
		}
		p = append(p, item(t, fmt.Sprintf(`{"id":%q,"title":"clip %s"}`, id, id)))
	}
	return p
}

// scriptedFetcher serves pages per collection; pages past the script are empty
type scriptedFetcher struct {
	mu       sync.Mutex
	pageSize int
	pages    map[string][]models.Page
	// failures are returned, in order, before the page they are keyed on
	failures map[string][]error
	calls    []string
}

func newScriptedFetcher(pageSize int) *scriptedFetcher {
	return &scriptedFetcher{
		pageSize: pageSize,
		pages:    make(map[string][]models.Page),
		failures: make(map[string][]error),
	}
}

func key(collectionID string, page int) string {
	return fmt.Sprintf("%s#%d", collectionID, page)
}

func (f *scriptedFetcher) FetchPage(ctx context.Context, c models.Collection, n int) (models.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := key(c.ID, n)
	f.calls = append(f.calls, k)
	if queued := f.failures[k]; len(queued) > 0 {
		f.failures[k] = queued[1:]
		return nil, queued[0]
	}
	script := f.pages[c.ID]
	if n-1 < len(script) {
		return script[n-1], nil
	}
	return models.Page{}, nil
}

func (f *scriptedFetcher) PageSize() int {
	return f.pageSize
}

func (f *scriptedFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func ids(result *models.MergedResult) []string {
	out := make([]string, 0, len(result.Items))
	for _, it := range result.Items {
		out = append(out, it.ID)
	}
	return out
}

func newTestEngine(f PageFetcher, r RefreshCoordinator) *Engine {
	return NewEngine(f, r, 0, logger.NewTestLogger())
}

func TestCrawlCollectionDedupStopsAtExpectedCount(t *testing.T) {
	f := newScriptedFetcher(2)
	f.pages["c1"] = []models.Page{page(t, "A", "B"), page(t, "B", "C"), page(t, "D", "E")}

	result, err := newTestEngine(f, nil).CrawlCollection(context.Background(), models.Collection{ID: "c1", Name: "One", ExpectedCount: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, ids(result))
	assert.Equal(t, 3, result.Count())
	assert.Equal(t, []string{"c1#1", "c1#2"}, f.Calls(), "must stop after page 2")
}

func TestCrawlCollectionUnionOfPages(t *testing.T) {
	script := []models.Page{
		page(t, "a", "b", "c"),
		page(t, "c", "d", "a"),
		page(t, "e", "f", "g"),
		page(t, "g", "h", "b"),
	}
	f := newScriptedFetcher(3)
	f.pages["p"] = script

	result, err := newTestEngine(f, nil).CrawlCollection(context.Background(), models.Collection{ID: "p"})
	require.NoError(t, err)

	union := map[string]struct{}{}
	for _, p := range script {
		for _, it := range p {
			union[it.ID] = struct{}{}
		}
	}
	var want []string
	for id := range union {
		want = append(want, id)
	}
	got := ids(result)
	sort.Strings(want)
	sorted := append([]string(nil), got...)
	sort.Strings(sorted)

	assert.Equal(t, want, sorted)
	assert.Len(t, got, len(union), "no duplicates")
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h"}, got, "first-seen order")
	assert.Len(t, f.Calls(), 5, "terminates on the empty page after the script")
}

func TestCrawlCollectionStopConditions(t *testing.T) {
	tests := []struct {
		name      string
		pageSize  int
		expected  int
		pages     [][]string
		wantIDs   []string
		wantCalls int
	}{
		{
			name:      "empty first page",
			pageSize:  2,
			pages:     nil,
			wantIDs:   []string{},
			wantCalls: 1,
		},
		{
			name:      "no new items",
			pageSize:  2,
			pages:     [][]string{{"a", "b"}, {"a", "b"}, {"c", "d"}},
			wantIDs:   []string{"a", "b"},
			wantCalls: 2,
		},
		{
			name:      "short page",
			pageSize:  3,
			pages:     [][]string{{"a", "b", "c"}, {"d"}, {"e", "f", "g"}},
			wantIDs:   []string{"a", "b", "c", "d"},
			wantCalls: 2,
		},
		{
			name:      "expected count unknown keeps going",
			pageSize:  2,
			expected:  0,
			pages:     [][]string{{"a", "b"}, {"c", "d"}},
			wantIDs:   []string{"a", "b", "c", "d"},
			wantCalls: 3,
		},
		{
			name:      "expected count reached on a full page",
			pageSize:  2,
			expected:  2,
			pages:     [][]string{{"a", "b"}, {"c", "d"}},
			wantIDs:   []string{"a", "b"},
			wantCalls: 1,
		},
		{
			name:      "expected count below server total",
			pageSize:  2,
			expected:  3,
			pages:     [][]string{{"a", "b"}, {"c", "d"}, {"e", "f"}},
			wantIDs:   []string{"a", "b", "c", "d"},
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newScriptedFetcher(tt.pageSize)
			for _, p := range tt.pages {
				f.pages["c"] = append(f.pages["c"], page(t, p...))
			}

			result, err := newTestEngine(f, nil).CrawlCollection(context.Background(), models.Collection{ID: "c", ExpectedCount: tt.expected})
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(result))
			assert.Len(t, f.Calls(), tt.wantCalls)
		})
	}
}

func TestCrawlCollectionKeepsItemsWithoutID(t *testing.T) {
	f := newScriptedFetcher(3)
	f.pages["c"] = []models.Page{page(t, "a", "", "b"), page(t, "", "a")}

	result, err := newTestEngine(f, nil).CrawlCollection(context.Background(), models.Collection{ID: "c"})
	require.NoError(t, err)

	// The id-less item of page 2 is new by definition, so page 2 adds one
	// item and, being short, ends the crawl
	assert.Equal(t, []string{"a", "", "b", ""}, ids(result))
}

func TestCrawlCollectionClipIDFallback(t *testing.T) {
	f := newScriptedFetcher(5)
	f.pages["c"] = []models.Page{{
		item(t, `{"clip_id":"x1"}`),
		item(t, `{"id":"x1"}`),
		item(t, `{"id":"x2"}`),
	}}

	result, err := newTestEngine(f, nil).CrawlCollection(context.Background(), models.Collection{ID: "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "x2"}, ids(result))
}

func TestCrawlCollectionReplaysPageAfterRefresh(t *testing.T) {
	store := auth.NewMockStore(&auth.Tuple{Bearer: "bearer-token-000001", BrowserToken: "browser", DeviceID: "device"})
	coordinator := refresh.NewCoordinator(store, nil, 5*time.Millisecond, logger.NewTestLogger())

	script := []models.Page{page(t, "a", "b"), page(t, "c", "d"), page(t, "e")}

	baseline := newScriptedFetcher(2)
	baseline.pages["c"] = script
	want, err := newTestEngine(baseline, nil).CrawlCollection(context.Background(), models.Collection{ID: "c"})
	require.NoError(t, err)

	f := newScriptedFetcher(2)
	f.pages["c"] = script
	f.failures[key("c", 2)] = []error{errs.New(errs.ErrorTypeAuth, 401, "unauthorized")}

	go func() {
		assert.Eventually(t, func() bool { return coordinator.State() == refresh.AwaitingRefresh }, 2*time.Second, time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		assert.NoError(t, store.Save(&auth.Tuple{Bearer: "bearer-token-000002", BrowserToken: "browser", DeviceID: "device"}))
	}()

	got, err := newTestEngine(f, coordinator).CrawlCollection(context.Background(), models.Collection{ID: "c"})
	require.NoError(t, err)

	assert.Equal(t, ids(want), ids(got), "no item loss or duplication")
	assert.Equal(t, []string{"c#1", "c#2", "c#2", "c#3"}, f.Calls(), "exactly one replay of page 2")
	assert.Equal(t, 1, coordinator.Waits())
}

func TestCrawlCollectionAuthWithoutCoordinator(t *testing.T) {
	f := newScriptedFetcher(2)
	f.failures[key("c", 1)] = []error{errs.New(errs.ErrorTypeAuth, 401, "unauthorized")}

	_, err := newTestEngine(f, nil).CrawlCollection(context.Background(), models.Collection{ID: "c"})
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeAuth))
}

func TestCrawlCollectionFatalErrorKeepsPartialResult(t *testing.T) {
	f := newScriptedFetcher(2)
	f.pages["c"] = []models.Page{page(t, "a", "b"), page(t, "c", "d")}
	f.failures[key("c", 2)] = []error{errs.New(errs.ErrorTypeNotFound, 404, "gone")}

	result, err := newTestEngine(f, nil).CrawlCollection(context.Background(), models.Collection{ID: "c"})
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNotFound))
	assert.Contains(t, err.Error(), "page 2")
	assert.Equal(t, []string{"a", "b"}, ids(result))
}

func TestCrawlCollectionCancelledDuringRefresh(t *testing.T) {
	store := auth.NewMockStore(&auth.Tuple{Bearer: "bearer-token-000001", BrowserToken: "browser", DeviceID: "device"})
	coordinator := refresh.NewCoordinator(store, nil, 5*time.Millisecond, logger.NewTestLogger())

	f := newScriptedFetcher(2)
	f.failures[key("c", 1)] = []error{errs.New(errs.ErrorTypeAuth, 401, "unauthorized")}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		assert.Eventually(t, func() bool { return coordinator.State() == refresh.AwaitingRefresh }, 2*time.Second, time.Millisecond)
		cancel()
	}()

	_, err := newTestEngine(f, coordinator).CrawlCollection(ctx, models.Collection{ID: "c"})
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingSink struct {
	saved []string
}

func (r *recordingSink) SavePage(c models.Collection, n int, items models.Page) (string, error) {
	r.saved = append(r.saved, fmt.Sprintf("%s_page%d:%d", c.SafeName(), n, len(items)))
	return "", nil
}

type recordingProgress struct {
	lines []string
}

func (r *recordingProgress) StartCollection(name, id string, expected int) {}
func (r *recordingProgress) Page(n, added, total int) {
	r.lines = append(r.lines, fmt.Sprintf("%d/%d/%d", n, added, total))
}
func (r *recordingProgress) AwaitingRefresh(n int)         { r.lines = append(r.lines, "refresh") }
func (r *recordingProgress) CompleteCollection(path string) {}
func (r *recordingProgress) FailCollection(err error)       {}

func TestCrawlCollectionDumpsPagesAndReportsProgress(t *testing.T) {
	f := newScriptedFetcher(2)
	f.pages["c"] = []models.Page{page(t, "a", "b"), page(t, "b", "c")}

	sink := &recordingSink{}
	progress := &recordingProgress{}
	var hooked []int

	e := NewEngine(f, nil, time.Millisecond, logger.NewTestLogger())
	e.SetPageSink(sink)
	e.SetProgress(progress)
	e.SetPageHook(func(c models.Collection, n int) { hooked = append(hooked, n) })

	_, err := e.CrawlCollection(context.Background(), models.Collection{ID: "c", Name: "Demo"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Demo_page1:2", "Demo_page2:2"}, sink.saved)
	assert.Equal(t, []string{"1/2/2", "2/1/3"}, progress.lines)
	assert.Equal(t, []int{1, 2, 3}, hooked)
}
