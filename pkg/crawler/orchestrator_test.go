package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunocrawl/pkg/checkpoint"
	errs "sunocrawl/pkg/errors"
	"sunocrawl/pkg/logger"
	"sunocrawl/pkg/models"
	"sunocrawl/pkg/storage"
	"sunocrawl/pkg/suno"
)

type staticLister struct {
	listing *suno.Listing
	err     error
}

func (s *staticLister) ListCollections(ctx context.Context) (*suno.Listing, error) {
	return s.listing, s.err
}

func listing(collections ...models.Collection) *suno.Listing {
	raw, _ := json.Marshal(models.ProjectsResponse{Projects: collections})
	return &suno.Listing{Collections: collections, Raw: raw}
}

func newTestOrchestrator(t *testing.T, f *scriptedFetcher, l CollectionLister, opts Options) (*Orchestrator, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewManager(dir)
	require.NoError(t, err)
	log := logger.NewTestLogger()
	return NewOrchestrator(l, NewEngine(f, nil, 0, log), store, opts, log), dir
}

func readArtifact(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestCrawlAllPersistsEveryCollection(t *testing.T) {
	collections := []models.Collection{
		{ID: "default", Name: "Default", ExpectedCount: 0},
		{ID: "p1", Name: "Lo-fi", ExpectedCount: 3},
	}
	f := newScriptedFetcher(2)
	f.pages["default"] = []models.Page{page(t, "d1", "d2"), page(t, "d3")}
	f.pages["p1"] = []models.Page{page(t, "A", "B"), page(t, "B", "C")}

	o, dir := newTestOrchestrator(t, f, &staticLister{listing: listing(collections...)}, Options{})
	report, err := o.CrawlAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"default": 3, "p1": 3}, report.Counts())
	assert.Empty(t, report.Failed())

	assert.FileExists(t, filepath.Join(dir, storage.EnumerationFile))
	artifact := readArtifact(t, filepath.Join(dir, "Lo-fi_clips.json"))
	assert.Equal(t, "p1", artifact["project_id"])
	assert.Equal(t, "Lo-fi", artifact["name"])
	assert.EqualValues(t, 3, artifact["clip_count"])
	assert.Len(t, artifact["items"], 3)
	assert.FileExists(t, filepath.Join(dir, "Default_clips.json"))
}

func TestCrawlAllContinuesAfterFailure(t *testing.T) {
	collections := []models.Collection{
		{ID: "p1", Name: "First"},
		{ID: "p2", Name: "Broken"},
		{ID: "p3", Name: "Third"},
	}
	f := newScriptedFetcher(5)
	f.pages["p1"] = []models.Page{page(t, "a")}
	f.pages["p3"] = []models.Page{page(t, "c")}
	f.failures[key("p2", 1)] = []error{errs.New(errs.ErrorTypeServerError, 503, "max retry attempts (8) exceeded")}

	o, dir := newTestOrchestrator(t, f, &staticLister{listing: listing(collections...)}, Options{})
	report, err := o.CrawlAll(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), `collection "Broken" (p2)`)
	assert.True(t, errs.IsType(err, errs.ErrorTypeServerError))

	assert.Equal(t, map[string]int{"p1": 1, "p3": 1}, report.Counts())
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "p2", report.Failed()[0].Collection.ID)

	assert.FileExists(t, filepath.Join(dir, "First_clips.json"))
	assert.FileExists(t, filepath.Join(dir, "Third_clips.json"))
	assert.NoFileExists(t, filepath.Join(dir, "Broken_clips.json"))
}

func TestCrawlAllEnumerationFailure(t *testing.T) {
	boom := errors.New("connection refused")
	o, _ := newTestOrchestrator(t, newScriptedFetcher(2), &staticLister{err: boom}, Options{})

	report, err := o.CrawlAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, report.Collections)
}

func TestCrawlAllStopsOnCancellation(t *testing.T) {
	collections := []models.Collection{{ID: "p1", Name: "One"}, {ID: "p2", Name: "Two"}}
	f := newScriptedFetcher(5)
	f.pages["p1"] = []models.Page{page(t, "a")}
	f.failures[key("p1", 1)] = []error{context.Canceled}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o, _ := newTestOrchestrator(t, f, &staticLister{listing: listing(collections...)}, Options{})
	_, err := o.CrawlAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, f.Calls(), key("p2", 1))
}

func TestFilterCollections(t *testing.T) {
	collections := []models.Collection{
		{ID: "default", Name: "Default"},
		{ID: "p1", Name: "My Songs!"},
		{ID: "p2", Name: "STRASSE"},
		{ID: "p3", Name: "Other"},
	}

	names := func(cs []models.Collection) []string {
		var out []string
		for _, c := range cs {
			out = append(out, c.ID)
		}
		return out
	}

	assert.Len(t, FilterCollections(collections, nil), 4)
	assert.Len(t, FilterCollections(collections, []string{" ", ""}), 4)
	assert.Equal(t, []string{"p1"}, names(FilterCollections(collections, []string{"my songs!"})), "raw name")
	assert.Equal(t, []string{"p1"}, names(FilterCollections(collections, []string{"MY_SONGS"})), "sanitized name")
	assert.Equal(t, []string{"default", "p2"}, names(FilterCollections(collections, []string{"default", "straße"})), "case folding")
	assert.Empty(t, FilterCollections(collections, []string{"missing"}))
}

func TestCrawlAllResumeSkipsCompleted(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	collections := []models.Collection{{ID: "p1", Name: "One"}, {ID: "p2", Name: "Two"}}

	// First run: p2 fails, so the checkpoint survives with p1 completed
	f := newScriptedFetcher(5)
	f.pages["p1"] = []models.Page{page(t, "a", "b")}
	f.failures[key("p2", 1)] = []error{errs.New(errs.ErrorTypeClient, 403, "forbidden")}

	dir := t.TempDir()
	store, err := storage.NewManager(dir)
	require.NoError(t, err)
	cpm, err := checkpoint.NewManager(dir)
	require.NoError(t, err)

	log := logger.NewTestLogger()
	o := NewOrchestrator(&staticLister{listing: listing(collections...)}, NewEngine(f, nil, 0, log), store, Options{}, log)
	o.SetCheckpointManager(cpm)
	_, err = o.CrawlAll(context.Background())
	require.Error(t, err)
	require.True(t, cpm.Exists())

	// Second run resumes: only p2 is fetched
	f2 := newScriptedFetcher(5)
	f2.pages["p2"] = []models.Page{page(t, "c")}
	o2 := NewOrchestrator(&staticLister{listing: listing(collections...)}, NewEngine(f2, nil, 0, log), store, Options{Resume: true}, log)
	o2.SetCheckpointManager(cpm)

	report, err := o2.CrawlAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{key("p2", 1)}, f2.Calls())
	assert.Equal(t, map[string]int{"p1": 2, "p2": 1}, report.Counts())
	assert.True(t, report.Collections[0].Resumed)
	assert.False(t, cpm.Exists(), "checkpoint removed after a clean run")
}

func TestCrawlAllResumeKeepsCompletedArtifacts(t *testing.T) {
	foo := models.Collection{ID: "aaaaaaaa1", Name: "Foo"}
	fooBang := models.Collection{ID: "bbbbbbbb2", Name: "Foo!"}

	tests := []struct {
		name  string
		order []models.Collection
	}{
		{"completed collection first", []models.Collection{foo, fooBang}},
		{"completed collection last", []models.Collection{fooBang, foo}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_DATA_HOME", t.TempDir())
			xdg.Reload()
			t.Cleanup(xdg.Reload)

			dir := t.TempDir()
			cpm, err := checkpoint.NewManager(dir)
			require.NoError(t, err)
			log := logger.NewTestLogger()

			// First run: "Foo" is saved, "Foo!" fails before writing anything
			f := newScriptedFetcher(5)
			f.pages[foo.ID] = []models.Page{page(t, "a", "b")}
			f.failures[key(fooBang.ID, 1)] = []error{errs.New(errs.ErrorTypeClient, 403, "forbidden")}

			store, err := storage.NewManager(dir)
			require.NoError(t, err)
			o := NewOrchestrator(&staticLister{listing: listing(tt.order...)}, NewEngine(f, nil, 0, log), store, Options{}, log)
			o.SetCheckpointManager(cpm)
			_, err = o.CrawlAll(context.Background())
			require.Error(t, err)

			first := filepath.Join(dir, "Foo_clips.json")
			require.Equal(t, foo.ID, readArtifact(t, first)["project_id"])

			// Resumed run with a fresh storage manager, as a new process has
			f2 := newScriptedFetcher(5)
			f2.pages[fooBang.ID] = []models.Page{page(t, "c")}
			store2, err := storage.NewManager(dir)
			require.NoError(t, err)
			o2 := NewOrchestrator(&staticLister{listing: listing(tt.order...)}, NewEngine(f2, nil, 0, log), store2, Options{Resume: true}, log)
			o2.SetCheckpointManager(cpm)

			report, err := o2.CrawlAll(context.Background())
			require.NoError(t, err)

			artifacts := map[string]string{}
			for _, c := range report.Collections {
				artifacts[c.Collection.ID] = c.Artifact
			}
			assert.Equal(t, first, artifacts[foo.ID])
			assert.Equal(t, filepath.Join(dir, "Foo_bbbbbbbb_clips.json"), artifacts[fooBang.ID])

			kept := readArtifact(t, first)
			assert.Equal(t, foo.ID, kept["project_id"])
			assert.EqualValues(t, 2, kept["clip_count"])
			assert.Equal(t, fooBang.ID, readArtifact(t, artifacts[fooBang.ID])["project_id"])
		})
	}
}
