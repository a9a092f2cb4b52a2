package main

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunocrawl/pkg/config"
	"sunocrawl/pkg/crawler"
	"sunocrawl/pkg/models"
)

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}
	cmd.Flags().String("output", "", "")
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().StringArray("workspace", nil, "")
	cmd.Flags().Int("page-size", 0, "")
	cmd.Flags().Bool("save-pages", true, "")
	cmd.Flags().Bool("no-watcher", false, "")
	return cmd
}

func TestCollectFlagsOnlyChanged(t *testing.T) {
	cmd := newFlagCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"--output", "dump", "--workspace", "Lo-fi", "--workspace", "Default",
		"--page-size", "100", "--save-pages=false",
	}))

	flags := collectFlags(cmd)
	assert.Equal(t, map[string]interface{}{
		"output":     "dump",
		"workspace":  []string{"Lo-fi", "Default"},
		"page-size":  100,
		"save-pages": false,
	}, flags)
}

func TestWorkspaceFlagKeepsCommas(t *testing.T) {
	for _, c := range []*cobra.Command{runCmd, crawlCmd} {
		assert.Equal(t, "stringArray", c.Flags().Lookup("workspace").Value.Type(), c.Name())
	}

	cmd := newFlagCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--workspace", "Lo-fi, chill", "--workspace", "Default"}))
	assert.Equal(t, []string{"Lo-fi, chill", "Default"}, collectFlags(cmd)["workspace"])
}

func TestCollectFlagsMergeIntoConfig(t *testing.T) {
	cmd := newFlagCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--no-watcher", "--log-level", "debug"}))

	c := config.DefaultConfig()
	c.MergeCommandLineFlags(collectFlags(cmd))

	assert.False(t, c.Watcher.Enabled)
	assert.Equal(t, "debug", c.Logging.Level)
	assert.True(t, c.Output.SavePages, "unset flags keep their configured value")
	assert.Equal(t, 250, c.Crawl.PageSize)
}

func TestSummaryRows(t *testing.T) {
	report := &crawler.Report{Collections: []crawler.CollectionReport{
		{Collection: models.Collection{ID: "default", Name: "Default"}, Count: 3},
		{Collection: models.Collection{ID: "p1", Name: "Lo-fi"}, Count: 1, Err: errors.New("boom")},
	}}

	rows := summaryRows(report)
	require.Len(t, rows, 2)
	assert.Equal(t, "Default", rows[0].Name)
	assert.Equal(t, 3, rows[0].Count)
	assert.False(t, rows[0].Failed)
	assert.True(t, rows[1].Failed)
	assert.Equal(t, "p1", rows[1].ID)
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"run"}, {"crawl"}, {"export"}, {"watch"},
		{"auth", "capture"}, {"auth", "show"}, {"auth", "clear"},
		{"config", "init"}, {"config", "show"}, {"config", "validate"},
	} {
		found, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], found.Name())
	}
}
