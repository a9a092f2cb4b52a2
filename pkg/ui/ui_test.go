package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunocrawl/pkg/config"
)

type recordingSender struct {
	titles []string
	err    error
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Output()
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })
	return &buf
}

func TestPageLine(t *testing.T) {
	assert.Equal(t, "page 3 adding 12 new rows total # of rows 512", PageLine(3, 12, 512))
}

func TestProgressDisplay(t *testing.T) {
	buf := captureOutput(t)

	p := NewProgressDisplay()
	p.StartCollection("Lo-fi", "p1", 0)
	p.Page(1, 250, 250)
	p.Page(2, 10, 260)
	p.CompleteCollection("out/Lo-fi_clips.json")

	out := buf.String()
	assert.Contains(t, out, "expected unknown")
	assert.Contains(t, out, "page 1 adding 250 new rows total # of rows 250")
	assert.Contains(t, out, "page 2 adding 10 new rows total # of rows 260")
	assert.Contains(t, out, "260 rows in 2 pages")
	assert.Contains(t, out, "out/Lo-fi_clips.json")
}

func TestNotifierAlert(t *testing.T) {
	buf := captureOutput(t)
	sender := &recordingSender{err: errors.New("no display")}

	n := NewNotifierWithSender(sender, true)
	n.Alert("CREDENTIALS EXPIRED", "copy a fresh cURL")

	assert.True(t, strings.HasPrefix(buf.String(), "\a"))
	assert.Contains(t, buf.String(), "copy a fresh cURL")
	assert.Equal(t, []string{"CREDENTIALS EXPIRED"}, sender.titles)
}

func TestNotifierDisabled(t *testing.T) {
	buf := captureOutput(t)

	n := NewNotifier(config.NotificationConfig{Enabled: false, Bell: true, Desktop: true})
	n.Bell()
	assert.Empty(t, buf.String())
	assert.Nil(t, n.sender)
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary([]SummaryRow{
		{Name: "Default", ID: "default", Count: 40},
		{Name: "Lo-fi", ID: "p1", Count: 2},
		{Name: "Broken", ID: "p2", Failed: true},
	}, 90*time.Second)

	assert.Contains(t, out, "CRAWL SUMMARY")
	assert.Contains(t, out, "Default")
	assert.Contains(t, out, "3 collections, 42 clips in 1m30s")
	assert.Contains(t, out, "1 failed")
}

func TestOpenCommand(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"darwin", "open"},
		{"windows", "cmd"},
		{"linux", "xdg-open"},
		{"freebsd", "xdg-open"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cmd := openCommand(tt.goos, "book.xlsx")
			require.NotEmpty(t, cmd.Args)
			assert.Equal(t, tt.want, cmd.Args[0])
			assert.Equal(t, "book.xlsx", cmd.Args[len(cmd.Args)-1])
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5s", FormatDuration(5*time.Second))
	assert.Equal(t, "2m5s", FormatDuration(125*time.Second))
	assert.Equal(t, "1h2m", FormatDuration(62*time.Minute))
}
