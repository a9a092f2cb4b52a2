package ui

import (
	"fmt"
	"sync"
	"time"
)

// ProgressDisplay prints one line per crawled page and a header per collection
type ProgressDisplay struct {
	mu         sync.Mutex
	collection string
	expected   int
	pages      int
	total      int
	startTime  time.Time
}

// NewProgressDisplay creates a new progress display
func NewProgressDisplay() *ProgressDisplay {
	return &ProgressDisplay{startTime: time.Now()}
}

// StartCollection prints the collection header. An expected count of zero
// means the server did not report one.
func (p *ProgressDisplay) StartCollection(name, id string, expected int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.collection = name
	p.expected = expected
	p.pages = 0
	p.total = 0
	p.startTime = time.Now()

	fmt.Fprintf(Output(), "\n%s %s %s\n", Magenta("==>"), Cyan(name), Dim(fmt.Sprintf("(%s, expected %s)", id, expectedLabel(expected))))
}

// Page prints the progress line for one merged page
func (p *ProgressDisplay) Page(page, added, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pages = page
	p.total = total
	fmt.Fprintln(Output(), PageLine(page, added, total))
}

// AwaitingRefresh tells the operator the crawl is paused for new credentials
func (p *ProgressDisplay) AwaitingRefresh(page int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(Output(), "%s page %d paused: credentials expired, copy a fresh cURL from the browser\n", Yellow("⚠"), page)
}

// CompleteCollection prints the collection footer
func (p *ProgressDisplay) CompleteCollection(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(Output(), "%s %s: %d rows in %d pages (%s) -> %s\n",
		Green("✓"), p.collection, p.total, p.pages, FormatDuration(time.Since(p.startTime)), path)
}

// FailCollection prints a failed collection footer
func (p *ProgressDisplay) FailCollection(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(Output(), "%s %s failed after %d pages: %v\n", Red("✗"), p.collection, p.pages, err)
}

// PageLine renders the per-page progress line
func PageLine(page, added, total int) string {
	return fmt.Sprintf("page %d adding %d new rows total # of rows %d", page, added, total)
}

func expectedLabel(expected int) string {
	if expected <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d", expected)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
