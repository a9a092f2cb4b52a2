package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonRed     = lipgloss.Color("#FF3131")
	dimWhite    = lipgloss.Color("#B0B0B0")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	nameStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	countStyle = lipgloss.NewStyle().
			Foreground(neonYellow).
			Align(lipgloss.Right)

	okStyle = lipgloss.NewStyle().
		Foreground(neonGreen).
		Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(neonRed).
			Bold(true)
)

// SummaryRow is one collection in the end-of-run summary
type SummaryRow struct {
	Name   string
	ID     string
	Count  int
	Failed bool
}

// RenderSummary renders the end-of-run table of per-collection counts
func RenderSummary(rows []SummaryRow, elapsed time.Duration) string {
	nameWidth := len("collection")
	for _, r := range rows {
		if w := lipgloss.Width(r.Name); w > nameWidth {
			nameWidth = w
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("CRAWL SUMMARY"))
	b.WriteString("\n\n")

	total, failed := 0, 0
	for _, r := range rows {
		status := okStyle.Render("ok")
		count := countStyle.Width(8).Render(fmt.Sprintf("%d", r.Count))
		if r.Failed {
			status = failStyle.Render("failed")
			count = countStyle.Width(8).Render("-")
			failed++
		} else {
			total += r.Count
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			nameStyle.Width(nameWidth+2).Render(r.Name),
			count,
			"  ",
			status,
		))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d collections, %d clips in %s", len(rows), total, FormatDuration(elapsed)))
	if failed > 0 {
		b.WriteString(failStyle.Render(fmt.Sprintf(", %d failed", failed)))
	}

	return panelStyle.Render(b.String())
}

// PrintSummary writes the summary panel to the operator output
func PrintSummary(rows []SummaryRow, elapsed time.Duration) {
	fmt.Fprintln(Output(), RenderSummary(rows, elapsed))
}
