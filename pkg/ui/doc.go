// Package ui holds the operator-facing output of sunocrawl: colored console
// lines, per-page progress, the terminal bell and desktop notifications used
// while waiting for fresh credentials, and the end-of-run summary.
package ui
