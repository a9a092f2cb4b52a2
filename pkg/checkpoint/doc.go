// Package checkpoint records crawl progress so an interrupted run can resume.
//
// A checkpoint lists every collection whose artifact has been written, with
// its item count, plus the collection and page in flight. On resume the
// orchestrator skips completed collections and starts the rest from page 1,
// since a partially crawled collection has no persisted items.
//
// Checkpoints are stored under the XDG data directory:
//   - Linux: ~/.local/share/sunocrawl/checkpoints/
//   - macOS: ~/Library/Application Support/sunocrawl/checkpoints/
//   - Windows: %LOCALAPPDATA%/sunocrawl/checkpoints/
//
// One checkpoint exists per output directory. It is written atomically and
// deleted after a run in which every collection succeeded.
package checkpoint
