package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"sunocrawl/pkg/auth"
	"sunocrawl/pkg/logger"
)

// DefaultPollInterval is how often the clipboard is read
const DefaultPollInterval = 2 * time.Second

// Watcher polls a text source and saves every new curl command it sees to
// the credential store. Saving changes the store version, which is what a
// crawl waiting for fresh credentials is polling for.
type Watcher struct {
	source   Source
	store    auth.Store
	interval time.Duration
	logger   logger.Logger
	last     string
	onSaved  func(*auth.Tuple)
}

// NewWatcher creates a watcher reading source every interval
func NewWatcher(source Source, store auth.Store, interval time.Duration, log logger.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Watcher{
		source:   source,
		store:    store,
		interval: interval,
		logger:   log.WithField("component", "watcher"),
	}
}

// OnSaved registers a callback run after each saved tuple
func (w *Watcher) OnSaved(fn func(*auth.Tuple)) {
	w.onSaved = fn
}

// SkipCurrent marks the source's current text as already handled
func (w *Watcher) SkipCurrent() {
	if text, err := w.source.ReadText(); err == nil {
		w.last = text
	}
}

// Poll reads the source once and reports whether new credentials were saved
func (w *Watcher) Poll() (bool, error) {
	text, err := w.source.ReadText()
	if err != nil {
		return false, err
	}
	if text == w.last || !auth.LooksLikeCurl(text) {
		return false, nil
	}

	tuple, err := Apply(w.store, text, w.logger)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			// Remember it so the same incomplete command is reported once
			w.last = text
		}
		return false, err
	}

	w.last = text
	if w.onSaved != nil {
		w.onSaved(tuple)
	}
	return true, nil
}

// Run polls until ctx is cancelled. Cancellation is a normal stop and
// returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	logger.LogComponentStart(w.logger, "clipboard watcher", map[string]interface{}{
		"poll_interval": w.interval.String(),
	})
	defer logger.LogComponentStop(w.logger, "clipboard watcher", "context done")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(); err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				w.logger.WithError(err).Warn("Detected curl command but it is missing required headers")
			} else {
				w.logger.WithError(err).Debug("Clipboard poll failed")
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// StdinWatcher is the fallback refresh producer for systems without a
// clipboard: it reads blank-line-terminated pastes from an input stream.
type StdinWatcher struct {
	in      *bufio.Reader
	prompt  io.Writer
	store   auth.Store
	logger  logger.Logger
	onSaved func(*auth.Tuple)
}

// NewStdinWatcher creates a watcher reading pastes from in and writing
// prompts to prompt
func NewStdinWatcher(in *bufio.Reader, prompt io.Writer, store auth.Store, log logger.Logger) *StdinWatcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &StdinWatcher{
		in:     in,
		prompt: prompt,
		store:  store,
		logger: log.WithField("component", "stdin_watcher"),
	}
}

// OnSaved registers a callback run after each saved tuple
func (s *StdinWatcher) OnSaved(fn func(*auth.Tuple)) {
	s.onSaved = fn
}

// Run reads pastes until the input ends or ctx is cancelled. Both are a
// normal stop and return nil.
func (s *StdinWatcher) Run(ctx context.Context) error {
	logger.LogComponentStart(s.logger, "stdin watcher", nil)
	defer logger.LogComponentStop(s.logger, "stdin watcher", "input closed or context done")

	pastes := make(chan string)
	readErr := make(chan error, 1)

	// The reader cannot be interrupted, so it runs detached and is
	// abandoned on cancellation
	go func() {
		for {
			text, err := ReadPaste(s.in)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case pastes <- text:
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(s.prompt, "Paste a fresh 'Copy as cURL (bash)' command at any time, then an empty line.")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read paste: %w", err)
		case text := <-pastes:
			tuple, err := Apply(s.store, text, s.logger)
			switch {
			case errors.Is(err, ErrNotCurl):
				fmt.Fprintln(s.prompt, "Input did not start with 'curl'. Try again.")
			case err != nil:
				s.logger.WithError(err).Warn("Pasted curl command rejected")
				fmt.Fprintln(s.prompt, "cURL is missing required headers. Use 'Copy as cURL (bash)' on a studio-api request.")
			default:
				fmt.Fprintln(s.prompt, "Credentials updated.")
				if s.onSaved != nil {
					s.onSaved(tuple)
				}
			}
		}
	}
}
