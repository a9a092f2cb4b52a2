package refresh

import (
	"context"
	"sync"
	"time"

	"sunocrawl/pkg/logger"
)

// DefaultPollInterval is how often the store version is checked while waiting
const DefaultPollInterval = 2 * time.Second

// State is the credential state of the running crawl
type State int

const (
	// Active means requests are being issued with the current credentials
	Active State = iota
	// AwaitingRefresh means the server rejected the credentials and the
	// crawl is paused until the store holds a newer tuple
	AwaitingRefresh
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case AwaitingRefresh:
		return "awaiting_refresh"
	default:
		return "unknown"
	}
}

// VersionSource exposes the version of the stored credentials. auth.Store
// satisfies it.
type VersionSource interface {
	Version() (time.Time, error)
}

// Alerter gets the operator's attention. ui.Notifier satisfies it.
type Alerter interface {
	Alert(title, message string)
}

// waitCall is one in-progress wait shared by every caller that hit a 401
type waitCall struct {
	done chan struct{}
	err  error
}

// Coordinator suspends work after an authorization failure until the
// credential store changes. All callers share one wait.
type Coordinator struct {
	source       VersionSource
	alerter      Alerter
	pollInterval time.Duration
	logger       logger.Logger

	mu    sync.Mutex
	state State
	wait  *waitCall
	waits int
}

// NewCoordinator creates a coordinator polling source every pollInterval.
// alerter may be nil.
func NewCoordinator(source VersionSource, alerter Alerter, pollInterval time.Duration, log logger.Logger) *Coordinator {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Coordinator{
		source:       source,
		alerter:      alerter,
		pollInterval: pollInterval,
		logger:       log,
	}
}

// State returns the current credential state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Waits returns how many refresh waits have been started
func (c *Coordinator) Waits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waits
}

// OnUnauthorized blocks until the stored credentials change, then returns
// nil so the caller can replay its request. If a wait is already in
// progress the caller joins it. Only context cancellation ends a wait
// early.
func (c *Coordinator) OnUnauthorized(ctx context.Context) error {
	c.mu.Lock()
	if w := c.wait; w != nil {
		c.mu.Unlock()
		c.logger.Debug("Joining credential refresh wait in progress")
		select {
		case <-w.done:
			return w.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	w := &waitCall{done: make(chan struct{})}
	c.wait = w
	c.state = AwaitingRefresh
	c.waits++
	c.mu.Unlock()

	w.err = c.awaitNewVersion(ctx)

	c.mu.Lock()
	c.wait = nil
	c.state = Active
	c.mu.Unlock()
	close(w.done)

	return w.err
}

// awaitNewVersion records the current version, alerts the operator and
// polls until the version differs
func (c *Coordinator) awaitNewVersion(ctx context.Context) error {
	baseline, err := c.source.Version()
	if err != nil {
		c.logger.WithError(err).Debug("Credential version unreadable, treating as absent")
		baseline = time.Time{}
	}

	start := time.Now()
	c.logger.WarnWithFields("Credentials rejected, waiting for refresh", map[string]interface{}{
		"version":       versionLabel(baseline),
		"poll_interval": c.pollInterval.String(),
	})
	if c.alerter != nil {
		c.alerter.Alert("CREDENTIALS EXPIRED", "Copy a fresh cURL for any studio-api request from the browser")
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Credential refresh wait cancelled")
			return ctx.Err()
		case <-ticker.C:
		}

		current, err := c.source.Version()
		if err != nil {
			c.logger.WithError(err).Debug("Credential version unreadable")
			continue
		}
		if !current.Equal(baseline) {
			c.logger.InfoWithFields("Credentials refreshed, resuming", map[string]interface{}{
				"version": versionLabel(current),
				"waited":  time.Since(start).Round(time.Second).String(),
			})
			return nil
		}
	}
}

func versionLabel(v time.Time) string {
	if v.IsZero() {
		return "absent"
	}
	return v.UTC().Format(time.RFC3339Nano)
}
