package suno

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sunocrawl/pkg/auth"
	"sunocrawl/pkg/config"
	errs "sunocrawl/pkg/errors"
	"sunocrawl/pkg/logger"
	"sunocrawl/pkg/ratelimit"
	"sunocrawl/pkg/retry"
)

// maxLoggedBody bounds how much of an unexpected error body is logged
const maxLoggedBody = 500

// Options configures a Client
type Options struct {
	BaseURL   string
	UserAgent string
	Origin    string
	Referer   string
	Timeout   time.Duration

	// MaxAttempts bounds counted retries of transient failures
	MaxAttempts int
	Backoff     retry.BackoffStrategy
	// RateLimitFloor is the minimum wait after a 429
	RateLimitFloor time.Duration
	// RateLimitMaxWait caps any single 429 wait
	RateLimitMaxWait time.Duration

	// Limiter paces requests; nil means unpaced
	Limiter ratelimit.Limiter
	// Sleep performs backoff and throttle waits; nil means retry.Wait
	Sleep retry.SleepFunc
	// HTTPClient overrides the default client, mainly for tests
	HTTPClient *http.Client
}

// OptionsFromConfig derives client options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:   cfg.API.BaseURL,
		UserAgent: cfg.API.UserAgent,
		Origin:    cfg.API.Origin,
		Referer:   cfg.API.Referer,
		Timeout:   cfg.API.Timeout,

		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:    cfg.Retry.BaseDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   cfg.Retry.Multiplier,
			JitterFactor: cfg.Retry.JitterFactor,
		},
		RateLimitFloor:   cfg.Retry.RateLimitFloor,
		RateLimitMaxWait: cfg.Retry.RateLimitMaxWait,
		Limiter:          ratelimit.NewTokenBucket(cfg.Crawl.RequestsPerMinute, cfg.Crawl.BurstSize),
	}
}

// Client performs authenticated JSON requests against the studio API. The
// credential tuple is read from the store on every attempt, so a refreshed
// tuple takes effect on the very next request.
type Client struct {
	httpClient *http.Client
	store      auth.Store
	opts       Options
	logger     logger.Logger
}

// NewClient creates a client that authenticates from store
func NewClient(store auth.Store, opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 8
	}
	if opts.Backoff == nil {
		opts.Backoff = retry.DefaultExponentialBackoff()
	}
	if opts.RateLimitFloor <= 0 {
		opts.RateLimitFloor = 30 * time.Second
	}
	if opts.RateLimitMaxWait < opts.RateLimitFloor {
		opts.RateLimitMaxWait = 10 * time.Minute
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Wait
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		store:      store,
		opts:       opts,
		logger:     log,
	}
}

// GetJSON fetches path with query and decodes the JSON body into target.
//
// Throttling (429) is waited out indefinitely without using up attempts.
// Network failures, 500/502/503/504, undecodable bodies and bodies whose
// shape target rejects are retried with backoff up to MaxAttempts. A 401 is
// returned at once as an auth error for the caller to coordinate a
// credential refresh. Any other error status is fatal.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, target interface{}) error {
	return retry.Do(func() error {
		return c.attempt(ctx, path, query, target)
	}, &retry.Config{
		MaxAttempts: c.opts.MaxAttempts,
		Backoff:     c.opts.Backoff,
		RetryIf:     retry.DefaultRetryIf,
		WaitIf: func(err error) (time.Duration, bool) {
			var apiErr *errs.Error
			if !errors.As(err, &apiErr) || apiErr.Type != errs.ErrorTypeRateLimit {
				return 0, false
			}
			wait := c.throttleDelay(apiErr.RetryAfter)
			logger.LogRateLimit(c.logger, path, wait)
			return wait, true
		},
		Sleep:   c.opts.Sleep,
		Context: ctx,
		Logger:  c.logger.WithField("path", path),
	})
}

// throttleDelay clamps the server's Retry-After between the floor and the cap
func (c *Client) throttleDelay(retryAfter time.Duration) time.Duration {
	return retry.Clamp(retryAfter, c.opts.RateLimitFloor, c.opts.RateLimitMaxWait)
}

// attempt performs exactly one request
func (c *Client) attempt(ctx context.Context, path string, query url.Values, target interface{}) error {
	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	tuple, err := c.store.Load()
	if err != nil {
		// Missing or unusable credentials are handled like an expired session
		return errs.Wrap(errs.ErrorTypeAuth, 0, err, "no usable credentials")
	}

	reqURL := c.opts.BaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, 0, err, "failed to create request")
	}
	c.setHeaders(req, tuple)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"path":  path,
			"error": auth.Redact(err.Error()),
		})
		return errs.Wrap(errs.ErrorTypeNetwork, 0, err, "request failed: %s", auth.Redact(err.Error()))
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, req.Method, path, resp.StatusCode, time.Since(start))

	if err := c.checkResponseStatus(resp, path); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeNetwork, resp.StatusCode, err, "failed to read response body")
	}

	if err := json.Unmarshal(body, target); err != nil {
		c.logger.WarnWithFields("non-JSON response", map[string]interface{}{
			"path":         path,
			"status":       resp.StatusCode,
			"body_preview": preview(body),
		})
		return errs.Wrap(errs.ErrorTypeParsing, resp.StatusCode, err, "failed to parse JSON")
	}

	if v, ok := target.(validator); ok {
		if err := v.Validate(); err != nil {
			c.logger.WarnWithFields("unexpected response shape", map[string]interface{}{
				"path":         path,
				"status":       resp.StatusCode,
				"body_preview": preview(body),
			})
			return errs.Wrap(errs.ErrorTypeParsing, resp.StatusCode, err, "unexpected response shape")
		}
	}

	return nil
}

// validator is implemented by response bodies that can tell a well-formed
// reply from an unexpected one. A failed check is retried like a non-JSON body.
type validator interface {
	Validate() error
}

func (c *Client) setHeaders(req *http.Request, t *auth.Tuple) {
	req.Header.Set("Authorization", "Bearer "+t.Bearer)
	req.Header.Set("browser-token", t.BrowserToken)
	req.Header.Set("device-id", t.DeviceID)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Origin", c.opts.Origin)
	req.Header.Set("Referer", c.opts.Referer)
}

// checkResponseStatus maps a non-2xx response to a typed error
func (c *Client) checkResponseStatus(resp *http.Response, path string) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	switch errType := errs.TypeForStatus(code); errType {
	case errs.ErrorTypeAuth:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": code,
			"path":   path,
		})
		return errs.New(errType, code, "unauthorized")

	case errs.ErrorTypeRateLimit:
		e := errs.New(errType, code, "too many requests")
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return e

	case errs.ErrorTypeServerError:
		return errs.New(errType, code, "server error")

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		redacted := preview(body)
		c.logger.ErrorWithFields("unexpected API error", map[string]interface{}{
			"status": code,
			"path":   path,
			"body":   redacted,
		})
		if errType == errs.ErrorTypeUnknown {
			errType = errs.ErrorTypeClient
		}
		return errs.New(errType, code, "unexpected status %d: %s", code, redacted)
	}
}

// parseRetryAfter reads delta-seconds or an HTTP-date; anything else is zero
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// preview returns a redacted, length-bounded rendering of a body
func preview(body []byte) string {
	s := string(body)
	if len(s) > maxLoggedBody {
		s = s[:maxLoggedBody]
	}
	return auth.Redact(s)
}

