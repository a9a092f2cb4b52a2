package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed now, consuming a token if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the limiter to its initial, full state
	Reset()
}

// TokenBucket is a Limiter backed by golang.org/x/time/rate
type TokenBucket struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	limiter *rate.Limiter
}

// NewTokenBucket allows requestsPerMinute sustained requests with bursts of
// up to burst requests.
func NewTokenBucket(requestsPerMinute, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(float64(requestsPerMinute) / 60.0)
	}
	return newTokenBucket(limit, burst)
}

// NewInterval spaces requests at least d apart. The first request is not
// delayed. A non-positive d disables pacing.
func NewInterval(d time.Duration) *TokenBucket {
	if d <= 0 {
		return newTokenBucket(rate.Inf, 1)
	}
	return newTokenBucket(rate.Every(d), 1)
}

func newTokenBucket(limit rate.Limit, burst int) *TokenBucket {
	return &TokenBucket{
		limit:   limit,
		burst:   burst,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	return tb.current().Allow()
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.current().Wait(ctx)
}

// Reset refills the bucket
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.limiter = rate.NewLimiter(tb.limit, tb.burst)
}

// RequestsPerMinute reports the sustained rate, or +Inf when unlimited
func (tb *TokenBucket) RequestsPerMinute() float64 {
	if tb.limit == rate.Inf {
		return math.Inf(1)
	}
	return float64(tb.limit) * 60
}

func (tb *TokenBucket) current() *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limiter
}
