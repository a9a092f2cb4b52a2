// Package ratelimit paces outgoing requests.
//
// TokenBucket wraps golang.org/x/time/rate behind a small Limiter interface.
// NewTokenBucket caps the sustained request rate of the API client, and
// NewInterval enforces the fixed spacing between consecutive page fetches.
//
//	limiter := ratelimit.NewTokenBucket(120, 5)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
