// Package retry provides bounded retry with exponential backoff.
//
// Counted retries are governed by MaxAttempts and RetryIf. Errors selected by
// WaitIf are retried after the delay it returns without consuming an
// attempt, which is how server throttling is absorbed indefinitely while
// transient failures stay bounded. Every wait goes through Config.Sleep and
// returns early when the context is cancelled.
//
//	err := retry.Do(func() error {
//		return fetchPage(ctx, page)
//	}, &retry.Config{
//		MaxAttempts: 8,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		RetryIf:     retry.DefaultRetryIf,
//		WaitIf:      throttleDelay,
//		Context:     ctx,
//	})
package retry
