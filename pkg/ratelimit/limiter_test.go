package ratelimit

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurst(t *testing.T) {
	tb := NewTokenBucket(60, 5)

	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow(), "token %d should be available", i+1)
	}
	assert.False(t, tb.Allow(), "bucket should be exhausted")

	tb.Reset()
	assert.True(t, tb.Allow(), "reset should refill the bucket")
}

func TestTokenBucketRate(t *testing.T) {
	assert.InDelta(t, 120.0, NewTokenBucket(120, 1).RequestsPerMinute(), 0.0001)
	assert.True(t, math.IsInf(NewTokenBucket(0, 1).RequestsPerMinute(), 1))
}

func TestTokenBucketWaitHonoursContext(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	assert.Error(t, err, "next token is a minute away, the wait must give up")
}

func TestIntervalSpacing(t *testing.T) {
	limiter := NewInterval(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	assert.Less(t, time.Since(start), 20*time.Millisecond, "first request is not delayed")

	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestIntervalDisabled(t *testing.T) {
	limiter := NewInterval(0)
	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow())
	}
}
