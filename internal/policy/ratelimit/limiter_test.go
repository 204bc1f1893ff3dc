package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitUnlimited(t *testing.T) {
	limiter := New(Config{DefaultRPS: 0})

	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, limiter.Wait(context.Background(), "https://letterboxd.com/film/himala/"))
	}
	require.Less(t, time.Since(start), time.Second)
}

func TestWaitBurst(t *testing.T) {
	limiter := New(Config{DefaultRPS: 100, DefaultBurst: 2})

	for i := 0; i < 2; i++ {
		require.NoError(t, limiter.Wait(context.Background(), "https://letterboxd.com/"))
	}
}

func TestWaitCanceled(t *testing.T) {
	limiter := New(Config{DefaultRPS: 0.001, DefaultBurst: 1})
	// Drain the single token.
	require.NoError(t, limiter.Wait(context.Background(), "https://letterboxd.com/"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, limiter.Wait(ctx, "https://letterboxd.com/"))
}

func TestPerHostBuckets(t *testing.T) {
	limiter := New(Config{DefaultRPS: 1, DefaultBurst: 1})

	require.NoError(t, limiter.Wait(context.Background(), "https://letterboxd.com/"))
	// A different host has its own bucket, so this does not block.
	require.NoError(t, limiter.Wait(context.Background(), "https://a.ltrbxd.com/poster.jpg"))
}
