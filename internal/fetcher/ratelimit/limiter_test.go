package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitPacesSameHost(t *testing.T) {
	t.Parallel()

	// 10 rps means roughly one token every 100ms after the burst.
	l := New(10, 1)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://example.com/a"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://example.com/b"))
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWaitDoesNotBlockAcrossHosts(t *testing.T) {
	t.Parallel()

	l := New(1, 1)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://a.example.com/"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://b.example.com/"))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitZeroRateNeverBlocks(t *testing.T) {
	t.Parallel()

	l := New(0, 0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(ctx, "https://example.com/"))
	}
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	l := New(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx, "https://example.com/"))
	err := l.Wait(ctx, "https://example.com/")
	require.Error(t, err)
}
