package system

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSleepCompletes(t *testing.T) {
	t.Parallel()

	clock := New()
	start := time.Now()
	require.NoError(t, clock.Sleep(context.Background(), 10*time.Millisecond))
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSleepCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Sleep(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSleepNonPositiveReturnsImmediately(t *testing.T) {
	t.Parallel()

	require.NoError(t, New().Sleep(context.Background(), 0))
	require.NoError(t, New().Sleep(context.Background(), -time.Second))
}

func TestNowTracksWallClock(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	now := New().Now()
	require.True(t, now.After(before))
}
