package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_ZeroRateDoesNotBlock(t *testing.T) {
	l := New(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_ZeroRateHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, New(0).Wait(ctx), context.Canceled)
}

func TestLimiter_Limits(t *testing.T) {
	l := New(10)
	start := time.Now()

	// The first ten are the burst; the next five need about 500ms.
	for i := 0; i < 15; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

func TestLimiter_FractionalRate(t *testing.T) {
	l := New(0.5)
	assert.Equal(t, 0.5, l.Rate())

	// Burst of one, then the next start is two seconds away.
	require.NoError(t, l.Wait(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx))
}

func TestLimiter_CancelledContext(t *testing.T) {
	l := New(1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Wait(ctx))
}

func TestLimiter_SetRate(t *testing.T) {
	l := New(1000)
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}

	l.SetRate(0)
	assert.Zero(t, l.Rate())
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_ConcurrentWait(t *testing.T) {
	l := New(1000)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, l.Wait(context.Background()))
			}
		}()
	}
	wg.Wait()
}
