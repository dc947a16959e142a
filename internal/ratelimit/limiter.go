// Package ratelimit caps how fast work units are started.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket whose rate can change while goroutines wait on
// it. A rate of zero or less disables limiting.
type Limiter struct {
	limiter *rate.Limiter
	mu      sync.RWMutex
}

// New returns a limiter admitting rps starts per second with a burst of one
// second's worth, at least 1.
func New(rps float64) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst(rps)),
	}
}

func burst(rps float64) int {
	if rps < 1 {
		return 1
	}
	return int(rps)
}

// Wait blocks until a start is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.RLock()
	limiter := l.limiter
	limit := limiter.Limit()
	l.mu.RUnlock()

	if limit <= 0 {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}

// SetRate changes the rate for subsequent waits.
func (l *Limiter) SetRate(rps float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiter.SetLimit(rate.Limit(rps))
	l.limiter.SetBurst(burst(rps))
}

// Rate returns the current rate in starts per second.
func (l *Limiter) Rate() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return float64(l.limiter.Limit())
}
