package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vitalgen/internal/auth"
	"vitalgen/internal/core"
	"vitalgen/internal/metrics"
)

// minRescheduleDelay keeps a refresher from spinning when the platform
// issues tokens that live shorter than the refresh lead.
const minRescheduleDelay = time.Second

// NextRefresh decides when a token should be renewed. It reports false when
// the actor is no longer in use. The delay is expiresAt - lead - now, never
// negative.
func NextRefresh(now, expiresAt time.Time, inUse bool, lead time.Duration) (time.Duration, bool) {
	if !inUse {
		return 0, false
	}
	d := expiresAt.Add(-lead).Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

// Refresher re-authenticates actors shortly before their tokens expire, for
// as long as they stay in use.
type Refresher struct {
	auth    Authenticator
	clock   core.Clock
	lead    time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	onFatal func(*Actor, error)

	mu      sync.Mutex
	ctx     context.Context
	timers  map[*Actor]core.Timer
	stopped bool
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

func WithRefreshLogger(logger *slog.Logger) RefresherOption {
	return func(r *Refresher) { r.logger = logger }
}

func WithRefreshMetrics(m *metrics.Metrics) RefresherOption {
	return func(r *Refresher) { r.metrics = m }
}

// OnFatal sets the callback invoked when a token cannot be renewed. The
// error wraps auth.ErrAuthenticationFailed. The actor is not rescheduled.
func OnFatal(fn func(*Actor, error)) RefresherOption {
	return func(r *Refresher) { r.onFatal = fn }
}

func NewRefresher(authn Authenticator, clock core.Clock, lead time.Duration, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		auth:   authn,
		clock:  clock,
		lead:   lead,
		logger: slog.Default(),
		ctx:    context.Background(),
		timers: make(map[*Actor]core.Timer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start schedules a refresh for each actor. ctx bounds the authentication
// calls made on their behalf.
func (r *Refresher) Start(ctx context.Context, actors ...*Actor) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
	for _, a := range actors {
		r.schedule(a, 0)
	}
}

// Stop cancels every pending refresh. Later Start calls are ignored.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	for a, t := range r.timers {
		t.Stop()
		delete(r.timers, a)
	}
}

// schedule arms the timer for a. floor is the minimum delay.
func (r *Refresher) schedule(a *Actor, floor time.Duration) {
	delay, ok := NextRefresh(r.clock.Now(), a.ExpiresAt(), a.InUse(), r.lead)
	if !ok {
		return
	}
	if delay < floor {
		delay = floor
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.timers[a] = r.clock.AfterFunc(delay, func() { r.fire(a) })
	r.logger.Debug("token refresh scheduled", "actor", a.Name(), "in", delay)
}

func (r *Refresher) fire(a *Actor) {
	r.mu.Lock()
	delete(r.timers, a)
	ctx := r.ctx
	stopped := r.stopped
	r.mu.Unlock()
	if stopped || !a.InUse() {
		return
	}

	var (
		token string
		err   error
	)
	if a.IsSystem() {
		token, err = r.auth.SystemToken(ctx, a.Name(), a.password)
	} else {
		token, err = r.auth.Token(ctx, a.Name(), a.password)
	}
	var exp time.Time
	if err == nil {
		exp, err = auth.ExpiresAt(token)
	}
	if err != nil {
		r.metrics.TokenRefreshed(false)
		if !errors.Is(err, auth.ErrAuthenticationFailed) {
			err = fmt.Errorf("%w: %w", auth.ErrAuthenticationFailed, err)
		}
		err = fmt.Errorf("refreshing token of %s: %w", a.Name(), err)
		r.logger.Error("token refresh failed", "actor", a.Name(), "error", err)
		if r.onFatal != nil {
			r.onFatal(a, err)
		}
		return
	}

	a.SetToken(token, exp)
	r.metrics.TokenRefreshed(true)
	r.logger.Info("token refreshed", "actor", a.Name(), "expires", exp)
	r.schedule(a, minRescheduleDelay)
}
