// Package executor runs tasks with at most N in flight. Submitters block
// until a slot frees up, so the producer never runs ahead of the platform.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"vitalgen/internal/core"
	"vitalgen/internal/metrics"
	"vitalgen/internal/ratelimit"
)

// ErrPanic is wrapped by the error of a task that panicked.
var ErrPanic = errors.New("task panicked")

type Executor struct {
	sem     *semaphore.Weighted
	limit   int
	limiter *ratelimit.Limiter

	logger   *slog.Logger
	metrics  *metrics.Metrics
	reporter core.Reporter

	wg       sync.WaitGroup
	inFlight atomic.Int64
	peak     atomic.Int64
	done     atomic.Int64
	failed   atomic.Int64
}

type Option func(*Executor)

// WithRateLimiter additionally caps how many tasks start per second.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(e *Executor) { e.limiter = l }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithReporter receives an event for every recovered panic.
func WithReporter(r core.Reporter) Option {
	return func(e *Executor) { e.reporter = r }
}

// New returns an executor running at most limit tasks at once. A limit
// below 1 is treated as 1.
func New(limit int, opts ...Option) *Executor {
	if limit < 1 {
		limit = 1
	}
	e := &Executor{
		sem:      semaphore.NewWeighted(int64(limit)),
		limit:    limit,
		logger:   slog.Default(),
		reporter: core.NullReporter,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Future is the eventual result of a submitted task.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Wait blocks until the task finished and returns its result.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// Done is closed when the task finished.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Submit blocks until the executor admits the task, then runs it on its own
// goroutine. Admission is first come, first served. If ctx ends before
// admission the future completes with ctx's error and the task never runs.
func Submit[T any](ctx context.Context, e *Executor, task func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	if err := e.admit(ctx); err != nil {
		f.err = err
		close(f.done)
		return f
	}

	go func() {
		defer close(f.done)
		defer e.release()
		defer func() {
			if r := recover(); r != nil {
				f.err = e.recoverPanic(r)
			}
			if f.err != nil {
				e.failed.Add(1)
			}
		}()
		f.val, f.err = task(ctx)
	}()
	return f
}

// Go runs a task whose failure is only logged and counted. It blocks like
// Submit and returns an error only when the task could not be admitted.
func (e *Executor) Go(ctx context.Context, name string, task func(context.Context) error) error {
	if err := e.admit(ctx); err != nil {
		return err
	}
	go func() {
		defer e.release()
		defer func() {
			if r := recover(); r != nil {
				e.recoverPanic(r)
				e.failed.Add(1)
			}
		}()
		if err := task(ctx); err != nil {
			e.failed.Add(1)
			e.logger.Warn("task failed", "task", name, "error", err)
		}
	}()
	return nil
}

func (e *Executor) admit(ctx context.Context) error {
	start := time.Now()
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			e.sem.Release(1)
			return err
		}
	}
	e.metrics.ObserveAdmission(start)

	e.wg.Add(1)
	n := e.inFlight.Add(1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}
	e.metrics.SetInFlight(int(n))
	return nil
}

func (e *Executor) release() {
	n := e.inFlight.Add(-1)
	e.metrics.SetInFlight(int(n))
	e.done.Add(1)
	e.sem.Release(1)
	e.wg.Done()
}

// recoverPanic turns a recovered panic into an error and reports it.
func (e *Executor) recoverPanic(r any) error {
	err := fmt.Errorf("%w: %v", ErrPanic, r)
	e.logger.Error("task panicked", "panic", r)
	e.reporter.Report(core.Event{
		Timestamp: time.Now(),
		Step:      "panic",
		Success:   false,
		Error:     err.Error(),
	})
	return err
}

// Wait blocks until every admitted task finished.
func (e *Executor) Wait() { e.wg.Wait() }

// Limit returns the maximum number of tasks in flight.
func (e *Executor) Limit() int { return e.limit }

// InFlight returns the number of running tasks.
func (e *Executor) InFlight() int { return int(e.inFlight.Load()) }

// Peak returns the highest number of tasks that ran at once.
func (e *Executor) Peak() int { return int(e.peak.Load()) }

// Completed returns how many tasks finished, successfully or not.
func (e *Executor) Completed() int { return int(e.done.Load()) }

// Failed returns how many tasks returned an error or panicked.
func (e *Executor) Failed() int { return int(e.failed.Load()) }
