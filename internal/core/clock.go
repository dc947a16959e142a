package core

import (
	"sort"
	"sync"
	"time"
)

// Clock provides time operations that can be mocked for testing.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback that can be stopped before it fires.
type Timer interface {
	Stop() bool
}

// RealClock uses the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time                            { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration          { return time.Since(t) }
func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// FakeClock is a test clock that can be manually advanced.
// Timers registered with AfterFunc fire synchronously inside Advance and Set.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*fakeTimer
}

type fakeTimer struct {
	clock    *FakeClock
	deadline time.Time
	f        func()
	stopped  bool
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{current: start}
}

func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *FakeClock) Since(t time.Time) time.Duration {
	return f.Now().Sub(t)
}

func (f *FakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{clock: f, deadline: f.current.Add(d), f: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *FakeClock) Advance(d time.Duration) { f.Set(f.Now().Add(d)) }

// Set moves the clock to t and fires every timer whose deadline has passed,
// earliest first. Timers scheduled by a firing callback fire in the same call
// when they are already due.
func (f *FakeClock) Set(t time.Time) {
	f.mu.Lock()
	f.current = t
	f.mu.Unlock()
	for {
		next := f.popDue()
		if next == nil {
			return
		}
		next.f()
	}
}

// Pending returns the deadlines of timers that have not fired or been stopped.
func (f *FakeClock) Pending() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Time, 0, len(f.timers))
	for _, t := range f.timers {
		out = append(out, t.deadline)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (f *FakeClock) popDue() *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := -1
	for i, t := range f.timers {
		if t.deadline.After(f.current) {
			continue
		}
		if idx < 0 || t.deadline.Before(f.timers[idx].deadline) {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	t := f.timers[idx]
	f.timers = append(f.timers[:idx], f.timers[idx+1:]...)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	for i, other := range t.clock.timers {
		if other == t {
			t.clock.timers = append(t.clock.timers[:i], t.clock.timers[i+1:]...)
			t.stopped = true
			return true
		}
	}
	return false
}
