// Package collector aggregates the events of a run and summarises them.
package collector

import (
	"sync"
	"sync/atomic"
	"time"

	"vitalgen/internal/core"
)

// queueSize is how many call events may wait for the drain goroutine before
// Report starts dropping them.
const queueSize = 4096

// Collector is the sink of a generation run. The workflow driver reports one
// event per remote call and one outcome per finished work unit. Calls go
// through a queue so a slow summary never holds up a unit; outcomes are
// counted directly.
type Collector struct {
	clock   core.Clock
	queue   chan core.Event
	drained chan struct{}
	closing sync.Once
	dropped atomic.Int64
	units   *Units

	mu       sync.Mutex
	calls    []core.Event
	started  time.Time
	finished time.Time
}

type Option func(*Collector)

// WithClock sets the clock the run duration is measured with.
func WithClock(c core.Clock) Option {
	return func(col *Collector) { col.clock = c }
}

// NewCollector starts a collector. The run duration is measured from here.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		clock:   core.RealClock{},
		queue:   make(chan core.Event, queueSize),
		drained: make(chan struct{}),
		units:   NewUnits(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.started = c.clock.Now()
	go c.drain()
	return c
}

func (c *Collector) drain() {
	defer close(c.drained)
	for e := range c.queue {
		c.mu.Lock()
		c.calls = append(c.calls, e)
		c.mu.Unlock()
	}
}

// Report queues the event of one remote call. It never blocks; a call that
// does not fit the queue is only counted as dropped.
func (c *Collector) Report(e core.Event) {
	select {
	case c.queue <- e:
	default:
		c.dropped.Add(1)
	}
}

// UnitDone counts one finished work unit of kind ("birth", "death") with
// its outcome.
func (c *Collector) UnitDone(kind, outcome string) {
	c.units.Add(kind, outcome)
}

// Units returns the live outcome counts.
func (c *Collector) Units() *Units { return c.units }

// Close stops the run clock and waits until every queued call is stored.
// Reports after Close panic; further Close calls are no-ops.
func (c *Collector) Close() {
	c.closing.Do(func() {
		c.mu.Lock()
		c.finished = c.clock.Now()
		c.mu.Unlock()
		close(c.queue)
		<-c.drained
	})
}

// Events returns a copy of the stored call events.
func (c *Collector) Events() []core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Event(nil), c.calls...)
}

// DroppedEvents returns how many call events did not fit the queue.
func (c *Collector) DroppedEvents() int64 { return c.dropped.Load() }

// Duration returns how long the run has taken, frozen once closed.
func (c *Collector) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished.IsZero() {
		return c.clock.Since(c.started)
	}
	return c.finished.Sub(c.started)
}

// Compute summarises the calls stored so far.
func (c *Collector) Compute() *Metrics {
	return ComputeMetrics(c.Events(), c.Duration())
}

// Units counts finished work units by kind and outcome. It is safe for
// concurrent use.
type Units struct {
	mu     sync.Mutex
	counts map[string]map[string]int
}

func NewUnits() *Units {
	return &Units{counts: make(map[string]map[string]int)}
}

// Add counts one finished unit.
func (u *Units) Add(kind, outcome string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	byOutcome, ok := u.counts[kind]
	if !ok {
		byOutcome = make(map[string]int)
		u.counts[kind] = byOutcome
	}
	byOutcome[outcome]++
}

// Count returns the number of units of kind that ended with outcome.
func (u *Units) Count(kind, outcome string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.counts[kind][outcome]
}

// Total returns the number of finished units.
func (u *Units) Total() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, byOutcome := range u.counts {
		for _, c := range byOutcome {
			n += c
		}
	}
	return n
}

// Snapshot returns a copy of the counts.
func (u *Units) Snapshot() map[string]map[string]int {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]map[string]int, len(u.counts))
	for kind, byOutcome := range u.counts {
		cp := make(map[string]int, len(byOutcome))
		for o, c := range byOutcome {
			cp[o] = c
		}
		out[kind] = cp
	}
	return out
}
