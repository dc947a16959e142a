// Package progress reports run throughput while work units complete.
package progress

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"vitalgen/internal/collector"
	"vitalgen/internal/core"
)

const (
	defaultInterval = 3 * time.Second
	window          = time.Minute
)

// Progress counts finished work units and periodically logs how many
// finished within the last minute.
type Progress struct {
	collector *collector.Collector
	logger    *slog.Logger
	clock     core.Clock
	interval  time.Duration

	mu    sync.Mutex
	done  []time.Time // ascending; only the last window is kept
	total int

	ticker  *time.Ticker
	stopCh  chan struct{}
	stopped atomic.Bool
}

type Option func(*Progress)

func WithClock(c core.Clock) Option {
	return func(p *Progress) { p.clock = c }
}

// WithInterval sets how often the throughput line is logged.
func WithInterval(d time.Duration) Option {
	return func(p *Progress) { p.interval = d }
}

// NewProgress returns a reporter. c may be nil; it adds failed call counts
// to the line.
func NewProgress(c *collector.Collector, logger *slog.Logger, opts ...Option) *Progress {
	p := &Progress{
		collector: c,
		logger:    logger,
		clock:     core.RealClock{},
		interval:  defaultInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// UnitDone records one finished work unit.
func (p *Progress) UnitDone() {
	now := p.clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = append(p.done, now)
	p.total++
	p.prune(now)
}

// PerMinute returns the number of units finished within the last minute.
func (p *Progress) PerMinute() int {
	now := p.clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune(now)
	return len(p.done)
}

// Total returns the number of units finished since the start.
func (p *Progress) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

func (p *Progress) prune(now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(p.done) && p.done[i].Before(cutoff) {
		i++
	}
	p.done = p.done[i:]
}

// Start logs throughput every interval until Stop.
func (p *Progress) Start() {
	p.stopCh = make(chan struct{})
	p.ticker = time.NewTicker(p.interval)
	go p.run()
}

func (p *Progress) run() {
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.ticker.C:
			p.Report()
		}
	}
}

// Report logs one throughput line.
func (p *Progress) Report() {
	attrs := []any{"perMinute", p.PerMinute(), "units", p.Total()}
	if p.collector != nil {
		m := p.collector.Compute()
		attrs = append(attrs, "calls", m.TotalCalls, "failedCalls", m.FailureCount)
	}
	p.logger.Info("throughput", attrs...)
}

// Stop ends periodic reporting. It is safe to call more than once and
// without Start.
func (p *Progress) Stop() {
	if p.stopped.Swap(true) {
		return
	}
	if p.ticker != nil {
		p.ticker.Stop()
	}
	if p.stopCh != nil {
		close(p.stopCh)
	}
}
