// Package core defines the shared types for vitalgen: the clock, the random
// source, and the measurement events emitted by every remote call.
package core

import (
	"time"
)

// Event represents a single measurement from one workflow stage of a work unit.
type Event struct {
	Actor     string
	Timestamp time.Time
	Kind      string // "birth", "death"
	Step      string // "declare", "notify", "register", "certify"
	Duration  time.Duration
	Success   bool
	Error     string
	RecordID  string
}

// Reporter is the interface the workflow driver uses to send events to the Collector.
type Reporter interface {
	Report(Event)
}

// NullReporter discards all events.
var NullReporter Reporter = nullReporter{}

type nullReporter struct{}

func (nullReporter) Report(Event) {}
