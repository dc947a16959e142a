package collector

import (
	"sort"
	"time"

	"vitalgen/internal/core"
)

// Metrics summarises the remote calls of a run.
type Metrics struct {
	TotalCalls   int                     `json:"totalCalls"`
	SuccessCount int                     `json:"successCount"`
	FailureCount int                     `json:"failureCount"`
	SuccessRate  float64                 `json:"successRate"`
	CallsPerSec  float64                 `json:"callsPerSec"`
	RunDuration  time.Duration           `json:"runDuration"`
	Duration     DurationMetrics         `json:"durations"`
	Steps        map[string]*StepMetrics `json:"steps"` // keyed by "<kind> <step>"
}

// DurationMetrics contains latency statistics.
type DurationMetrics struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
	Avg time.Duration `json:"avg"`
	P50 time.Duration `json:"p50"`
	P90 time.Duration `json:"p90"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
}

// StepMetrics contains per-step statistics.
type StepMetrics struct {
	Count    int             `json:"count"`
	Success  int             `json:"success"`
	Failed   int             `json:"failed"`
	Duration DurationMetrics `json:"durations"`
}

// StepKey names the bucket an event is aggregated under.
func StepKey(e core.Event) string {
	if e.Kind == "" {
		return e.Step
	}
	return e.Kind + " " + e.Step
}

// ComputeMetrics computes metrics from events. Pure function, no side effects.
func ComputeMetrics(events []core.Event, runDuration time.Duration) *Metrics {
	m := &Metrics{
		Steps:       make(map[string]*StepMetrics),
		RunDuration: runDuration,
	}
	if len(events) == 0 {
		return m
	}

	all := make([]time.Duration, 0, len(events))
	byStep := make(map[string][]time.Duration)
	for _, e := range events {
		m.TotalCalls++
		key := StepKey(e)
		step, ok := m.Steps[key]
		if !ok {
			step = &StepMetrics{}
			m.Steps[key] = step
		}
		step.Count++
		if e.Success {
			m.SuccessCount++
			step.Success++
		} else {
			m.FailureCount++
			step.Failed++
		}
		all = append(all, e.Duration)
		byStep[key] = append(byStep[key], e.Duration)
	}

	m.SuccessRate = float64(m.SuccessCount) / float64(m.TotalCalls) * 100
	if runDuration > 0 {
		m.CallsPerSec = float64(m.TotalCalls) / runDuration.Seconds()
	}
	m.Duration = ComputeDurationMetrics(all)
	for key, durations := range byStep {
		m.Steps[key].Duration = ComputeDurationMetrics(durations)
	}
	return m
}

// ComputePercentile returns the nearest-rank percentile p (0..1) of an
// ascending slice.
func ComputePercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

// ComputeDurationMetrics calculates all duration statistics from a slice of durations.
func ComputeDurationMetrics(durations []time.Duration) DurationMetrics {
	if len(durations) == 0 {
		return DurationMetrics{}
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	return DurationMetrics{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: total / time.Duration(len(sorted)),
		P50: ComputePercentile(sorted, 0.50),
		P90: ComputePercentile(sorted, 0.90),
		P95: ComputePercentile(sorted, 0.95),
		P99: ComputePercentile(sorted, 0.99),
	}
}
