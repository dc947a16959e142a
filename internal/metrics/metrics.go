// Package metrics holds the Prometheus instruments of a generator run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for a run. A nil *Metrics is valid and
// records nothing, so packages can take it as an optional dependency.
type Metrics struct {
	UnitsTotal     *prometheus.CounterVec
	StepDuration   *prometheus.HistogramVec
	TokenRefreshes *prometheus.CounterVec
	ActorsCreated  *prometheus.CounterVec
	InFlight       prometheus.Gauge
	AdmissionWait  prometheus.Histogram
}

// New registers every instrument on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UnitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vitalgen_work_units_total",
			Help: "Work units processed, by event kind and outcome",
		}, []string{"kind", "outcome"}),
		StepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vitalgen_step_duration_seconds",
			Help:    "Duration of remote workflow steps",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"step", "outcome"}),
		TokenRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vitalgen_token_refreshes_total",
			Help: "Actor token refreshes, by outcome",
		}, []string{"outcome"}),
		ActorsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vitalgen_actors_created_total",
			Help: "Synthetic actors created, by role",
		}, []string{"role"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "vitalgen_tasks_in_flight",
			Help: "Work units currently executing",
		}),
		AdmissionWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vitalgen_admission_wait_seconds",
			Help:    "Time a submitter blocked waiting for a free slot",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
		}),
	}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// ObserveStep records one remote workflow step.
func (m *Metrics) ObserveStep(step string, ok bool, took time.Duration) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(step, outcome(ok)).Observe(took.Seconds())
}

// UnitDone counts a finished work unit. outcome is "success", "failure" or
// "skipped".
func (m *Metrics) UnitDone(kind, result string) {
	if m == nil {
		return
	}
	m.UnitsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) TokenRefreshed(ok bool) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(outcome(ok)).Inc()
}

func (m *Metrics) ActorCreated(role string) {
	if m == nil {
		return
	}
	m.ActorsCreated.WithLabelValues(role).Inc()
}

func (m *Metrics) SetInFlight(n int) {
	if m == nil {
		return
	}
	m.InFlight.Set(float64(n))
}

// ObserveAdmission records how long a submitter waited for a slot.
// Call with time.Now() taken before blocking.
func (m *Metrics) ObserveAdmission(start time.Time) {
	if m == nil {
		return
	}
	m.AdmissionWait.Observe(time.Since(start).Seconds())
}
