package collector

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// FormatText writes the run summary in human-readable form. units may be nil.
func FormatText(w io.Writer, m *Metrics, units *Units) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "vitalgen - Run Summary")
	fmt.Fprintln(w, "======================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Duration:     %v\n", m.RunDuration.Round(time.Millisecond))

	if units != nil {
		snap := units.Snapshot()
		fmt.Fprintf(w, "Work Units:   %s\n", formatNumber(units.Total()))
		for _, kind := range sortedKeys(snap) {
			outcomes := snap[kind]
			fmt.Fprintf(w, "  %-8s", kind)
			for _, o := range sortedKeys(outcomes) {
				fmt.Fprintf(w, " %s=%s", o, formatNumber(outcomes[o]))
			}
			fmt.Fprintln(w)
		}
	}

	if m.TotalCalls == 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "No remote calls recorded")
		return
	}

	fmt.Fprintf(w, "Remote Calls: %s\n", formatNumber(m.TotalCalls))
	fmt.Fprintf(w, "Success Rate: %.1f%% (%s / %s)\n",
		m.SuccessRate, formatNumber(m.SuccessCount), formatNumber(m.TotalCalls))
	fmt.Fprintf(w, "Calls/sec:    %.1f\n", m.CallsPerSec)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Response Times:")
	fmt.Fprintf(w, "  Min:    %s\n", FormatDuration(m.Duration.Min))
	fmt.Fprintf(w, "  Avg:    %s\n", FormatDuration(m.Duration.Avg))
	fmt.Fprintf(w, "  P50:    %s\n", FormatDuration(m.Duration.P50))
	fmt.Fprintf(w, "  P90:    %s\n", FormatDuration(m.Duration.P90))
	fmt.Fprintf(w, "  P95:    %s\n", FormatDuration(m.Duration.P95))
	fmt.Fprintf(w, "  P99:    %s\n", FormatDuration(m.Duration.P99))
	fmt.Fprintf(w, "  Max:    %s\n", FormatDuration(m.Duration.Max))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "By Step:")
	for _, key := range sortedKeys(m.Steps) {
		sm := m.Steps[key]
		fmt.Fprintf(w, "  %-16s %s calls  failed=%s  avg=%s  p95=%s  p99=%s\n",
			key, formatNumber(sm.Count), formatNumber(sm.Failed),
			FormatDuration(sm.Duration.Avg),
			FormatDuration(sm.Duration.P95),
			FormatDuration(sm.Duration.P99))
	}
}

// FormatJSON writes the run summary as indented JSON. units may be nil.
func FormatJSON(w io.Writer, m *Metrics, units *Units) {
	output := struct {
		Duration     string                     `json:"duration"`
		Units        map[string]map[string]int  `json:"units,omitempty"`
		TotalCalls   int                        `json:"totalCalls"`
		SuccessCount int                        `json:"successCount"`
		FailureCount int                        `json:"failureCount"`
		SuccessRate  float64                    `json:"successRate"`
		CallsPerSec  float64                    `json:"callsPerSec"`
		Durations    jsonDurationMetrics        `json:"durations"`
		Steps        map[string]jsonStepMetrics `json:"steps"`
	}{
		Duration:     m.RunDuration.Round(time.Millisecond).String(),
		TotalCalls:   m.TotalCalls,
		SuccessCount: m.SuccessCount,
		FailureCount: m.FailureCount,
		SuccessRate:  m.SuccessRate,
		CallsPerSec:  m.CallsPerSec,
		Durations:    toJSONDurationMetrics(m.Duration),
		Steps:        make(map[string]jsonStepMetrics),
	}
	if units != nil {
		output.Units = units.Snapshot()
	}
	for key, sm := range m.Steps {
		output.Steps[key] = jsonStepMetrics{
			Count:       sm.Count,
			Success:     sm.Success,
			Failed:      sm.Failed,
			SuccessRate: float64(sm.Success) / float64(sm.Count) * 100,
			Durations:   toJSONDurationMetrics(sm.Duration),
		}
	}

	encoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output) // stdout errors are unrecoverable
}

type jsonDurationMetrics struct {
	Min string `json:"min"`
	Max string `json:"max"`
	Avg string `json:"avg"`
	P50 string `json:"p50"`
	P90 string `json:"p90"`
	P95 string `json:"p95"`
	P99 string `json:"p99"`
}

type jsonStepMetrics struct {
	Count       int                 `json:"count"`
	Success     int                 `json:"success"`
	Failed      int                 `json:"failed"`
	SuccessRate float64             `json:"successRate"`
	Durations   jsonDurationMetrics `json:"durations"`
}

func toJSONDurationMetrics(d DurationMetrics) jsonDurationMetrics {
	return jsonDurationMetrics{
		Min: FormatDuration(d.Min),
		Max: FormatDuration(d.Max),
		Avg: FormatDuration(d.Avg),
		P50: FormatDuration(d.P50),
		P90: FormatDuration(d.P90),
		P95: FormatDuration(d.P95),
		P99: FormatDuration(d.P99),
	}
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// formatNumber groups thousands with commas.
func formatNumber(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
