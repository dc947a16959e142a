package collector

import (
	"bytes"
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitalgen/internal/core"
)

func TestCollector_CollectsEvents(t *testing.T) {
	c := NewCollector()
	c.Report(core.Event{Actor: "fa1", Kind: "birth", Step: "declare", Success: true, Duration: 10 * time.Millisecond})
	c.Report(core.Event{Actor: "lr1", Kind: "birth", Step: "register", Success: false, Error: "boom"})
	c.Close()

	events := c.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "fa1", events[0].Actor)
	assert.Equal(t, "boom", events[1].Error)
	assert.Zero(t, c.DroppedEvents())
}

func TestCollector_ThreadSafety(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Report(core.Event{Step: "declare", Success: true})
			}
		}()
	}
	wg.Wait()
	c.Close()

	assert.Equal(t, int64(1000), int64(len(c.Events()))+c.DroppedEvents())
}

func TestCollector_DurationFreezesOnClose(t *testing.T) {
	c := NewCollector()
	c.Close()
	d := c.Duration()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, d, c.Duration())
}

func TestCollector_DurationUsesClock(t *testing.T) {
	clock := core.NewFakeClock(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewCollector(WithClock(clock))
	clock.Advance(3 * time.Second)
	assert.Equal(t, 3*time.Second, c.Duration())
	c.Close()
	clock.Advance(time.Minute)
	assert.Equal(t, 3*time.Second, c.Duration())
}

func TestCollector_CloseTwice(t *testing.T) {
	c := NewCollector()
	c.Report(core.Event{Step: "declare", Success: true})
	c.Close()
	assert.NotPanics(t, c.Close)
	assert.Len(t, c.Events(), 1)
}

func TestCollector_UnitDone(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.UnitDone("birth", "success")
			c.UnitDone("death", "failure")
		}()
	}
	wg.Wait()
	c.Close()

	units := c.Units()
	assert.Equal(t, 50, units.Count("birth", "success"))
	assert.Equal(t, 50, units.Count("death", "failure"))
	assert.Equal(t, 100, units.Total())
	assert.Empty(t, c.Events(), "unit outcomes are not call events")
}

func TestComputeMetrics_Empty(t *testing.T) {
	m := ComputeMetrics(nil, 10*time.Second)
	assert.Zero(t, m.TotalCalls)
	assert.Equal(t, 10*time.Second, m.RunDuration)
	assert.NotNil(t, m.Steps)
}

func TestComputeMetrics_CountsAndSteps(t *testing.T) {
	events := []core.Event{
		{Kind: "birth", Step: "declare", Success: true, Duration: 100 * time.Millisecond},
		{Kind: "birth", Step: "declare", Success: true, Duration: 300 * time.Millisecond},
		{Kind: "birth", Step: "register", Success: false, Duration: 50 * time.Millisecond},
		{Kind: "death", Step: "declare", Success: true, Duration: 200 * time.Millisecond},
		{Step: "panic", Success: false},
	}
	m := ComputeMetrics(events, 5*time.Second)

	assert.Equal(t, 5, m.TotalCalls)
	assert.Equal(t, 3, m.SuccessCount)
	assert.Equal(t, 2, m.FailureCount)
	assert.InDelta(t, 60.0, m.SuccessRate, 1e-9)
	assert.InDelta(t, 1.0, m.CallsPerSec, 1e-9)

	require.Contains(t, m.Steps, "birth declare")
	assert.Equal(t, 2, m.Steps["birth declare"].Count)
	assert.Equal(t, 200*time.Millisecond, m.Steps["birth declare"].Duration.Avg)
	assert.Equal(t, 1, m.Steps["birth register"].Failed)
	assert.Equal(t, 1, m.Steps["death declare"].Success)
	assert.Contains(t, m.Steps, "panic")
}

func TestComputeMetrics_DoesNotModifyInput(t *testing.T) {
	events := []core.Event{
		{Step: "a", Duration: 3 * time.Millisecond},
		{Step: "a", Duration: 1 * time.Millisecond},
		{Step: "a", Duration: 2 * time.Millisecond},
	}
	ComputeMetrics(events, time.Second)
	assert.Equal(t, 3*time.Millisecond, events[0].Duration)
	assert.Equal(t, 1*time.Millisecond, events[1].Duration)
}

func TestComputePercentile(t *testing.T) {
	sorted := make([]time.Duration, 100)
	for i := range sorted {
		sorted[i] = time.Duration(i+1) * time.Millisecond
	}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, 1 * time.Millisecond},
		{0.5, 50 * time.Millisecond},
		{0.95, 95 * time.Millisecond},
		{0.99, 99 * time.Millisecond},
		{1, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputePercentile(sorted, tt.p), "p=%v", tt.p)
	}
	assert.Zero(t, ComputePercentile(nil, 0.5))
}

func TestUnits(t *testing.T) {
	u := NewUnits()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u.Add("birth", "success")
		}()
	}
	wg.Wait()
	u.Add("birth", "skipped")
	u.Add("death", "failure")

	assert.Equal(t, 50, u.Count("birth", "success"))
	assert.Equal(t, 1, u.Count("death", "failure"))
	assert.Zero(t, u.Count("death", "success"))
	assert.Equal(t, 52, u.Total())

	snap := u.Snapshot()
	snap["birth"]["success"] = 0
	assert.Equal(t, 50, u.Count("birth", "success"))
}

func TestFormatText(t *testing.T) {
	events := []core.Event{
		{Kind: "birth", Step: "declare", Success: true, Duration: 120 * time.Millisecond},
		{Kind: "birth", Step: "register", Success: false, Duration: 80 * time.Millisecond},
	}
	u := NewUnits()
	u.Add("birth", "failure")

	var buf bytes.Buffer
	FormatText(&buf, ComputeMetrics(events, 2*time.Second), u)
	out := buf.String()

	assert.Contains(t, out, "vitalgen - Run Summary")
	assert.Contains(t, out, "Work Units:   1")
	assert.Contains(t, out, "failure=1")
	assert.Contains(t, out, "Remote Calls: 2")
	assert.Contains(t, out, "Success Rate: 50.0% (1 / 2)")
	assert.Contains(t, out, "birth declare")
	assert.Contains(t, out, "birth register")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("birth declare")), bytes.Index(buf.Bytes(), []byte("birth register")))
}

func TestFormatText_NoCalls(t *testing.T) {
	var buf bytes.Buffer
	FormatText(&buf, ComputeMetrics(nil, time.Second), nil)
	assert.Contains(t, buf.String(), "No remote calls recorded")
}

func TestFormatJSON(t *testing.T) {
	events := []core.Event{
		{Kind: "death", Step: "certify", Success: true, Duration: 1500 * time.Millisecond},
	}
	u := NewUnits()
	u.Add("death", "success")

	var buf bytes.Buffer
	FormatJSON(&buf, ComputeMetrics(events, time.Second), u)

	var decoded struct {
		TotalCalls int                       `json:"totalCalls"`
		Units      map[string]map[string]int `json:"units"`
		Steps      map[string]struct {
			Count     int `json:"count"`
			Durations struct {
				Avg string `json:"avg"`
			} `json:"durations"`
		} `json:"steps"`
	}
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1, decoded.TotalCalls)
	assert.Equal(t, 1, decoded.Units["death"]["success"])
	assert.Equal(t, 1, decoded.Steps["death certify"].Count)
	assert.Equal(t, "1.5s", decoded.Steps["death certify"].Durations.Avg)
}

func TestFormatNumber(t *testing.T) {
	tests := map[int]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		12345:   "12,345",
		1234567: "1,234,567",
		-4200:   "-4,200",
	}
	for n, want := range tests {
		assert.Equal(t, want, formatNumber(n))
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500µs", FormatDuration(500*time.Microsecond))
	assert.Equal(t, "42ms", FormatDuration(42*time.Millisecond))
	assert.Equal(t, "2.5s", FormatDuration(2500*time.Millisecond))
	assert.Equal(t, "2m0s", FormatDuration(2*time.Minute))
}
