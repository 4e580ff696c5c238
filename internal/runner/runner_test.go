package runner

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"cdnbench/internal/probe"
	"cdnbench/internal/source"
)

type mockProber struct {
	mock.Mock
}

func (m *mockProber) Probe(ctx context.Context, url, cacheHeader, hitPrefix string) probe.Outcome {
	args := m.Called(url, cacheHeader, hitPrefix)
	return args.Get(0).(probe.Outcome)
}

type proberFunc func(url string) probe.Outcome

func (f proberFunc) Probe(ctx context.Context, url, cacheHeader, hitPrefix string) probe.Outcome {
	return f(url)
}

// sliceSource hands out steps in order and counts how many were drawn.
type sliceSource struct {
	steps []source.Step
	drawn int
}

func (s *sliceSource) Kind() string { return "Step" }

func (s *sliceSource) Next() (source.Step, bool) {
	if s.drawn >= len(s.steps) {
		return source.Step{}, false
	}
	step := s.steps[s.drawn]
	s.drawn++
	return step, true
}

func newSource(n int) *sliceSource {
	src := &sliceSource{}
	for i := 0; i < n; i++ {
		src.steps = append(src.steps, source.Step{
			Label:     fmt.Sprintf("s%d", i),
			EdgeAURL:  fmt.Sprintf("a/s%d", i),
			EdgeBURL:  fmt.Sprintf("b/s%d", i),
			OriginURL: fmt.Sprintf("o/s%d", i),
		})
	}
	return src
}

func measured(kbps float64) probe.Outcome {
	return probe.Outcome{Kind: probe.Measured, KBps: kbps}
}

func allMeasured() proberFunc {
	return func(url string) probe.Outcome { return measured(1000) }
}

func labels(rows []ReportRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Label)
	}
	return out
}

func TestRun_StopsAtSampleBudget(t *testing.T) {
	assert := assert.New(t)
	src := newSource(10)
	r := NewRunner(Config{MaxAttempts: 20, MaxSamples: 5}, allMeasured(), nil)

	rows := r.Run(context.Background(), src)

	assert.Equal([]string{"s0", "s1", "s2", "s3", "s4"}, labels(rows))
	assert.Equal(5, src.drawn)
	assert.Equal(uint64(5), r.Stats.Summary().Attempts)
}

func TestRun_StopsWhenSourceExhausted(t *testing.T) {
	src := newSource(3)
	rows := NewRunner(Config{MaxAttempts: 20, MaxSamples: 5}, allMeasured(), nil).Run(context.Background(), src)

	assert.Equal(t, []string{"s0", "s1", "s2"}, labels(rows))
	assert.Equal(t, 3, src.drawn)
}

func TestRun_StopsAtAttemptBudget(t *testing.T) {
	assert := assert.New(t)
	src := newSource(50)
	calls := 0
	prober := proberFunc(func(url string) probe.Outcome {
		calls++
		return probe.Outcome{Kind: probe.CacheHit, CacheStatus: "HIT"}
	})
	r := NewRunner(Config{MaxAttempts: 7, MaxSamples: 5}, prober, nil)

	rows := r.Run(context.Background(), src)

	assert.Empty(rows)
	assert.Equal(7, src.drawn)
	// every path is probed even though the step is already doomed
	assert.Equal(21, calls)

	sum := r.Stats.Summary()
	assert.Equal(uint64(7), sum.Attempts)
	assert.Equal(uint64(0), sum.Samples)
	assert.Equal(uint64(21), sum.CacheHits)
}

func TestRun_DiscardsStepWithAnyUnusableOutcome(t *testing.T) {
	assert := assert.New(t)
	src := newSource(5)
	prober := proberFunc(func(url string) probe.Outcome {
		switch url {
		case "b/s1":
			return probe.Outcome{Kind: probe.CacheHit, CacheStatus: "Hit from cloudfront"}
		case "o/s2":
			return probe.Fail(url, errors.New("503 Service Unavailable"))
		}
		return measured(1000)
	})
	r := NewRunner(Config{MaxAttempts: 4, MaxSamples: 2}, prober, nil)

	rows := r.Run(context.Background(), src)

	assert.Equal([]string{"s0", "s3"}, labels(rows))
	assert.Equal(4, src.drawn)

	sum := r.Stats.Summary()
	assert.Equal(uint64(4), sum.Attempts)
	assert.Equal(uint64(2), sum.Samples)
	assert.Equal(uint64(1), sum.CacheHits)
	assert.Equal(uint64(1), sum.Failures)
}

func TestRun_ZeroAttemptsNeverProbes(t *testing.T) {
	src := newSource(5)
	prober := new(mockProber)
	rows := NewRunner(Config{MaxAttempts: 0, MaxSamples: 5}, prober, nil).Run(context.Background(), src)

	assert.Empty(t, rows)
	assert.Equal(t, 0, src.drawn)
	prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_ZeroSamplesNeverProbes(t *testing.T) {
	src := newSource(5)
	prober := new(mockProber)
	rows := NewRunner(Config{MaxAttempts: 5, MaxSamples: 0}, prober, nil).Run(context.Background(), src)

	assert.Empty(t, rows)
	assert.Equal(t, 0, src.drawn)
	prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_ProbesPathsInOrderWithProviderHeaders(t *testing.T) {
	prober := new(mockProber)
	var order []string
	record := func(args mock.Arguments) { order = append(order, args.String(0)) }

	prober.On("Probe", "a/s0", "x-cache", "HIT").Run(record).Return(measured(3000.9)).Once()
	prober.On("Probe", "b/s0", "x-cache", "Hit").Run(record).Return(measured(2000.5)).Once()
	prober.On("Probe", "o/s0", "", "").Run(record).Return(measured(999.99)).Once()

	rows := NewRunner(Config{MaxAttempts: 1, MaxSamples: 1}, prober, nil).Run(context.Background(), newSource(1))

	prober.AssertExpectations(t)
	assert.Equal(t, []string{"a/s0", "b/s0", "o/s0"}, order)
	assert.Equal(t, []ReportRow{{Label: "s0", EdgeAKBps: 3000, EdgeBKBps: 2000, OriginKBps: 999}}, rows)
}

func TestRun_ShortCircuitSkipsRemainingPaths(t *testing.T) {
	prober := new(mockProber)
	prober.On("Probe", "a/s0", "x-cache", "HIT").Return(probe.Fail("a/s0", errors.New("down"))).Once()
	prober.On("Probe", "a/s1", "x-cache", "HIT").Return(measured(10)).Once()
	prober.On("Probe", "b/s1", "x-cache", "Hit").Return(measured(10)).Once()
	prober.On("Probe", "o/s1", "", "").Return(measured(10)).Once()

	updates := make(EventChan, 10)
	rows := NewRunner(Config{MaxAttempts: 2, MaxSamples: 2, ShortCircuit: true}, prober, updates).Run(context.Background(), newSource(2))

	prober.AssertExpectations(t)
	prober.AssertNotCalled(t, "Probe", "b/s0", mock.Anything, mock.Anything)
	assert.Equal(t, []string{"s1"}, labels(rows))

	first := <-updates
	assert.Equal(t, probe.Failed, first.Outcomes[0].Kind)
	assert.Equal(t, probe.Skipped, first.Outcomes[1].Kind)
	assert.Equal(t, probe.Skipped, first.Outcomes[2].Kind)
}

func TestRun_PublishesOneEventPerAttempt(t *testing.T) {
	assert := assert.New(t)
	prober := proberFunc(func(url string) probe.Outcome {
		if url == "a/s1" {
			return probe.Outcome{Kind: probe.CacheHit}
		}
		return measured(42)
	})
	updates := make(EventChan, 10)

	NewRunner(Config{MaxAttempts: 3, MaxSamples: 3}, prober, updates).Run(context.Background(), newSource(3))

	var events []Event
	for ev := range updates {
		events = append(events, ev)
	}

	assert.Len(events, 3)
	for i, ev := range events {
		assert.Equal(i+1, ev.Attempt)
	}
	assert.NotNil(events[0].Row)
	assert.Nil(events[1].Row)
	assert.Equal(probe.CacheHit, events[1].Outcomes[0].Kind)
	assert.Equal(42, events[2].Row.OriginKBps)
}

func TestRun_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := newSource(5)
	rows := NewRunner(Config{MaxAttempts: 5, MaxSamples: 5}, allMeasured(), nil).Run(ctx, src)

	assert.Empty(t, rows)
	assert.Equal(t, 0, src.drawn)
}

func TestRun_PacesSteps(t *testing.T) {
	src := newSource(3)
	r := NewRunner(Config{MaxAttempts: 3, MaxSamples: 3, StepInterval: 40 * time.Millisecond}, allMeasured(), nil)

	start := time.Now()
	rows := r.Run(context.Background(), src)

	assert.Len(t, rows, 3)
	// the first step is immediate, the next two wait for a token each
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestRun_BudgetsHoldForRandomOutcomes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		available := rng.Intn(15)
		attempts := rng.Intn(12)
		samples := rng.Intn(8)

		usable := make(map[string]bool)
		prober := proberFunc(func(url string) probe.Outcome {
			if rng.Intn(4) == 0 {
				return probe.Outcome{Kind: probe.CacheHit}
			}
			usable[url] = true
			return measured(float64(rng.Intn(5000)))
		})

		src := newSource(available)
		rows := NewRunner(Config{MaxAttempts: attempts, MaxSamples: samples}, prober, nil).Run(context.Background(), src)

		assert.LessOrEqual(t, len(rows), samples)
		assert.LessOrEqual(t, src.drawn, attempts)
		assert.LessOrEqual(t, src.drawn, available)

		// rows keep draw order and only come from fully measured steps
		last := -1
		for _, row := range rows {
			var idx int
			fmt.Sscanf(row.Label, "s%d", &idx)
			assert.Greater(t, idx, last)
			last = idx
			assert.True(t, usable["a/"+row.Label] && usable["b/"+row.Label] && usable["o/"+row.Label])
		}
	}
}

func TestNewReportRow(t *testing.T) {
	assert := assert.New(t)

	row, ok := NewReportRow("d", [3]probe.Outcome{measured(1.9), measured(0.4), measured(12345.678)})
	assert.True(ok)
	assert.Equal(ReportRow{Label: "d", EdgeAKBps: 1, EdgeBKBps: 0, OriginKBps: 12345}, row)
	assert.Equal([3]int{1, 0, 12345}, row.KBps())

	_, ok = NewReportRow("d", [3]probe.Outcome{measured(1), {Kind: probe.CacheHit}, measured(1)})
	assert.False(ok)

	_, ok = NewReportRow("d", [3]probe.Outcome{measured(1), measured(1), probe.Skip("o")})
	assert.False(ok)
}

func TestEvent_DiscardReason(t *testing.T) {
	measured := probe.Outcome{Kind: probe.Measured, KBps: 1}
	hit := probe.Outcome{Kind: probe.CacheHit, CacheStatus: "Hit from cloudfront"}

	ev := Event{Outcomes: [3]probe.Outcome{measured, hit, probe.Fail("u", errors.New("boom"))}}
	assert.Equal(t, "Cloudfront "+hit.Reason(), ev.DiscardReason())

	ev = Event{Outcomes: [3]probe.Outcome{measured, measured, probe.Skip("u")}}
	assert.Equal(t, "S3 "+probe.Skip("u").Reason(), ev.DiscardReason())

	ev = Event{Outcomes: [3]probe.Outcome{measured, measured, measured}}
	assert.Equal(t, "discarded", ev.DiscardReason())
}

func TestConfig_Progress(t *testing.T) {
	cfg := Config{MaxAttempts: 20, MaxSamples: 5}

	assert.Equal(t, 0.0, cfg.Progress(0, 0))
	assert.Equal(t, 0.25, cfg.Progress(5, 0))
	assert.Equal(t, 0.4, cfg.Progress(5, 2))
	assert.Equal(t, 1.0, cfg.Progress(20, 1))
	assert.Equal(t, 1.0, cfg.Progress(30, 9))
	assert.Equal(t, 0.0, Config{}.Progress(3, 3))
}
