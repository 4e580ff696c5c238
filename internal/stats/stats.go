package stats

import (
	"sync/atomic"

	"cdnbench/internal/probe"
)

// Path indexes the three delivery paths of a step.
type Path int

const (
	EdgeA Path = iota
	EdgeB
	Origin
)

// Paths lists every path in probe order.
var Paths = []Path{EdgeA, EdgeB, Origin}

// Stats aggregates the outcomes of a run. Counters are safe to read while
// the runner updates them.
type Stats struct {
	Attempts  uint64
	Samples   uint64
	CacheHits uint64
	Failures  uint64
	Bytes     uint64

	// Throughput of measured downloads (KB/s), one histogram per path.
	// Only steps that produced a sample are recorded.
	Throughput [3]*SafeHistogram
}

func NewStats() *Stats {
	return &Stats{
		Throughput: [3]*SafeHistogram{
			NewSafeHistogram(),
			NewSafeHistogram(),
			NewSafeHistogram(),
		},
	}
}

// AddOutcome counts a single download outcome.
func (s *Stats) AddOutcome(o probe.Outcome) {
	switch o.Kind {
	case probe.CacheHit:
		atomic.AddUint64(&s.CacheHits, 1)
	case probe.Failed:
		atomic.AddUint64(&s.Failures, 1)
	}
	if o.Bytes > 0 {
		atomic.AddUint64(&s.Bytes, uint64(o.Bytes))
	}
}

// AddAttempt counts one drawn step.
func (s *Stats) AddAttempt() {
	atomic.AddUint64(&s.Attempts, 1)
}

// AddSample records the three throughputs of a fully measured step.
func (s *Stats) AddSample(kbps [3]int) {
	atomic.AddUint64(&s.Samples, 1)
	for i, v := range kbps {
		s.Throughput[i].RecordValue(int64(v))
	}
}

// PathSummary condenses the throughput histogram of one path.
type PathSummary struct {
	Count  int64   `json:"count"`
	Min    int64   `json:"min_kbps"`
	Median int64   `json:"median_kbps"`
	Max    int64   `json:"max_kbps"`
	Mean   float64 `json:"mean_kbps"`
}

// Summary is a point in time copy of Stats.
type Summary struct {
	Attempts  uint64         `json:"attempts"`
	Samples   uint64         `json:"samples"`
	CacheHits uint64         `json:"cache_hits"`
	Failures  uint64         `json:"failures"`
	Bytes     uint64         `json:"bytes"`
	Paths     [3]PathSummary `json:"paths"`
}

// DiscardRate is the share of attempts that produced no sample, in percent.
func (s Summary) DiscardRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Attempts-s.Samples) / float64(s.Attempts) * 100
}

func (s *Stats) Summary() Summary {
	out := Summary{
		Attempts:  atomic.LoadUint64(&s.Attempts),
		Samples:   atomic.LoadUint64(&s.Samples),
		CacheHits: atomic.LoadUint64(&s.CacheHits),
		Failures:  atomic.LoadUint64(&s.Failures),
		Bytes:     atomic.LoadUint64(&s.Bytes),
	}

	for _, p := range Paths {
		h := s.Throughput[p]
		if h.TotalCount() == 0 {
			continue
		}
		out.Paths[p] = PathSummary{
			Count:  h.TotalCount(),
			Min:    h.Min(),
			Median: h.ValueAtQuantile(50),
			Max:    h.Max(),
			Mean:   h.Mean(),
		}
	}

	return out
}
