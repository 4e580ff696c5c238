package runner

import (
	"context"
	"time"

	"cdnbench/internal/probe"
	"cdnbench/internal/source"
)

type Config struct {
	// Budgets. A run stops at whichever is reached first.
	MaxAttempts int
	MaxSamples  int

	// Stop probing a step as soon as one download is unusable.
	ShortCircuit bool
	// Minimum delay between two drawn steps. Zero disables pacing.
	StepInterval time.Duration
}

// ReportRow is the throughput of one fully measured step, in KB/s.
type ReportRow struct {
	Label      string `json:"label"`
	EdgeAKBps  int    `json:"edge_a_kbps"`
	EdgeBKBps  int    `json:"edge_b_kbps"`
	OriginKBps int    `json:"origin_kbps"`
}

// NewReportRow builds a row when all three outcomes are measured.
func NewReportRow(label string, outcomes [3]probe.Outcome) (ReportRow, bool) {
	for _, o := range outcomes {
		if !o.Usable() {
			return ReportRow{}, false
		}
	}

	return ReportRow{
		Label:      label,
		EdgeAKBps:  int(outcomes[0].KBps),
		EdgeBKBps:  int(outcomes[1].KBps),
		OriginKBps: int(outcomes[2].KBps),
	}, true
}

// KBps returns the three throughputs in probe order.
func (r ReportRow) KBps() [3]int {
	return [3]int{r.EdgeAKBps, r.EdgeBKBps, r.OriginKBps}
}

// Event is published after every attempt.
type Event struct {
	Attempt  int
	Step     source.Step
	Outcomes [3]probe.Outcome
	Row      *ReportRow // nil when the step was discarded
}

// DiscardReason names the first unusable path of a discarded step.
func (ev Event) DiscardReason() string {
	names := [3]string{source.EdgeA.Name, source.EdgeB.Name, source.Origin.Name}
	for i, o := range ev.Outcomes {
		if !o.Usable() {
			return names[i] + " " + o.Reason()
		}
	}
	return "discarded"
}

// Progress is how close a run is to either budget, between 0 and 1.
func (cfg Config) Progress(attempts, samples int) float64 {
	pct := 0.0
	if cfg.MaxAttempts > 0 {
		pct = float64(attempts) / float64(cfg.MaxAttempts)
	}
	if cfg.MaxSamples > 0 {
		if p := float64(samples) / float64(cfg.MaxSamples); p > pct {
			pct = p
		}
	}
	if pct > 1.0 {
		pct = 1.0
	}
	return pct
}

// EventChan is the channel type
type EventChan chan Event

// Prober downloads one URL.
type Prober interface {
	Probe(ctx context.Context, url, cacheHeader, hitPrefix string) probe.Outcome
}
