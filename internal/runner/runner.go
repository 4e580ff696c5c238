package runner

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"cdnbench/internal/probe"
	"cdnbench/internal/source"
	"cdnbench/internal/stats"
)

type Runner struct {
	Cfg    Config
	Prober Prober
	Stats  *stats.Stats

	// Updates, when set, receives one Event per attempt and is closed when
	// Run returns.
	Updates EventChan

	log zerolog.Logger
}

func NewRunner(cfg Config, prober Prober, updates EventChan) *Runner {
	return &Runner{
		Cfg:     cfg,
		Prober:  prober,
		Stats:   stats.NewStats(),
		Updates: updates,
		log:     log.With().Str("component", "runner").Logger(),
	}
}

// Run draws steps from src until MaxSamples rows were measured, MaxAttempts
// steps were drawn, the source is exhausted or ctx is done. Rows are
// returned in the order their steps were drawn.
func (r *Runner) Run(ctx context.Context, src source.StepSource) []ReportRow {
	if r.Updates != nil {
		defer close(r.Updates)
	}

	var limiter *rate.Limiter
	if r.Cfg.StepInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(r.Cfg.StepInterval), 1)
	}

	rows := make([]ReportRow, 0)
	attempts := 0

	for len(rows) < r.Cfg.MaxSamples && attempts < r.Cfg.MaxAttempts {
		if ctx.Err() != nil {
			r.log.Warn().Int("attempts", attempts).Msg("run cancelled")
			break
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				r.log.Warn().Err(err).Msg("run cancelled while pacing")
				break
			}
		}

		step, ok := src.Next()
		if !ok {
			r.log.Debug().Int("attempts", attempts).Msg("source exhausted")
			break
		}

		r.log.Debug().Str("step", step.Label).Msg("downloading artifacts")

		outcomes := r.probeStep(ctx, step)
		attempts++
		r.Stats.AddAttempt()

		ev := Event{
			Attempt:  attempts,
			Step:     step,
			Outcomes: outcomes,
		}

		if row, ok := NewReportRow(step.Label, outcomes); ok {
			rows = append(rows, row)
			r.Stats.AddSample(row.KBps())
			ev.Row = &row
			r.log.Info().Str("step", step.Label).Int("samples", len(rows)).Msg("step measured")
		} else {
			r.log.Info().Str("step", step.Label).Msg("step discarded")
		}

		r.publish(ev)
	}

	return rows
}

// probeStep downloads edge A, edge B and the origin, in that order. The
// origin is never checked for cache hits.
func (r *Runner) probeStep(ctx context.Context, step source.Step) [3]probe.Outcome {
	targets := [3]struct {
		url      string
		provider source.Provider
	}{
		{step.EdgeAURL, source.EdgeA},
		{step.EdgeBURL, source.EdgeB},
		{step.OriginURL, source.Origin},
	}

	var outcomes [3]probe.Outcome
	doomed := false

	for i, t := range targets {
		if doomed && r.Cfg.ShortCircuit {
			outcomes[i] = probe.Skip(t.url)
			continue
		}

		o := r.Prober.Probe(ctx, t.url, t.provider.CacheHeader, t.provider.HitPrefix)
		r.Stats.AddOutcome(o)
		outcomes[i] = o

		log := r.log.With().Str("step", step.Label).Str("path", t.provider.Name).Logger()
		switch o.Kind {
		case probe.Measured:
			log.Debug().Float64("kbps", o.KBps).Msg("download measured")
		case probe.CacheHit:
			log.Debug().Str("cache_status", o.CacheStatus).Msg("served from cache")
		default:
			log.Debug().Err(o.Err).Msg("download failed")
		}

		if !o.Usable() {
			doomed = true
		}
	}

	return outcomes
}

func (r *Runner) publish(ev Event) {
	if r.Updates == nil {
		return
	}

	// Non-blocking send
	select {
	case r.Updates <- ev:
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}
