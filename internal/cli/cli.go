package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"cdnbench/internal/runner"
	"cdnbench/internal/source"
)

// Watch prints one progress line per runner event until updates is closed.
func Watch(w io.Writer, name string, cfg runner.Config, updates runner.EventChan) {
	printHeader(w, name, cfg)

	start := time.Now()
	samples := 0
	for ev := range updates {
		status := "ok"
		if ev.Row != nil {
			samples++
		} else {
			status = ev.DiscardReason()
		}

		pct := cfg.Progress(ev.Attempt, samples)
		fmt.Fprintf(w, "%s %3.0f%% | %s | attempt %d/%d | samples %d/%d | %s: %s\n",
			progressBar(pct, 20), pct*100,
			time.Since(start).Round(time.Second),
			ev.Attempt, cfg.MaxAttempts,
			samples, cfg.MaxSamples,
			ev.Step.Label, status,
		)
	}
}

func printHeader(w io.Writer, name string, cfg runner.Config) {
	fmt.Fprintf(w, "\nCDNBENCH %s\n", strings.ToUpper(name))
	fmt.Fprintf(w, "======================================================================\n")
	fmt.Fprintf(w, "Paths    : %s, %s, %s\n", source.EdgeA.Name, source.EdgeB.Name, source.Origin.Name)
	fmt.Fprintf(w, "Budget   : %d attempts / %d samples\n", cfg.MaxAttempts, cfg.MaxSamples)
	if cfg.StepInterval > 0 {
		fmt.Fprintf(w, "Interval : %s\n", cfg.StepInterval)
	}
	fmt.Fprintf(w, "======================================================================\n")
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}
