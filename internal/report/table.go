package report

import (
	"fmt"
	"io"
	"strings"

	"cdnbench/internal/runner"
	"cdnbench/internal/source"
	"cdnbench/internal/stats"
)

const valueWidth = 10

// WriteTable prints one row per measured step. kind titles the label column,
// which is as wide as the value columns unless the title or a label is longer.
func WriteTable(w io.Writer, kind string, rows []runner.ReportRow) error {
	width := valueWidth
	if len(kind) > width {
		width = len(kind)
	}
	for _, row := range rows {
		if len(row.Label) > width {
			width = len(row.Label)
		}
	}

	if _, err := fmt.Fprintf(w, "| %-*s | %-*s | %-*s | %-*s |\n",
		width, kind,
		valueWidth, source.EdgeA.Name,
		valueWidth, source.EdgeB.Name,
		valueWidth, source.Origin.Name,
	); err != nil {
		return err
	}

	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "| %-*s | %*d | %*d | %*d |\n",
			width, row.Label,
			valueWidth, row.EdgeAKBps,
			valueWidth, row.EdgeBKBps,
			valueWidth, row.OriginKBps,
		); err != nil {
			return err
		}
	}

	return nil
}

// WriteSummary prints attempt counters and the min/median/max throughput of
// every path.
func WriteSummary(w io.Writer, sum stats.Summary) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\nAttempts: %d  Samples: %d  Cache hits: %d  Failures: %d  Discarded: %.0f%%\n",
		sum.Attempts, sum.Samples, sum.CacheHits, sum.Failures, sum.DiscardRate())

	if sum.Samples > 0 {
		names := []string{source.EdgeA.Name, source.EdgeB.Name, source.Origin.Name}
		fmt.Fprintf(&b, "%-10s %10s %10s %10s\n", "KB/s", "min", "median", "max")
		for _, p := range stats.Paths {
			ps := sum.Paths[p]
			fmt.Fprintf(&b, "%-10s %10d %10d %10d\n", names[p], ps.Min, ps.Median, ps.Max)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
