package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"cdnbench/internal/report"
	"cdnbench/internal/stats"
	"cdnbench/internal/storage"
	"cdnbench/internal/tui/styles"
)

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List recorded runs, or print the report of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := historyPath()
		if err != nil {
			return err
		}

		store, err := storage.NewStore(path)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			item, err := store.Get(args[0])
			if err != nil {
				return errors.Wrapf(err, "run %q", args[0])
			}
			return printRun(cmd.OutOrStdout(), item)
		}

		items, err := store.List()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs.")
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), historyTable(items))
		return nil
	},
}

func historyTable(items []storage.HistoryItem) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.ColorBorder)).
		Headers("TIME", "ID", "SOURCE", "ATTEMPTS", "SAMPLES", "HITS", "FASTLY", "CLOUDFRONT", "S3").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header
			}
			return styles.Cell
		})

	for _, item := range items {
		sum := item.Summary
		t.Row(
			item.Timestamp.Local().Format(time.RFC822),
			shortID(item.ID),
			item.Source,
			fmt.Sprintf("%d", sum.Attempts),
			fmt.Sprintf("%d", sum.Samples),
			fmt.Sprintf("%d", sum.CacheHits),
			median(sum.Paths[stats.EdgeA]),
			median(sum.Paths[stats.EdgeB]),
			median(sum.Paths[stats.Origin]),
		)
	}

	return t.String()
}

func printRun(w io.Writer, item *storage.HistoryItem) error {
	fmt.Fprintf(w, "%s  %s  %s\n\n", item.ID, item.Source, item.Timestamp.Local().Format(time.RFC822))
	if err := report.WriteTable(w, item.Kind, item.Rows); err != nil {
		return err
	}
	return report.WriteSummary(w, item.Summary)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func median(p stats.PathSummary) string {
	if p.Count == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", p.Median)
}
