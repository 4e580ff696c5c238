package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"cdnbench/internal/cli"
	"cdnbench/internal/probe"
	"cdnbench/internal/report"
	"cdnbench/internal/runner"
	"cdnbench/internal/source"
	"cdnbench/internal/storage"
	"cdnbench/internal/tui/live"
)

var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "Walk nightly release dates backwards from today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := source.NewCalendar(cfg.Family(source.RustReleases), nil)
		if err != nil {
			return err
		}

		return runBenchmark(cmd, "releases", src)
	},
}

var cratesCmd = &cobra.Command{
	Use:   "crates <name>",
	Short: "Walk the published versions of a crate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := source.NewRegistryClient(cfg.RegistryURL(), cfg.Registry.Retries)

		src, err := source.NewRegistry(cmd.Context(), client, cfg.Family(source.Crates), args[0])
		if err != nil {
			return errors.Wrap(err, "cannot list crate versions")
		}

		return runBenchmark(cmd, "crates:"+args[0], src)
	},
}

// runBenchmark samples src and prints the report. Gathering fewer samples
// than requested is not an error.
func runBenchmark(cmd *cobra.Command, name string, src source.StepSource) error {
	ctx, out := cmd.Context(), cmd.OutOrStdout()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rcfg := cfg.RunnerConfig()
	started := time.Now().UTC()

	log.Info().
		Str("source", name).
		Int("attempts", rcfg.MaxAttempts).
		Int("samples", rcfg.MaxSamples).
		Msg("starting benchmark")

	var (
		rows []runner.ReportRow
		r    *runner.Runner
		err  error
	)
	if cfg.TUI {
		rows, r, err = runLive(ctx, src, rcfg)
		if err != nil {
			return err
		}
	} else {
		rows, r = runHeadless(ctx, cmd.ErrOrStderr(), name, src, rcfg)
	}

	sum := r.Stats.Summary()
	log.Info().
		Uint64("attempts", sum.Attempts).
		Uint64("samples", sum.Samples).
		Uint64("cache_hits", sum.CacheHits).
		Uint64("failures", sum.Failures).
		Msg("benchmark finished")

	if err := report.WriteTable(out, src.Kind(), rows); err != nil {
		return errors.Wrap(err, "failed to print report")
	}

	if cfg.Summary {
		if err := report.WriteSummary(out, sum); err != nil {
			return errors.Wrap(err, "failed to print summary")
		}
	}

	if cfg.Out != "" {
		exportReports(cfg.Out, report.Document{
			Kind:      src.Kind(),
			Source:    name,
			StartedAt: started,
			Rows:      rows,
			Summary:   sum,
		})
	}

	if cfg.History.Enabled {
		saveHistory(storage.NewHistoryItem(name, src.Kind(), rcfg, rows, sum))
	}

	return nil
}

// runHeadless prints a progress line per step while the runner works.
func runHeadless(ctx context.Context, w io.Writer, name string, src source.StepSource, rcfg runner.Config) ([]runner.ReportRow, *runner.Runner) {
	updates := make(runner.EventChan, 100)
	r := runner.NewRunner(rcfg, probe.New(), updates)

	watched := make(chan struct{})
	go func() {
		defer close(watched)
		cli.Watch(w, name, rcfg, updates)
	}()

	rows := r.Run(ctx, src)
	<-watched
	return rows, r
}

// runLive runs the benchmark in the background while the live view renders
// its events. Quitting the view stops the run after the current download.
func runLive(ctx context.Context, src source.StepSource, rcfg runner.Config) ([]runner.ReportRow, *runner.Runner, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(runner.EventChan, 100)
	r := runner.NewRunner(rcfg, probe.New(), updates)

	done := make(chan []runner.ReportRow, 1)
	go func() {
		done <- r.Run(ctx, src)
	}()

	p := tea.NewProgram(live.NewModel(src.Kind(), rcfg, updates), tea.WithAltScreen())
	_, err := p.Run()

	cancel()
	rows := <-done

	if err != nil {
		return nil, nil, errors.Wrap(err, "live view failed")
	}
	return rows, r, nil
}

func exportReports(prefix string, doc report.Document) {
	if err := report.ExportCSV(doc.Rows, doc.Kind, prefix+".csv"); err != nil {
		log.Error().Err(err).Str("file", prefix+".csv").Msg("failed to export csv")
	}
	if err := report.ExportJSON(doc, prefix+".json"); err != nil {
		log.Error().Err(err).Str("file", prefix+".json").Msg("failed to export json")
	}
}

func historyPath() (string, error) {
	if cfg.History.Path != "" {
		return cfg.History.Path, nil
	}
	return storage.DefaultPath()
}

func saveHistory(item storage.HistoryItem) {
	path, err := historyPath()
	if err != nil {
		log.Warn().Err(err).Msg("run not recorded")
		return
	}

	store, err := storage.NewStore(path)
	if err != nil {
		log.Warn().Err(err).Msg("run not recorded")
		return
	}
	defer store.Close()

	if err := store.Save(item); err != nil {
		log.Warn().Err(err).Msg("run not recorded")
		return
	}

	log.Debug().Str("id", item.ID).Str("path", path).Msg("run recorded")
}
