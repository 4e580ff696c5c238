package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cdnbench/internal/banner"
	"cdnbench/internal/config"
	"cdnbench/internal/logging"
)

var (
	cfgFile string

	v   = config.New()
	cfg config.Config

	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "cdnbench",
	Short: "cdnbench - CDN cache-hit diagnostics",
	Long: `
cdnbench downloads the same artifact through two CDN edges (Fastly and
CloudFront) and the S3 origin bucket behind them, and compares the effective
throughput of each path for steps that were not served from cache.

Steps are either nightly release dates, walked backwards from today, or the
published versions of a crate.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), banner.GetString())
		cmd.Usage()
	})

	err := rootCmd.Execute()
	if logFile != nil {
		logFile.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cdnbench.yaml)")

	pf.IntP("attempts", "a", 20, "Maximum number of steps to try")
	pf.IntP("samples", "s", 5, "Number of fully measured steps to gather")
	pf.Bool("short-circuit", false, "Skip the remaining downloads of a step once one is unusable")
	pf.Duration("step-interval", 0, "Minimum delay between two steps (e.g. 30s)")

	pf.Bool("summary", false, "Print per-path min/median/max after the table")
	pf.StringP("out", "o", "", "Output filename prefix for CSV and JSON reports")
	pf.Bool("tui", false, "Show a live view while the benchmark runs")
	pf.Bool("history", true, "Record the run in the local history")
	pf.String("history-file", "", "History database (default is $HOME/.cdnbench/history.db)")

	pf.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	pf.String("log-format", "console", "Log format (console, json)")
	pf.String("log-file", "", "Write logs to this file instead of stderr")

	pf.String("base-url", "", "Serve every path and the registry from this base URL (dummy CDN)")
	pf.MarkHidden("base-url")

	bindings := map[string]string{
		"attempts":        "attempts",
		"samples":         "samples",
		"short_circuit":   "short-circuit",
		"step_interval":   "step-interval",
		"summary":         "summary",
		"out":             "out",
		"tui":             "tui",
		"history.enabled": "history",
		"history.path":    "history-file",
		"log.level":       "log-level",
		"log.format":      "log-format",
		"log.file":        "log-file",
		"base_url":        "base-url",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(releasesCmd, cratesCmd, historyCmd, dummyCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	home, _ := os.UserHomeDir()
	if err := config.ReadFile(v, cfgFile, home); err != nil {
		return err
	}

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded

	var out io.Writer = os.Stderr
	switch {
	case cfg.Log.File != "":
		f, err := logging.OpenFile(cfg.Log.File)
		if err != nil {
			return err
		}
		logFile = f
		out = f
	case cfg.TUI:
		// the live view owns the terminal
		out = io.Discard
	}

	return logging.Setup(cfg.Log.Level, cfg.Log.Format, out)
}
