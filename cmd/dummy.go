package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"cdnbench/internal/dummy"
)

var dummyCfg dummy.ServerConfig

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Start a local fake CDN and registry for development",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := dummy.Start(dummyCfg)
		if err != nil {
			return err
		}

		base := fmt.Sprintf("http://localhost:%d", dummyCfg.Port)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Dummy CDN listening on %s\n", base)
		fmt.Fprintf(out, "  cdnbench releases --base-url %s\n", base)
		fmt.Fprintf(out, "  cdnbench crates serde --base-url %s\n", base)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		log.Info().Msg("shutting down dummy server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	dummyCmd.Flags().IntVar(&dummyCfg.Port, "port", 8080, "Port to listen on")
	dummyCmd.Flags().IntVar(&dummyCfg.ArtifactBytes, "artifact-bytes", 1_000_000, "Size of every served artifact")
	dummyCmd.Flags().DurationVar(&dummyCfg.MissLatency, "miss-latency", 200*time.Millisecond, "Extra delay of an edge cache miss")
}
