package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"PricePulse/internal/di"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the anomaly API and run detection on a schedule",
	Long: `Start the HTTP API (/api/anomalies, /api/movers, /api/runs, /healthz,
/metrics, /ws), run detection every schedule.interval and, when Kafka is
enabled, consume scraper snapshots from the observations topic.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()

	return app.Run(ctx)
}
