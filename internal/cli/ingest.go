package cli

import (
	"fmt"

	"PricePulse/internal/di"

	"github.com/spf13/cobra"
)

var ingestDir string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load daily CSV snapshots into the observation store",
	Long: `Walk the data directory for YYYYMMDD folders inside the ingest lookback and
load every snapshot CSV into the observation store. Files named combined*
or containing "anomalies" are skipped, as are files without name and price
columns.

Examples:
  pricepulse ingest
  pricepulse ingest --dir ./data`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestDir, "dir", "d", "", "snapshot root directory (default: data_dir from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir := ingestDir
	if dir == "" {
		dir = cfg.DataDir
	}

	ingester, cleanup, err := di.InitializeIngester(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()

	res, err := ingester.Ingest(cmd.Context(), dir)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", dir, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d rows from %s (%d saved, %d skipped)\n",
		res.Rows, dir, res.Saved, res.Skipped)
	return nil
}
