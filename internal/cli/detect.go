package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"PricePulse/internal/di"
	"PricePulse/internal/domain/models"
	"PricePulse/internal/usecase"

	"github.com/spf13/cobra"
)

var detectCSVOut bool

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run one anomaly detection pass over stored observations",
	Long: `Load the trailing window from the observation store, flag anomalous latest
prices and store the report. With --csv-out the report is also written to
report.output_dir as price_anomalies_YYYYMMDD.csv.

Examples:
  pricepulse detect
  pricepulse detect --csv-out`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().BoolVar(&detectCSVOut, "csv-out", false, "write price_anomalies_YYYYMMDD.csv")
}

func runDetect(cmd *cobra.Command, args []string) error {
	runner, cleanup, err := di.InitializeDetectRunner(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()

	summary, err := runner.Run(cmd.Context(), usecase.RunOptions{CSVOut: detectCSVOut})
	if err != nil && !errors.Is(err, usecase.ErrReportCSV) {
		return err
	}
	printSummary(cmd.OutOrStdout(), summary)
	return err
}

func printSummary(w io.Writer, s models.RunSummary) {
	fmt.Fprintf(w, "Run %s: %d entities, %d flagged, %d model failures (%dms)\n",
		s.RunDate.Format("2006-01-02"), s.Entities, s.Flagged, s.ModelFailures, s.DurationMS)

	reasons := make([]string, 0, len(s.SkippedByReason))
	for r := range s.SkippedByReason {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(w, "  skipped %-22s %d\n", r, s.SkippedByReason[r])
	}
	if s.ReportPath != "" {
		fmt.Fprintf(w, "Report: %s\n", s.ReportPath)
	}
}
