// Package cli provides the pricepulse command-line interface.
package cli

import (
	"fmt"

	"PricePulse/pkg/config"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pricepulse",
	Short: "Daily price anomaly detection for scraped grocery snapshots",
	Long: `PricePulse ingests daily price snapshots, compares every product's latest
price with its trailing 30-day history and reports unusual moves.

Anomalies are persisted, published to Kafka when enabled, written as
price_anomalies_YYYYMMDD.csv on request and served over HTTP.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		c, err := config.LoadWithEnv(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(serveCmd)
}
