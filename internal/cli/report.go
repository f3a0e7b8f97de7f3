package cli

import (
	"time"

	"github.com/spf13/cobra"

	"metric-insights/internal/app"
)

var (
	reportWindow time.Duration
	reportJSON   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a combined insight report (trends, forecasts, correlations, anomalies)",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ReportOptions{
			Window: reportWindow,
			JSON:   reportJSON,
		}
		return getApp().Report(cmd.Context(), opts)
	},
}

func init() {
	reportCmd.Flags().DurationVar(&reportWindow, "window", 0, "Analysis window (defaults to config)")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Emit the report as JSON")
}
