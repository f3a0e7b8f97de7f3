package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"metric-insights/internal/app"
)

var (
	alertsLimit    int
	alertsSeverity string
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Display recently recorded alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertsLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.AlertsOptions{
			Limit:    alertsLimit,
			Severity: alertsSeverity,
		}

		return getApp().Alerts(cmd.Context(), opts)
	},
}

func init() {
	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 20, "Number of alerts to display")
	alertsCmd.Flags().StringVar(&alertsSeverity, "severity", "", "Only show alerts of this severity (info, warning, critical)")
}
