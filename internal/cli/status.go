package cli

import (
	"time"

	"github.com/spf13/cobra"

	"metric-insights/internal/app"
)

var statusWindow time.Duration

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current readings, baselines, and thresholds per metric",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Status(cmd.Context(), app.StatusOptions{Window: statusWindow})
	},
}

func init() {
	statusCmd.Flags().DurationVar(&statusWindow, "window", time.Hour, "How far back to look for the latest reading")
}
