package cli

import (
	"github.com/spf13/cobra"

	"metric-insights/internal/app"
)

var (
	ingestFile      string
	ingestBatchSize int
	ingestDryRun    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Bulk-load historical points from a CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.IngestOptions{
			Path:      ingestFile,
			BatchSize: ingestBatchSize,
			DryRun:    ingestDryRun,
		}
		return getApp().Ingest(cmd.Context(), opts)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "CSV file with timestamp,metric_name,value rows")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 500, "Rows per insert batch")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "Parse and validate without writing")
}
