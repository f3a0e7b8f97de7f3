package cli

import (
	"time"

	"github.com/spf13/cobra"

	"metric-insights/internal/app"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run statistical analyses over stored metric history",
}

var (
	trendMetric string
	trendWindow time.Duration
)

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Fit a linear trend for one metric",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.TrendOptions{
			Metric: trendMetric,
			Window: trendWindow,
		}
		return getApp().Trend(cmd.Context(), opts)
	},
}

var (
	correlateMetricA string
	correlateMetricB string
	correlateWindow  time.Duration
)

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Compute Pearson correlation for a metric pair, or scan all pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.CorrelateOptions{
			MetricA: correlateMetricA,
			MetricB: correlateMetricB,
			Window:  correlateWindow,
		}
		return getApp().Correlate(cmd.Context(), opts)
	},
}

var anomaliesWindow time.Duration

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "Detect multi-metric anomaly clusters via density clustering",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Anomalies(cmd.Context(), app.AnomaliesOptions{Window: anomaliesWindow})
	},
}

var (
	predictMetric   string
	predictLookback time.Duration
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Forecast a metric over 1h, 4h, and 24h horizons",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.PredictOptions{
			Metric:   predictMetric,
			Lookback: predictLookback,
		}
		return getApp().Predict(cmd.Context(), opts)
	},
}

func init() {
	trendCmd.Flags().StringVar(&trendMetric, "metric", "", "Metric name to analyze")
	trendCmd.Flags().DurationVar(&trendWindow, "window", 0, "Analysis window (defaults to config)")

	correlateCmd.Flags().StringVar(&correlateMetricA, "metric-a", "", "First metric of the pair")
	correlateCmd.Flags().StringVar(&correlateMetricB, "metric-b", "", "Second metric of the pair")
	correlateCmd.Flags().DurationVar(&correlateWindow, "window", 0, "Analysis window (defaults to config)")

	anomaliesCmd.Flags().DurationVar(&anomaliesWindow, "window", 0, "Analysis window (defaults to config)")

	predictCmd.Flags().StringVar(&predictMetric, "metric", "", "Metric name to forecast")
	predictCmd.Flags().DurationVar(&predictLookback, "lookback", 0, "History window to fit (defaults to config)")

	analyzeCmd.AddCommand(trendCmd)
	analyzeCmd.AddCommand(correlateCmd)
	analyzeCmd.AddCommand(anomaliesCmd)
	analyzeCmd.AddCommand(predictCmd)
}
