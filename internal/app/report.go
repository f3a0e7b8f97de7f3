package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"metric-insights/internal/analysis"
	"metric-insights/internal/storage"
)

// InsightReport bundles every analysis product into one document.
type InsightReport struct {
	GeneratedAt  time.Time                     `json:"generated_at"`
	Window       string                        `json:"window"`
	Trends       []analysis.TrendProfile       `json:"trends"`
	Predictions  []analysis.PredictionResult   `json:"predictions"`
	Correlations []analysis.CorrelationInsight `json:"correlations"`
	Anomalies    []analysis.ClusterCandidate   `json:"anomalies"`
	RecentAlerts []storage.AlertRecord         `json:"recent_alerts"`
}

// Report runs the full analysis suite and prints an insight report as
// text or JSON.
func (a *App) Report(ctx context.Context, opts ReportOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot build report")
	}
	if closeStore != nil {
		defer closeStore()
	}

	window := a.analysisWindow(opts.Window, a.Config.Analysis.TrendWindow)

	report, err := a.buildReport(ctx, store, window)
	if err != nil {
		return err
	}

	if opts.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	printReport(report)
	return nil
}

func (a *App) buildReport(ctx context.Context, store *storage.Store, window time.Duration) (InsightReport, error) {
	report := InsightReport{
		GeneratedAt: time.Now().UTC(),
		Window:      window.String(),
	}

	names, err := a.correlationMetrics(ctx, store)
	if err != nil {
		return report, err
	}

	trendAnalyzer := analysis.NewTrendAnalyzer(store, store, a.Config.Analysis.MaxQueryPoints, a.Logger)
	forecaster := analysis.NewForecaster(store, a.Config.Analysis.MaxQueryPoints, a.Logger)

	for _, name := range names {
		profile, ok, err := trendAnalyzer.Analyze(ctx, name, window)
		if err != nil {
			return report, err
		}
		if ok {
			report.Trends = append(report.Trends, profile)
		}

		prediction, ok, err := forecaster.Predict(ctx, name, a.Config.Analysis.ForecastLookback)
		if err != nil {
			return report, err
		}
		if ok {
			report.Predictions = append(report.Predictions, prediction)
		}
	}

	correlations := analysis.NewCorrelationEngine(store, a.Config.Analysis.ResampleInterval, a.Config.Analysis.MaxQueryPoints, a.Logger)
	report.Correlations, err = correlations.Pairs(ctx, names, a.Config.Analysis.CorrelationWindow)
	if err != nil {
		return report, err
	}

	report.Anomalies, err = a.newDetector(store, store).DetectClusters(ctx, a.Config.Analysis.AnomalyWindow)
	if err != nil {
		return report, err
	}

	report.RecentAlerts, err = store.ListRecentAlerts(ctx, 20)
	if err != nil {
		return report, err
	}

	return report, nil
}

func printReport(report InsightReport) {
	fmt.Fprintf(os.Stdout, "insight report generated %s (window %s)\n\n", report.GeneratedAt.Format(time.RFC3339), report.Window)

	fmt.Fprintln(os.Stdout, "trends:")
	if len(report.Trends) == 0 {
		fmt.Fprintln(os.Stdout, "  none")
	}
	for _, trend := range report.Trends {
		line := fmt.Sprintf("  %s: %s (strength %.2f, anomaly %.2f)", trend.MetricName, trend.Direction, trend.Strength, trend.AnomalyScore)
		if trend.Prediction24h != nil {
			line += fmt.Sprintf(", 24h projection %.2f", *trend.Prediction24h)
		}
		fmt.Fprintln(os.Stdout, line)
	}

	fmt.Fprintln(os.Stdout, "\npredictions:")
	if len(report.Predictions) == 0 {
		fmt.Fprintln(os.Stdout, "  none")
	}
	for _, prediction := range report.Predictions {
		fmt.Fprintf(os.Stdout, "  %s: 1h %.2f, 4h %.2f, 24h %.2f (accuracy %.2f)\n",
			prediction.MetricName, prediction.Predicted1h, prediction.Predicted4h, prediction.Predicted24h, prediction.Accuracy)
	}

	fmt.Fprintln(os.Stdout, "\ncorrelations:")
	printed := 0
	for _, insight := range report.Correlations {
		if insight.Relationship == analysis.RelationshipNone {
			continue
		}
		fmt.Fprintf(os.Stdout, "  %s and %s: %s (r %+.3f, confidence %.2f)\n",
			insight.MetricA, insight.MetricB, insight.Relationship, insight.Coefficient, insight.Confidence)
		printed++
	}
	if printed == 0 {
		fmt.Fprintln(os.Stdout, "  none")
	}

	fmt.Fprintln(os.Stdout, "\nanomaly candidates:")
	if len(report.Anomalies) == 0 {
		fmt.Fprintln(os.Stdout, "  none")
	}
	for _, candidate := range report.Anomalies {
		fmt.Fprintf(os.Stdout, "  %s (score %.2f)\n", candidate.Timestamp.Format(time.RFC3339), candidate.Score)
	}

	fmt.Fprintln(os.Stdout, "\nrecent alerts:")
	if len(report.RecentAlerts) == 0 {
		fmt.Fprintln(os.Stdout, "  none")
	}
	for _, record := range report.RecentAlerts {
		fmt.Fprintf(os.Stdout, "  [%s] %s\n", record.Severity, sanitizeInline(record.Message))
	}
}
