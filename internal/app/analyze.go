package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"metric-insights/internal/analysis"
	"metric-insights/internal/storage"
)

func (a *App) analysisWindow(requested, fallback time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	return fallback
}

// Trend fits a linear trend over recent history for one metric and
// prints the profile.
func (a *App) Trend(ctx context.Context, opts TrendOptions) error {
	if opts.Metric == "" {
		return errors.New("metric name is required")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot analyze trends")
	}
	if closeStore != nil {
		defer closeStore()
	}

	analyzer := analysis.NewTrendAnalyzer(store, store, a.Config.Analysis.MaxQueryPoints, a.Logger)
	window := a.analysisWindow(opts.Window, a.Config.Analysis.TrendWindow)

	profile, ok, err := analyzer.Analyze(ctx, opts.Metric, window)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(os.Stdout, "not enough data to analyze %s over %s\n", opts.Metric, window)
		return nil
	}

	printTrend(profile)
	return nil
}

func printTrend(profile analysis.TrendProfile) {
	fmt.Fprintf(os.Stdout, "metric:        %s\n", profile.MetricName)
	fmt.Fprintf(os.Stdout, "current:       %.2f\n", profile.CurrentValue)
	fmt.Fprintf(os.Stdout, "direction:     %s\n", profile.Direction)
	fmt.Fprintf(os.Stdout, "strength:      %.2f\n", profile.Strength)
	fmt.Fprintf(os.Stdout, "anomaly score: %.2f\n", profile.AnomalyScore)
	fmt.Fprintf(os.Stdout, "baseline:      avg %.2f, stddev %.2f\n", profile.BaselineAvg, profile.BaselineStdDev)
	if profile.Prediction24h != nil {
		fmt.Fprintf(os.Stdout, "24h projection: %.2f\n", *profile.Prediction24h)
	}
}

// Correlate computes Pearson correlation for one pair, or scans every
// pair when no metrics are named.
func (a *App) Correlate(ctx context.Context, opts CorrelateOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot correlate")
	}
	if closeStore != nil {
		defer closeStore()
	}

	engine := analysis.NewCorrelationEngine(store, a.Config.Analysis.ResampleInterval, a.Config.Analysis.MaxQueryPoints, a.Logger)
	window := a.analysisWindow(opts.Window, a.Config.Analysis.CorrelationWindow)

	var insights []analysis.CorrelationInsight
	if opts.MetricA != "" && opts.MetricB != "" {
		insight, ok, err := engine.Correlate(ctx, opts.MetricA, opts.MetricB, window)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(os.Stdout, "not enough overlapping data for %s and %s\n", opts.MetricA, opts.MetricB)
			return nil
		}
		insights = []analysis.CorrelationInsight{insight}
	} else if opts.MetricA != "" || opts.MetricB != "" {
		return errors.New("either name both metrics or neither")
	} else {
		names, err := a.correlationMetrics(ctx, store)
		if err != nil {
			return err
		}
		insights, err = engine.Pairs(ctx, names, window)
		if err != nil {
			return err
		}
	}

	if len(insights) == 0 {
		fmt.Fprintln(os.Stdout, "no correlations computed")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Metric A\tMetric B\tCoefficient\tRelationship\tConfidence")
	for _, insight := range insights {
		fmt.Fprintf(writer, "%s\t%s\t%+.3f\t%s\t%.2f\n",
			insight.MetricA, insight.MetricB, insight.Coefficient, insight.Relationship, insight.Confidence)
	}
	return writer.Flush()
}

// correlationMetrics caps the pair scan so a store with many metrics
// does not explode into a quadratic query storm.
func (a *App) correlationMetrics(ctx context.Context, store storage.PointStore) ([]string, error) {
	names, err := store.ListMetricNames(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	max := a.Config.Analysis.MaxCorrelationMetrics
	if max > 0 && len(names) > max {
		names = names[:max]
	}
	return names, nil
}

// Anomalies runs density clustering over the recent multi-metric grid
// and prints anomaly candidates.
func (a *App) Anomalies(ctx context.Context, opts AnomaliesOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot detect anomalies")
	}
	if closeStore != nil {
		defer closeStore()
	}

	detector := a.newDetector(store, store)
	window := a.analysisWindow(opts.Window, a.Config.Analysis.AnomalyWindow)

	candidates, err := detector.DetectClusters(ctx, window)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Fprintln(os.Stdout, "no anomaly candidates found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tScore\tReadings")
	for _, candidate := range candidates {
		fmt.Fprintf(writer, "%s\t%.2f\t%s\n",
			candidate.Timestamp.UTC().Format(time.RFC3339),
			candidate.Score,
			formatReadings(candidate.Metrics),
		)
	}
	return writer.Flush()
}

func (a *App) newDetector(points storage.PointStore, baselines storage.BaselineStore) *analysis.Detector {
	cfg := a.Config.Analysis
	return analysis.NewDetector(points, baselines, analysis.DetectorOptions{
		Eps:        cfg.AnomalyEps,
		MinSamples: cfg.AnomalyMinSamples,
		MinRows:    cfg.AnomalyMinRows,
		MaxPoints:  cfg.MaxQueryPoints,
		Resample:   cfg.ResampleInterval,
	}, a.Logger)
}

func formatReadings(readings map[string]analysis.MetricReading) string {
	names := make([]string, 0, len(readings))
	for name := range readings {
		names = append(names, name)
	}
	sort.Strings(names)

	out := ""
	for i, name := range names {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%.2f (z %+.2f)", name, readings[name].Value, readings[name].Standardized)
	}
	return out
}

// Predict prints a short-horizon forecast for one metric.
func (a *App) Predict(ctx context.Context, opts PredictOptions) error {
	if opts.Metric == "" {
		return errors.New("metric name is required")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot predict")
	}
	if closeStore != nil {
		defer closeStore()
	}

	forecaster := analysis.NewForecaster(store, a.Config.Analysis.MaxQueryPoints, a.Logger)
	lookback := a.analysisWindow(opts.Lookback, a.Config.Analysis.ForecastLookback)

	result, ok, err := forecaster.Predict(ctx, opts.Metric, lookback)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(os.Stdout, "not enough data to forecast %s over %s\n", opts.Metric, lookback)
		return nil
	}

	printPrediction(result)
	return nil
}

func printPrediction(result analysis.PredictionResult) {
	fmt.Fprintf(os.Stdout, "metric:   %s (model %s)\n", result.MetricName, result.Model)
	fmt.Fprintf(os.Stdout, "current:  %.2f\n", result.CurrentValue)
	for _, horizon := range []string{"1h", "4h", "24h"} {
		interval, ok := result.Intervals[horizon]
		predicted := map[string]float64{
			"1h":  result.Predicted1h,
			"4h":  result.Predicted4h,
			"24h": result.Predicted24h,
		}[horizon]
		if ok {
			fmt.Fprintf(os.Stdout, "%-4s      %.2f  [%.2f, %.2f]\n", horizon+":", predicted, interval.Low, interval.High)
		} else {
			fmt.Fprintf(os.Stdout, "%-4s      %.2f\n", horizon+":", predicted)
		}
	}
	fmt.Fprintf(os.Stdout, "accuracy: %.2f\n", result.Accuracy)
}
