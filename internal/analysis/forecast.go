package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"metric-insights/internal/storage"
)

const (
	// forecastMinPoints is the smallest history a prediction accepts.
	forecastMinPoints = 20
	// forecastResample is the aggregation interval the fit runs on.
	forecastResample = 5 * time.Minute
	// ciZ is the z-value for a 95% confidence interval.
	ciZ = 1.96
)

// Interval is a (low, high) confidence band around a prediction.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// PredictionResult is a short-horizon linear forecast for one metric.
// Accuracy is the fit's R-squared, reported as an advisory diagnostic;
// nothing downstream gates on it.
type PredictionResult struct {
	MetricName   string              `json:"metric_name"`
	CurrentValue float64             `json:"current_value"`
	Predicted1h  float64             `json:"predicted_1h"`
	Predicted4h  float64             `json:"predicted_4h"`
	Predicted24h float64             `json:"predicted_24h"`
	Intervals    map[string]Interval `json:"confidence_intervals"`
	Accuracy     float64             `json:"accuracy"`
	Model        string              `json:"model"`
}

// Forecaster extrapolates a fitted line over 1h/4h/24h horizons.
type Forecaster struct {
	points    storage.PointStore
	maxPoints int
	logger    zerolog.Logger
	now       func() time.Time
}

// NewForecaster wires store access into a forecaster.
func NewForecaster(points storage.PointStore, maxPoints int, logger zerolog.Logger) *Forecaster {
	if maxPoints <= 0 {
		maxPoints = 10000
	}
	return &Forecaster{
		points:    points,
		maxPoints: maxPoints,
		logger:    logger.With().Str("component", "forecast").Logger(),
		now:       time.Now,
	}
}

// WithClock overrides the time source for tests.
func (f *Forecaster) WithClock(now func() time.Time) *Forecaster {
	f.now = now
	return f
}

// Predict fits a line over the lookback window and extrapolates it. The
// second return value is false when history is insufficient.
func (f *Forecaster) Predict(ctx context.Context, metricName string, lookback time.Duration) (PredictionResult, bool, error) {
	if metricName == "" {
		return PredictionResult{}, false, fmt.Errorf("%w: metric name is required", ErrInvalidParameter)
	}
	if lookback <= 0 {
		return PredictionResult{}, false, fmt.Errorf("%w: lookback must be positive", ErrInvalidParameter)
	}

	nowTS := f.now().UTC()
	points, err := f.points.ListPointsSince(ctx, metricName, nowTS.Add(-lookback), f.maxPoints)
	if err != nil {
		return PredictionResult{}, false, err
	}
	if len(points) < forecastMinPoints {
		return PredictionResult{}, false, nil
	}

	series := resample(ascending(points), forecastResample)
	if len(series) < 2 {
		return PredictionResult{}, false, nil
	}

	vs := values(series)
	xs := make([]float64, len(vs))
	for i := range xs {
		xs[i] = float64(i)
	}

	intercept, slope := stat.LinearRegression(xs, vs, nil, false)
	slope = finiteOr(slope, 0)
	intercept = finiteOr(intercept, vs[len(vs)-1])

	n := float64(len(vs))
	predictAt := func(horizon time.Duration) float64 {
		steps := float64(horizon / forecastResample)
		return finiteOr(slope*(n+steps)+intercept, vs[len(vs)-1])
	}

	pred1h := predictAt(time.Hour)
	pred4h := predictAt(4 * time.Hour)
	pred24h := predictAt(24 * time.Hour)

	var sqSum float64
	for i, v := range vs {
		r := v - (slope*xs[i] + intercept)
		sqSum += r * r
	}
	rmse := math.Sqrt(sqSum / n)

	result := PredictionResult{
		MetricName:   metricName,
		CurrentValue: vs[len(vs)-1],
		Predicted1h:  pred1h,
		Predicted4h:  pred4h,
		Predicted24h: pred24h,
		Intervals: map[string]Interval{
			"1h":  {Low: pred1h - ciZ*rmse, High: pred1h + ciZ*rmse},
			"4h":  {Low: pred4h - ciZ*rmse, High: pred4h + ciZ*rmse},
			"24h": {Low: pred24h - ciZ*rmse, High: pred24h + ciZ*rmse},
		},
		Accuracy: clamp01(stat.RSquared(xs, vs, nil, intercept, slope)),
		Model:    "linear_regression",
	}

	return result, true, nil
}
