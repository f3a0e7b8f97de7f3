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

// Direction classifies the sign of a fitted trend.
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

const (
	// trendMinPoints is the smallest series a regression fit accepts.
	trendMinPoints = 5
	// stableBand: slopes below this fraction of the series' own stddev
	// count as stable.
	stableBand = 0.1
	// forecastGate: projections are only emitted for trends at least
	// this strong.
	forecastGate = 0.3

	slopeEpsilon = 1e-6
)

// TrendProfile is the result of a linear trend fit over recent history.
type TrendProfile struct {
	MetricName     string    `json:"metric_name"`
	CurrentValue   float64   `json:"current_value"`
	Direction      Direction `json:"direction"`
	Strength       float64   `json:"strength"`
	AnomalyScore   float64   `json:"anomaly_score"`
	BaselineAvg    float64   `json:"baseline_avg"`
	BaselineStdDev float64   `json:"baseline_stddev"`
	Prediction24h  *float64  `json:"prediction_24h,omitempty"`
}

// TrendAnalyzer fits ordinary least squares over a metric's recent
// window and classifies direction and strength.
type TrendAnalyzer struct {
	points    storage.PointStore
	baselines storage.BaselineStore
	maxPoints int
	logger    zerolog.Logger
	now       func() time.Time
}

// NewTrendAnalyzer wires store access into a trend analyzer.
func NewTrendAnalyzer(points storage.PointStore, baselines storage.BaselineStore, maxPoints int, logger zerolog.Logger) *TrendAnalyzer {
	if maxPoints <= 0 {
		maxPoints = 10000
	}
	return &TrendAnalyzer{
		points:    points,
		baselines: baselines,
		maxPoints: maxPoints,
		logger:    logger.With().Str("component", "trend").Logger(),
		now:       time.Now,
	}
}

// WithClock overrides the time source for tests.
func (t *TrendAnalyzer) WithClock(now func() time.Time) *TrendAnalyzer {
	t.now = now
	return t
}

// Analyze fits a trend over the window. The second return value is false
// when fewer than five points exist.
func (t *TrendAnalyzer) Analyze(ctx context.Context, metricName string, window time.Duration) (TrendProfile, bool, error) {
	if metricName == "" {
		return TrendProfile{}, false, fmt.Errorf("%w: metric name is required", ErrInvalidParameter)
	}
	if window <= 0 {
		return TrendProfile{}, false, fmt.Errorf("%w: window must be positive", ErrInvalidParameter)
	}

	nowTS := t.now().UTC()
	points, err := t.points.ListPointsSince(ctx, metricName, nowTS.Add(-window), t.maxPoints)
	if err != nil {
		return TrendProfile{}, false, err
	}
	if len(points) < trendMinPoints {
		return TrendProfile{}, false, nil
	}

	series := ascending(points)
	vs := values(series)
	current := vs[len(vs)-1]

	// Min-max normalize time into [0,1] for numerical stability.
	tMin := series[0].ts
	tMax := series[len(series)-1].ts
	span := tMax.Sub(tMin).Seconds()
	xs := make([]float64, len(series))
	if span > 0 {
		for i, s := range series {
			xs[i] = s.ts.Sub(tMin).Seconds() / span
		}
	}

	intercept, slope := stat.LinearRegression(xs, vs, nil, false)
	slope = finiteOr(slope, 0)
	intercept = finiteOr(intercept, current)

	std := popStdDev(vs, stat.Mean(vs, nil))

	direction := DirectionStable
	strength := 0.0
	if math.Abs(slope) > std*stableBand {
		if slope > 0 {
			direction = DirectionIncreasing
		} else {
			direction = DirectionDecreasing
		}
		strength = clamp01(math.Abs(slope) / (std + slopeEpsilon))
	}

	profile := TrendProfile{
		MetricName:     metricName,
		CurrentValue:   current,
		Direction:      direction,
		Strength:       strength,
		BaselineAvg:    current,
		BaselineStdDev: std,
	}

	b, ok, err := t.baselines.GetBaseline(ctx, metricName)
	if err != nil {
		return TrendProfile{}, false, err
	}
	if ok {
		profile.BaselineAvg = b.Avg
		profile.BaselineStdDev = b.StdDev
		if b.StdDev > 0 {
			profile.AnomalyScore = clamp01(math.Abs(current-b.Avg) / (3 * b.StdDev))
		}
	}

	// Only project forward when the trend is strong enough to trust.
	if strength > forecastGate {
		futureNorm := 1.0
		if span > 0 {
			futureNorm = 1.0 + (24 * time.Hour).Seconds()/span
		}
		prediction := finiteOr(slope*futureNorm+intercept, current)
		profile.Prediction24h = &prediction
	}

	return profile, true, nil
}
