package baseline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"metric-insights/internal/storage"
)

// ErrInvalidParameter marks request validation failures rejected before
// touching storage.
var ErrInvalidParameter = errors.New("baseline: invalid parameter")

// Engine computes and serves rolling baseline statistics per metric.
type Engine struct {
	points     storage.PointStore
	baselines  storage.BaselineStore
	minSamples int
	maxPoints  int
	logger     zerolog.Logger
	now        func() time.Time
}

// Options configure the baseline engine.
type Options struct {
	MinSamples int
	MaxPoints  int
	Now        func() time.Time
}

// NewEngine wires store access into a baseline engine.
func NewEngine(points storage.PointStore, baselines storage.BaselineStore, opts Options, logger zerolog.Logger) *Engine {
	if opts.MinSamples <= 0 {
		opts.MinSamples = 10
	}
	if opts.MaxPoints <= 0 {
		opts.MaxPoints = 10000
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		points:     points,
		baselines:  baselines,
		minSamples: opts.MinSamples,
		maxPoints:  opts.MaxPoints,
		logger:     logger.With().Str("component", "baseline").Logger(),
		now:        opts.Now,
	}
}

// Compute reads the metric's history over the lookback window, derives
// population statistics, and upserts the baseline row. The second return
// value is false when fewer than MinSamples points exist; that is the
// expected insufficient-data outcome, not an error.
func (e *Engine) Compute(ctx context.Context, metricName string, lookback time.Duration) (storage.Baseline, bool, error) {
	if metricName == "" {
		return storage.Baseline{}, false, fmt.Errorf("%w: metric name is required", ErrInvalidParameter)
	}
	if lookback <= 0 {
		return storage.Baseline{}, false, fmt.Errorf("%w: lookback must be positive", ErrInvalidParameter)
	}

	now := e.now().UTC()
	points, err := e.points.ListPointsSince(ctx, metricName, now.Add(-lookback), e.maxPoints)
	if err != nil {
		return storage.Baseline{}, false, err
	}
	if len(points) < e.minSamples {
		return storage.Baseline{}, false, nil
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	mean := stat.Mean(values, nil)
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	b := storage.Baseline{
		MetricName:  metricName,
		Avg:         mean,
		StdDev:      popStdDev(values, mean),
		Min:         min,
		Max:         max,
		SampleCount: len(values),
		ComputedAt:  now,
	}

	if err := e.baselines.UpsertBaseline(ctx, b); err != nil {
		return storage.Baseline{}, false, err
	}

	e.logger.Debug().
		Str("metric", metricName).
		Float64("avg", b.Avg).
		Float64("stddev", b.StdDev).
		Int("samples", b.SampleCount).
		Msg("baseline recomputed")

	return b, true, nil
}

// Get returns the last stored baseline without recomputation.
func (e *Engine) Get(ctx context.Context, metricName string) (storage.Baseline, bool, error) {
	if metricName == "" {
		return storage.Baseline{}, false, fmt.Errorf("%w: metric name is required", ErrInvalidParameter)
	}
	return e.baselines.GetBaseline(ctx, metricName)
}

// popStdDev is the population standard deviation. gonum's StdDev divides
// by n-1; baselines follow the population convention so a constant series
// yields exactly zero spread.
func popStdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
