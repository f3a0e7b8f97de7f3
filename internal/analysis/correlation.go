package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"metric-insights/internal/storage"
)

// Relationship labels the direction of a correlation.
type Relationship string

const (
	RelationshipPositive Relationship = "positive"
	RelationshipNegative Relationship = "negative"
	RelationshipNone     Relationship = "none"
)

const (
	// correlationMinPoints applies to each series and to the aligned
	// intersection.
	correlationMinPoints = 10
	// relationshipBand: coefficients inside this band count as no
	// relationship.
	relationshipBand = 0.3
)

// CorrelationInsight is the result of a pairwise Pearson analysis.
// Confidence is 1 - p-value, an advisory diagnostic only.
type CorrelationInsight struct {
	MetricA      string
	MetricB      string
	Coefficient  float64
	PValue       float64
	Relationship Relationship
	Confidence   float64
}

// CorrelationEngine computes Pearson correlation between resampled,
// time-aligned metric pairs.
type CorrelationEngine struct {
	points    storage.PointStore
	interval  time.Duration
	maxPoints int
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCorrelationEngine wires store access into a correlation engine.
// interval is the common resampling interval both series are aligned to.
func NewCorrelationEngine(points storage.PointStore, interval time.Duration, maxPoints int, logger zerolog.Logger) *CorrelationEngine {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxPoints <= 0 {
		maxPoints = 10000
	}
	return &CorrelationEngine{
		points:    points,
		interval:  interval,
		maxPoints: maxPoints,
		logger:    logger.With().Str("component", "correlation").Logger(),
		now:       time.Now,
	}
}

// WithClock overrides the time source for tests.
func (c *CorrelationEngine) WithClock(now func() time.Time) *CorrelationEngine {
	c.now = now
	return c
}

// Correlate analyzes one unordered metric pair over the window. The
// second return value is false when either series is too sparse or the
// aligned intersection is too small.
func (c *CorrelationEngine) Correlate(ctx context.Context, metricA, metricB string, window time.Duration) (CorrelationInsight, bool, error) {
	if metricA == "" || metricB == "" {
		return CorrelationInsight{}, false, fmt.Errorf("%w: both metric names are required", ErrInvalidParameter)
	}
	if window <= 0 {
		return CorrelationInsight{}, false, fmt.Errorf("%w: window must be positive", ErrInvalidParameter)
	}

	since := c.now().UTC().Add(-window)
	seriesA, err := c.load(ctx, metricA, since)
	if err != nil {
		return CorrelationInsight{}, false, err
	}
	seriesB, err := c.load(ctx, metricB, since)
	if err != nil {
		return CorrelationInsight{}, false, err
	}

	seriesA, seriesB = overlap(seriesA, seriesB)
	if len(seriesA) < correlationMinPoints || len(seriesB) < correlationMinPoints {
		return CorrelationInsight{}, false, nil
	}

	va, vb := alignBuckets(resample(seriesA, c.interval), resample(seriesB, c.interval))
	if len(va) < correlationMinPoints {
		return CorrelationInsight{}, false, nil
	}

	r := stat.Correlation(va, vb, nil)
	insight := CorrelationInsight{MetricA: metricA, MetricB: metricB}

	if math.IsNaN(r) {
		// Zero-variance input; report no relationship rather than NaN.
		insight.Relationship = RelationshipNone
		insight.PValue = 1
		insight.Confidence = 0.5
		return insight, true, nil
	}

	insight.Coefficient = r
	insight.PValue = pearsonPValue(r, len(va))

	switch {
	case math.Abs(r) < relationshipBand:
		insight.Relationship = RelationshipNone
	case r > 0:
		insight.Relationship = RelationshipPositive
	default:
		insight.Relationship = RelationshipNegative
	}

	if math.IsNaN(insight.PValue) {
		insight.PValue = 1
		insight.Confidence = 0.5
	} else {
		insight.Confidence = clamp01(1 - insight.PValue)
	}

	return insight, true, nil
}

// Pairs computes insights for every unordered pair in the metric set.
// Pair count grows quadratically; callers bound the set size.
func (c *CorrelationEngine) Pairs(ctx context.Context, metricNames []string, window time.Duration) ([]CorrelationInsight, error) {
	insights := make([]CorrelationInsight, 0)
	for i, a := range metricNames {
		for _, b := range metricNames[i+1:] {
			insight, ok, err := c.Correlate(ctx, a, b, window)
			if err != nil {
				return nil, err
			}
			if ok {
				insights = append(insights, insight)
			}
		}
	}
	return insights, nil
}

func (c *CorrelationEngine) load(ctx context.Context, metricName string, since time.Time) ([]sample, error) {
	points, err := c.points.ListPointsSince(ctx, metricName, since, c.maxPoints)
	if err != nil {
		return nil, err
	}
	return ascending(points), nil
}

// overlap trims both series to their common time range.
func overlap(a, b []sample) ([]sample, []sample) {
	if len(a) == 0 || len(b) == 0 {
		return nil, nil
	}

	start := a[0].ts
	if b[0].ts.After(start) {
		start = b[0].ts
	}
	end := a[len(a)-1].ts
	if b[len(b)-1].ts.Before(end) {
		end = b[len(b)-1].ts
	}

	return trim(a, start, end), trim(b, start, end)
}

func trim(s []sample, start, end time.Time) []sample {
	out := make([]sample, 0, len(s))
	for _, v := range s {
		if v.ts.Before(start) || v.ts.After(end) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// alignBuckets intersects two resampled series on shared bucket
// timestamps and returns the paired values.
func alignBuckets(a, b []sample) ([]float64, []float64) {
	byBucket := make(map[int64]float64, len(b))
	for _, s := range b {
		byBucket[s.ts.Unix()] = s.value
	}

	va := make([]float64, 0, len(a))
	vb := make([]float64, 0, len(a))
	for _, s := range a {
		if v, ok := byBucket[s.ts.Unix()]; ok {
			va = append(va, s.value)
			vb = append(vb, v)
		}
	}
	return va, vb
}

// pearsonPValue is the two-tailed p-value of a Pearson coefficient via
// the t-distribution with n-2 degrees of freedom.
func pearsonPValue(r float64, n int) float64 {
	if n <= 2 {
		return 1
	}
	if math.Abs(r) >= 1 {
		return 0
	}

	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	p := 2 * (1 - dist.CDF(math.Abs(t)))
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}
