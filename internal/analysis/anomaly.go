package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"metric-insights/internal/storage"
)

const (
	// anomalyMinColumns: joint detection needs at least two metrics.
	anomalyMinColumns = 2
	// anomalyMaxResults caps the candidate list returned to callers.
	anomalyMaxResults = 20
)

// MetricReading pairs a raw value with its standardized form inside one
// anomaly candidate.
type MetricReading struct {
	Value        float64 `json:"value"`
	Standardized float64 `json:"standardized"`
}

// ClusterCandidate is a time slice flagged as jointly unusual. Score is
// the max absolute standardized value across the metric columns.
type ClusterCandidate struct {
	Timestamp time.Time                `json:"timestamp"`
	Score     float64                  `json:"score"`
	Metrics   map[string]MetricReading `json:"metrics"`
}

// DetectorOptions tune the density clustering pass.
type DetectorOptions struct {
	Eps        float64
	MinSamples int
	MinRows    int
	MaxPoints  int
	Resample   time.Duration
}

// Detector flags per-metric z-score anomalies and multi-metric anomaly
// clusters.
type Detector struct {
	points    storage.PointStore
	baselines storage.BaselineStore
	opts      DetectorOptions
	logger    zerolog.Logger
	now       func() time.Time
}

// NewDetector wires store access into an anomaly detector.
func NewDetector(points storage.PointStore, baselines storage.BaselineStore, opts DetectorOptions, logger zerolog.Logger) *Detector {
	if opts.Eps <= 0 {
		opts.Eps = 2.0
	}
	if opts.MinSamples <= 0 {
		opts.MinSamples = 5
	}
	if opts.MinRows <= 0 {
		opts.MinRows = 100
	}
	if opts.MaxPoints <= 0 {
		opts.MaxPoints = 10000
	}
	if opts.Resample <= 0 {
		opts.Resample = time.Minute
	}
	return &Detector{
		points:    points,
		baselines: baselines,
		opts:      opts,
		logger:    logger.With().Str("component", "anomaly").Logger(),
		now:       time.Now,
	}
}

// WithClock overrides the time source for tests.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

// Score reports how anomalous a reading is relative to its baseline, as
// a z-score normalized into [0,1]. Without a baseline (or with zero
// variance) the score is 0.
func (d *Detector) Score(ctx context.Context, metricName string, currentValue float64) (float64, error) {
	if metricName == "" {
		return 0, fmt.Errorf("%w: metric name is required", ErrInvalidParameter)
	}

	b, ok, err := d.baselines.GetBaseline(ctx, metricName)
	if err != nil {
		return 0, err
	}
	if !ok || b.StdDev <= 0 {
		return 0, nil
	}
	return clamp01(math.Abs(currentValue-b.Avg) / (3 * b.StdDev)), nil
}

// DetectClusters pivots every metric over the window into a
// timestamp-indexed matrix, standardizes columns, and runs density
// clustering; rows outside any dense cluster are anomaly candidates.
// Returns an empty slice when data is too sparse for a joint pass.
func (d *Detector) DetectClusters(ctx context.Context, window time.Duration) ([]ClusterCandidate, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive", ErrInvalidParameter)
	}

	since := d.now().UTC().Add(-window)
	points, err := d.points.ListAllPointsSince(ctx, since, d.opts.MaxPoints)
	if err != nil {
		return nil, err
	}
	if len(points) < d.opts.MinRows {
		return []ClusterCandidate{}, nil
	}

	timestamps, metricNames, grid := pivot(points, d.opts.Resample)
	if len(metricNames) < anomalyMinColumns || len(timestamps) < d.opts.MinRows {
		return []ClusterCandidate{}, nil
	}

	fillColumns(grid)

	rows := len(timestamps)
	cols := len(metricNames)
	standardized := mat.NewDense(rows, cols, nil)
	for c := 0; c < cols; c++ {
		col := make([]float64, rows)
		for r := 0; r < rows; r++ {
			col[r] = grid[c][r]
		}
		mean := stat.Mean(col, nil)
		std := popStdDev(col, mean)
		for r := 0; r < rows; r++ {
			if std > 0 {
				standardized.Set(r, c, (col[r]-mean)/std)
			} else {
				standardized.Set(r, c, 0)
			}
		}
	}

	labels := dbscanLabels(standardized, d.opts.Eps, d.opts.MinSamples)

	candidates := make([]ClusterCandidate, 0)
	for r, label := range labels {
		if label != dbscanNoise {
			continue
		}

		metrics := make(map[string]MetricReading, cols)
		maxAbs := 0.0
		for c, name := range metricNames {
			z := standardized.At(r, c)
			metrics[name] = MetricReading{Value: grid[c][r], Standardized: z}
			if math.Abs(z) > maxAbs {
				maxAbs = math.Abs(z)
			}
		}

		candidates = append(candidates, ClusterCandidate{
			Timestamp: timestamps[r],
			Score:     maxAbs,
			Metrics:   metrics,
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > anomalyMaxResults {
		candidates = candidates[:anomalyMaxResults]
	}

	d.logger.Debug().
		Int("rows", rows).
		Int("metrics", cols).
		Int("candidates", len(candidates)).
		Msg("anomaly clustering pass complete")

	return candidates, nil
}

// pivot buckets points into a metric-by-timestamp grid with mean
// aggregation. Missing cells are NaN until fillColumns runs. Metrics
// with no data in the window are dropped entirely.
func pivot(points []storage.Point, interval time.Duration) ([]time.Time, []string, [][]float64) {
	type cell struct {
		sum   float64
		count int
	}

	cells := make(map[string]map[int64]*cell)
	bucketSet := make(map[int64]struct{})
	for _, p := range points {
		bucket := p.Timestamp.Truncate(interval).Unix()
		bucketSet[bucket] = struct{}{}
		byBucket, ok := cells[p.MetricName]
		if !ok {
			byBucket = make(map[int64]*cell)
			cells[p.MetricName] = byBucket
		}
		c, ok := byBucket[bucket]
		if !ok {
			c = &cell{}
			byBucket[bucket] = c
		}
		c.sum += p.Value
		c.count++
	}

	buckets := make([]int64, 0, len(bucketSet))
	for b := range bucketSet {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })

	metricNames := make([]string, 0, len(cells))
	for name := range cells {
		metricNames = append(metricNames, name)
	}
	sort.Strings(metricNames)

	timestamps := make([]time.Time, len(buckets))
	for i, b := range buckets {
		timestamps[i] = time.Unix(b, 0).UTC()
	}

	grid := make([][]float64, len(metricNames))
	for c, name := range metricNames {
		column := make([]float64, len(buckets))
		for r, b := range buckets {
			if cellValue, ok := cells[name][b]; ok {
				column[r] = cellValue.sum / float64(cellValue.count)
			} else {
				column[r] = math.NaN()
			}
		}
		grid[c] = column
	}

	return timestamps, metricNames, grid
}

// fillColumns forward-fills then backward-fills gaps per column. Every
// column has at least one observation by construction, so no NaN
// survives.
func fillColumns(grid [][]float64) {
	for _, col := range grid {
		last := math.NaN()
		for r := range col {
			if math.IsNaN(col[r]) {
				col[r] = last
			} else {
				last = col[r]
			}
		}
		next := math.NaN()
		for r := len(col) - 1; r >= 0; r-- {
			if math.IsNaN(col[r]) {
				col[r] = next
			} else {
				next = col[r]
			}
		}
	}
}
