package analysis

import (
	"errors"
	"math"
	"sort"
	"time"

	"metric-insights/internal/storage"
)

// ErrInvalidParameter marks request validation failures rejected before
// touching storage.
var ErrInvalidParameter = errors.New("analysis: invalid parameter")

type sample struct {
	ts    time.Time
	value float64
}

// ascending converts store points (newest first) into a time-ascending
// sample series.
func ascending(points []storage.Point) []sample {
	samples := make([]sample, len(points))
	for i, p := range points {
		samples[i] = sample{ts: p.Timestamp, value: p.Value}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].ts.Before(samples[j].ts) })
	return samples
}

// resample buckets a series to a fixed interval via mean aggregation.
func resample(samples []sample, interval time.Duration) []sample {
	if interval <= 0 || len(samples) == 0 {
		return samples
	}

	sums := make(map[int64]float64)
	counts := make(map[int64]int)
	for _, s := range samples {
		bucket := s.ts.Truncate(interval).Unix()
		sums[bucket] += s.value
		counts[bucket]++
	}

	buckets := make([]int64, 0, len(sums))
	for bucket := range sums {
		buckets = append(buckets, bucket)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })

	out := make([]sample, 0, len(buckets))
	for _, bucket := range buckets {
		out = append(out, sample{
			ts:    time.Unix(bucket, 0).UTC(),
			value: sums[bucket] / float64(counts[bucket]),
		})
	}
	return out
}

func values(samples []sample) []float64 {
	vs := make([]float64, len(samples))
	for i, s := range samples {
		vs[i] = s.value
	}
	return vs
}

// popStdDev is the population standard deviation around the given mean.
func popStdDev(vs []float64, mean float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vs)))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// finiteOr replaces NaN/Inf with a fallback so no analysis output leaks
// non-finite values.
func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
