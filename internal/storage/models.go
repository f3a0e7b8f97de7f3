package storage

import (
	"time"
)

// Point represents a single persisted metric observation.
type Point struct {
	Timestamp  time.Time
	MetricName string
	Value      float64
	Tags       map[string]string
}

// Baseline holds rolling statistics for one metric. One row per metric,
// overwritten on every recomputation.
type Baseline struct {
	MetricName  string
	Avg         float64
	StdDev      float64
	Min         float64
	Max         float64
	SampleCount int
	ComputedAt  time.Time
}

// AlertRecord captures an emitted alert for de-duplication/auditing.
// Identity is (metric_name, severity, bucket_ts); re-observing the same
// condition within a bucket updates the row instead of appending.
type AlertRecord struct {
	ID                int64     `json:"id"`
	MetricName        string    `json:"metric_name"`
	Severity          string    `json:"severity"`
	BucketTS          time.Time `json:"bucket_ts"`
	CurrentValue      float64   `json:"current_value"`
	ThresholdValue    float64   `json:"threshold_value"`
	BaselineDeviation *float64  `json:"baseline_deviation,omitempty"`
	Message           string    `json:"message"`
	SuggestedActions  []string  `json:"suggested_actions,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
