package alert

import (
	"fmt"
	"time"

	"metric-insights/internal/threshold"
)

// Severity orders alert severities from least to most urgent.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityCritical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "none"
	}
}

func (s Severity) threshold() threshold.Severity {
	return threshold.Severity(s.String())
}

// Alert is one classified metric condition.
type Alert struct {
	ID                string
	Severity          Severity
	MetricName        string
	CurrentValue      float64
	ThresholdValue    float64
	Message           string
	Timestamp         time.Time
	BucketTS          time.Time
	BaselineDeviation *float64
	SuggestedActions  []string
}

// Identity is the dedup key: repeated classifications of an unchanged
// condition within the same time bucket collapse onto one entry.
func (a *Alert) Identity() string {
	return fmt.Sprintf("%s:%s:%d", a.MetricName, a.Severity, a.BucketTS.Unix())
}
