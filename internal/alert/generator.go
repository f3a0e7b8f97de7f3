package alert

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"metric-insights/internal/baseline"
	"metric-insights/internal/storage"
	"metric-insights/internal/threshold"
)

// ErrInvalidParameter marks request validation failures.
var ErrInvalidParameter = errors.New("alert: invalid parameter")

// deviationInfoBand is the baseline deviation (in stddevs) beyond which
// a reading that breaches no threshold still produces an info alert.
const deviationInfoBand = 2.5

// Generator classifies current metric values against dynamic thresholds
// and baseline deviation. Classification is a pure function of its
// inputs; the same reading always yields the same alert identity.
type Generator struct {
	thresholds *threshold.Engine
	baselines  *baseline.Engine
	bucket     time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewGenerator wires threshold and baseline engines into a generator.
// identityBucket controls alert dedup granularity.
func NewGenerator(thresholds *threshold.Engine, baselines *baseline.Engine, identityBucket time.Duration, logger zerolog.Logger) *Generator {
	if identityBucket <= 0 {
		identityBucket = 5 * time.Minute
	}
	return &Generator{
		thresholds: thresholds,
		baselines:  baselines,
		bucket:     identityBucket,
		logger:     logger.With().Str("component", "alert").Logger(),
		now:        time.Now,
	}
}

// WithClock overrides the time source; tests use it to pin buckets.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Classify evaluates one metric reading. It returns nil when the value
// is healthy: neither threshold is breached and the baseline deviation
// is unremarkable.
func (g *Generator) Classify(ctx context.Context, metricName string, currentValue float64) (*Alert, error) {
	if metricName == "" {
		return nil, fmt.Errorf("%w: metric name is required", ErrInvalidParameter)
	}

	var baselineRef *storage.Baseline
	b, ok, err := g.baselines.Get(ctx, metricName)
	if err != nil {
		return nil, err
	}
	if ok {
		baselineRef = &b
	}

	pair := g.thresholds.Dynamic(metricName, baselineRef)

	var deviation *float64
	if baselineRef != nil && baselineRef.StdDev > 0 {
		d := (currentValue - baselineRef.Avg) / baselineRef.StdDev
		deviation = &d
	}

	severity := SeverityNone
	thresholdValue := pair.Warning
	switch {
	case currentValue >= pair.Critical:
		severity = SeverityCritical
		thresholdValue = pair.Critical
	case currentValue >= pair.Warning:
		severity = SeverityWarning
	case deviation != nil && math.Abs(*deviation) > deviationInfoBand:
		severity = SeverityInfo
	default:
		return nil, nil
	}

	now := g.now().UTC()
	a := &Alert{
		Severity:          severity,
		MetricName:        metricName,
		CurrentValue:      currentValue,
		ThresholdValue:    thresholdValue,
		Message:           renderMessage(metricName, currentValue, severity, deviation),
		Timestamp:         now,
		BucketTS:          now.Truncate(g.bucket),
		BaselineDeviation: deviation,
		SuggestedActions:  threshold.ActionsFor(threshold.CategoryFor(metricName), severity.threshold()),
	}
	a.ID = a.Identity()

	g.logger.Debug().
		Str("metric", metricName).
		Str("severity", severity.String()).
		Float64("value", currentValue).
		Float64("threshold", thresholdValue).
		Msg("reading classified")

	return a, nil
}

func renderMessage(metricName string, value float64, severity Severity, deviation *float64) string {
	display := displayName(metricName)
	switch severity {
	case SeverityCritical:
		return fmt.Sprintf("CRITICAL: %s at %.1f - immediate attention required", display, value)
	case SeverityWarning:
		return fmt.Sprintf("WARNING: %s elevated at %.1f - monitor closely", display, value)
	default:
		if deviation != nil {
			return fmt.Sprintf("INFO: %s showing unusual pattern: %.1f (baseline deviation: %.1f sigma)", display, value, *deviation)
		}
		return fmt.Sprintf("INFO: %s anomaly detected at %.1f", display, value)
	}
}

func displayName(metricName string) string {
	words := strings.Split(metricName, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
