package threshold

import (
	"math"

	"metric-insights/internal/config"
	"metric-insights/internal/storage"
)

// Pair is a derived warning/critical threshold pair.
type Pair struct {
	Warning  float64
	Critical float64
	Adaptive bool
}

// Engine derives warning/critical thresholds per metric, either static
// (configured) or dynamic (baseline-derived) with safety floors and a
// hard ceiling for percentage metrics.
type Engine struct {
	metrics         map[string]config.MetricThresholdConfig
	hardCeiling     float64
	defaultSpread   float64
	defaultWarning  float64
	defaultCritical float64
}

// NewEngine builds a threshold engine from configuration.
func NewEngine(cfg config.ThresholdsConfig) *Engine {
	metrics := make(map[string]config.MetricThresholdConfig, len(cfg.Metrics))
	for name, t := range cfg.Metrics {
		metrics[name] = t
	}
	return &Engine{
		metrics:         metrics,
		hardCeiling:     cfg.HardCeiling,
		defaultSpread:   cfg.DefaultSpread,
		defaultWarning:  cfg.DefaultWarning,
		defaultCritical: cfg.DefaultCritical,
	}
}

// Lookup returns the static configuration for a metric.
func (e *Engine) Lookup(metricName string) (config.MetricThresholdConfig, bool) {
	t, ok := e.metrics[metricName]
	return t, ok
}

// MetricNames lists the configured metric names.
func (e *Engine) MetricNames() []string {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	return names
}

// Dynamic derives the effective warning/critical pair for a metric.
// Unconfigured metrics get the hard-coded default pair. Non-adaptive
// metrics and metrics without a baseline keep their static thresholds.
// Otherwise thresholds track the baseline, floored at a fraction of the
// static pair so a quiet period cannot collapse them to near zero.
func (e *Engine) Dynamic(metricName string, b *storage.Baseline) Pair {
	static, ok := e.metrics[metricName]
	if !ok {
		return Pair{Warning: e.defaultWarning, Critical: e.defaultCritical}
	}
	if !static.Adaptive || b == nil {
		return Pair{Warning: static.Warning, Critical: static.Critical, Adaptive: static.Adaptive}
	}

	// A zero-variance baseline must not zero out the alert margin.
	spread := b.StdDev
	if spread <= 0 {
		spread = e.defaultSpread
	}

	warning := math.Min(b.Avg+2*spread, static.Critical-5)
	critical := b.Avg + 3*spread
	if CategoryFor(metricName).PercentageScaled() {
		critical = math.Min(critical, e.hardCeiling)
	}

	warning = math.Max(warning, static.Warning*0.7)
	critical = math.Max(critical, static.Critical*0.8)

	// Invariant: warning < critical, whatever the baseline drifted to.
	if warning >= critical {
		warning = critical - spread
	}

	return Pair{Warning: warning, Critical: critical, Adaptive: true}
}
