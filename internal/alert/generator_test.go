package alert

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"metric-insights/internal/baseline"
	"metric-insights/internal/config"
	"metric-insights/internal/storage"
	"metric-insights/internal/threshold"
)

func fixedNow() time.Time {
	return time.Date(2026, 1, 2, 12, 3, 30, 0, time.UTC)
}

func testGenerator(t *testing.T, store *storage.MemStore) *Generator {
	t.Helper()

	thresholds := threshold.NewEngine(config.ThresholdsConfig{
		HardCeiling:     98,
		DefaultSpread:   5,
		DefaultWarning:  80,
		DefaultCritical: 95,
		Metrics: map[string]config.MetricThresholdConfig{
			"cpu_percent": {Warning: 70, Critical: 85, Adaptive: true},
		},
	})
	baselines := baseline.NewEngine(store, store, baseline.Options{Now: fixedNow}, zerolog.Nop())

	return NewGenerator(thresholds, baselines, 5*time.Minute, zerolog.Nop()).WithClock(fixedNow)
}

func seedBaseline(t *testing.T, store *storage.MemStore, metric string, avg, stddev float64) {
	t.Helper()
	err := store.UpsertBaseline(context.Background(), storage.Baseline{
		MetricName:  metric,
		Avg:         avg,
		StdDev:      stddev,
		SampleCount: 100,
		ComputedAt:  fixedNow(),
	})
	if err != nil {
		t.Fatalf("seed baseline: %v", err)
	}
}

func TestClassifySeverityLadder(t *testing.T) {
	store := storage.NewMemStore()
	// Baseline avg 50, stddev 5 makes the dynamic pair 60/68.
	seedBaseline(t, store, "cpu_percent", 50, 5)
	gen := testGenerator(t, store)

	cases := []struct {
		value float64
		want  Severity
	}{
		{70, SeverityCritical},
		{68, SeverityCritical},
		{65, SeverityWarning},
		{60, SeverityWarning},
		{20, SeverityInfo}, // 6 stddevs below baseline
		{50, SeverityNone},
	}

	for _, tc := range cases {
		a, err := gen.Classify(context.Background(), "cpu_percent", tc.value)
		if err != nil {
			t.Fatalf("Classify(%v): %v", tc.value, err)
		}
		if tc.want == SeverityNone {
			if a != nil {
				t.Fatalf("Classify(%v) = %+v, want no alert", tc.value, a)
			}
			continue
		}
		if a == nil {
			t.Fatalf("Classify(%v) = nil, want %s", tc.value, tc.want)
		}
		if a.Severity != tc.want {
			t.Fatalf("Classify(%v) severity = %s, want %s", tc.value, a.Severity, tc.want)
		}
	}
}

func TestClassifyCriticalDetails(t *testing.T) {
	store := storage.NewMemStore()
	seedBaseline(t, store, "cpu_percent", 50, 5)
	gen := testGenerator(t, store)

	a, err := gen.Classify(context.Background(), "cpu_percent", 70)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if a == nil {
		t.Fatal("expected a critical alert")
	}

	if a.ThresholdValue != 68 {
		t.Fatalf("threshold = %v, want 68", a.ThresholdValue)
	}
	if a.BaselineDeviation == nil || *a.BaselineDeviation != 4 {
		t.Fatalf("deviation = %v, want 4", a.BaselineDeviation)
	}
	if !strings.HasPrefix(a.Message, "CRITICAL: Cpu Percent at 70.0") {
		t.Fatalf("unexpected message %q", a.Message)
	}
	if len(a.SuggestedActions) == 0 {
		t.Fatal("critical cpu alert should carry suggested actions")
	}

	wantBucket := fixedNow().Truncate(5 * time.Minute)
	if !a.BucketTS.Equal(wantBucket) {
		t.Fatalf("bucket = %v, want %v", a.BucketTS, wantBucket)
	}
	if a.ID != a.Identity() {
		t.Fatalf("id %q does not match identity %q", a.ID, a.Identity())
	}
}

func TestClassifyDeterministicIdentity(t *testing.T) {
	store := storage.NewMemStore()
	seedBaseline(t, store, "cpu_percent", 50, 5)
	gen := testGenerator(t, store)

	first, err := gen.Classify(context.Background(), "cpu_percent", 70)
	if err != nil {
		t.Fatalf("first Classify: %v", err)
	}
	second, err := gen.Classify(context.Background(), "cpu_percent", 70)
	if err != nil {
		t.Fatalf("second Classify: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("identities differ: %q vs %q", first.ID, second.ID)
	}
}

func TestClassifyWithoutBaselineUsesStaticThresholds(t *testing.T) {
	store := storage.NewMemStore()
	gen := testGenerator(t, store)

	a, err := gen.Classify(context.Background(), "cpu_percent", 86)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if a == nil || a.Severity != SeverityCritical {
		t.Fatalf("Classify(86) = %+v, want critical at static threshold", a)
	}
	if a.BaselineDeviation != nil {
		t.Fatal("deviation should be absent without a baseline")
	}

	a, err = gen.Classify(context.Background(), "cpu_percent", 30)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if a != nil {
		t.Fatalf("low reading without baseline should be healthy, got %+v", a)
	}
}

func TestClassifyValidation(t *testing.T) {
	store := storage.NewMemStore()
	gen := testGenerator(t, store)

	if _, err := gen.Classify(context.Background(), "", 50); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("empty metric: err = %v, want ErrInvalidParameter", err)
	}
}
