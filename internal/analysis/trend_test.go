package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"metric-insights/internal/storage"
)

func fixedNow() time.Time {
	return time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
}

func seedSeries(t *testing.T, store *storage.MemStore, metric string, start time.Time, step time.Duration, values []float64) {
	t.Helper()
	points := make([]storage.Point, len(values))
	for i, v := range values {
		points[i] = storage.Point{
			Timestamp:  start.Add(time.Duration(i) * step),
			MetricName: metric,
			Value:      v,
		}
	}
	if err := store.InsertPoints(context.Background(), points); err != nil {
		t.Fatalf("seed series: %v", err)
	}
}

func rampValues(n int) []float64 {
	vs := make([]float64, n)
	for i := range vs {
		vs[i] = float64(i)
	}
	return vs
}

func flatValues(n int, v float64) []float64 {
	vs := make([]float64, n)
	for i := range vs {
		vs[i] = v
	}
	return vs
}

func TestAnalyzeIncreasingTrend(t *testing.T) {
	store := storage.NewMemStore()
	seedSeries(t, store, "cpu_percent", fixedNow().Add(-30*time.Minute), time.Minute, rampValues(30))

	analyzer := NewTrendAnalyzer(store, store, 0, zerolog.Nop()).WithClock(fixedNow)

	profile, ok, err := analyzer.Analyze(context.Background(), "cpu_percent", time.Hour)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !ok {
		t.Fatal("expected enough data")
	}

	if profile.Direction != DirectionIncreasing {
		t.Fatalf("direction = %s, want increasing", profile.Direction)
	}
	if profile.Strength != 1 {
		t.Fatalf("strength = %v, want 1 for a steep ramp", profile.Strength)
	}
	if profile.CurrentValue != 29 {
		t.Fatalf("current = %v, want 29", profile.CurrentValue)
	}
	if profile.Prediction24h == nil {
		t.Fatal("strong trend should carry a 24h projection")
	}
	if *profile.Prediction24h <= profile.CurrentValue {
		t.Fatalf("projection %v should exceed current %v for a rising series", *profile.Prediction24h, profile.CurrentValue)
	}
}

func TestAnalyzeDecreasingTrend(t *testing.T) {
	store := storage.NewMemStore()
	values := rampValues(30)
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
	seedSeries(t, store, "memory_percent", fixedNow().Add(-30*time.Minute), time.Minute, values)

	analyzer := NewTrendAnalyzer(store, store, 0, zerolog.Nop()).WithClock(fixedNow)

	profile, ok, err := analyzer.Analyze(context.Background(), "memory_percent", time.Hour)
	if err != nil || !ok {
		t.Fatalf("Analyze: ok=%v err=%v", ok, err)
	}
	if profile.Direction != DirectionDecreasing {
		t.Fatalf("direction = %s, want decreasing", profile.Direction)
	}
}

func TestAnalyzeStableSeries(t *testing.T) {
	store := storage.NewMemStore()
	seedSeries(t, store, "cpu_percent", fixedNow().Add(-30*time.Minute), time.Minute, flatValues(30, 20))

	analyzer := NewTrendAnalyzer(store, store, 0, zerolog.Nop()).WithClock(fixedNow)

	profile, ok, err := analyzer.Analyze(context.Background(), "cpu_percent", time.Hour)
	if err != nil || !ok {
		t.Fatalf("Analyze: ok=%v err=%v", ok, err)
	}
	if profile.Direction != DirectionStable {
		t.Fatalf("direction = %s, want stable", profile.Direction)
	}
	if profile.Strength != 0 {
		t.Fatalf("strength = %v, want 0", profile.Strength)
	}
	if profile.Prediction24h != nil {
		t.Fatal("stable series should not project")
	}
}

func TestAnalyzeAnomalyScoreFromBaseline(t *testing.T) {
	store := storage.NewMemStore()
	seedSeries(t, store, "cpu_percent", fixedNow().Add(-30*time.Minute), time.Minute, flatValues(30, 16))
	if err := store.UpsertBaseline(context.Background(), storage.Baseline{
		MetricName: "cpu_percent",
		Avg:        10,
		StdDev:     2,
	}); err != nil {
		t.Fatalf("seed baseline: %v", err)
	}

	analyzer := NewTrendAnalyzer(store, store, 0, zerolog.Nop()).WithClock(fixedNow)

	profile, ok, err := analyzer.Analyze(context.Background(), "cpu_percent", time.Hour)
	if err != nil || !ok {
		t.Fatalf("Analyze: ok=%v err=%v", ok, err)
	}
	// |16-10| / (3*2) = 1, clamped.
	if profile.AnomalyScore != 1 {
		t.Fatalf("anomaly score = %v, want 1", profile.AnomalyScore)
	}
	if profile.BaselineAvg != 10 || profile.BaselineStdDev != 2 {
		t.Fatalf("baseline = %v/%v, want 10/2", profile.BaselineAvg, profile.BaselineStdDev)
	}
}

func TestAnalyzeInsufficientData(t *testing.T) {
	store := storage.NewMemStore()
	seedSeries(t, store, "cpu_percent", fixedNow().Add(-10*time.Minute), time.Minute, rampValues(4))

	analyzer := NewTrendAnalyzer(store, store, 0, zerolog.Nop()).WithClock(fixedNow)

	_, ok, err := analyzer.Analyze(context.Background(), "cpu_percent", time.Hour)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if ok {
		t.Fatal("4 points should be insufficient")
	}
}
