package baseline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"metric-insights/internal/storage"
)

func fixedNow() time.Time {
	return time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
}

func seedPoints(t *testing.T, store *storage.MemStore, metric string, values []float64) {
	t.Helper()
	points := make([]storage.Point, len(values))
	for i, v := range values {
		points[i] = storage.Point{
			Timestamp:  fixedNow().Add(-time.Hour + time.Duration(i)*time.Minute),
			MetricName: metric,
			Value:      v,
		}
	}
	if err := store.InsertPoints(context.Background(), points); err != nil {
		t.Fatalf("seed points: %v", err)
	}
}

func TestComputePopulationStats(t *testing.T) {
	store := storage.NewMemStore()
	seedPoints(t, store, "cpu_percent", []float64{2, 4, 4, 4, 5, 5, 7, 9})

	engine := NewEngine(store, store, Options{MinSamples: 2, Now: fixedNow}, zerolog.Nop())

	b, ok, err := engine.Compute(context.Background(), "cpu_percent", 24*time.Hour)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !ok {
		t.Fatal("expected enough samples")
	}

	if b.Avg != 5 {
		t.Fatalf("avg = %v, want 5", b.Avg)
	}
	// Population stddev of this series is exactly 2; the sample
	// convention would give ~2.138.
	if math.Abs(b.StdDev-2) > 1e-9 {
		t.Fatalf("stddev = %v, want 2", b.StdDev)
	}
	if b.Min != 2 || b.Max != 9 {
		t.Fatalf("min/max = %v/%v, want 2/9", b.Min, b.Max)
	}
	if b.SampleCount != 8 {
		t.Fatalf("sample count = %d, want 8", b.SampleCount)
	}

	stored, ok, err := engine.Get(context.Background(), "cpu_percent")
	if err != nil || !ok {
		t.Fatalf("Get after Compute: ok=%v err=%v", ok, err)
	}
	if stored.Avg != b.Avg || stored.StdDev != b.StdDev {
		t.Fatalf("stored baseline %+v differs from computed %+v", stored, b)
	}
}

func TestComputeMinSamplesBoundary(t *testing.T) {
	store := storage.NewMemStore()
	values := make([]float64, 9)
	for i := range values {
		values[i] = 10
	}
	seedPoints(t, store, "memory_percent", values)

	engine := NewEngine(store, store, Options{MinSamples: 10, Now: fixedNow}, zerolog.Nop())

	_, ok, err := engine.Compute(context.Background(), "memory_percent", 24*time.Hour)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if ok {
		t.Fatal("9 samples should be insufficient")
	}

	if err := store.InsertPoint(context.Background(), storage.Point{
		Timestamp:  fixedNow().Add(-time.Minute),
		MetricName: "memory_percent",
		Value:      10,
	}); err != nil {
		t.Fatalf("insert tenth point: %v", err)
	}

	b, ok, err := engine.Compute(context.Background(), "memory_percent", 24*time.Hour)
	if err != nil {
		t.Fatalf("Compute with 10 samples: %v", err)
	}
	if !ok {
		t.Fatal("10 samples should be sufficient")
	}
	if b.StdDev != 0 {
		t.Fatalf("constant series stddev = %v, want 0", b.StdDev)
	}
}

func TestComputeIgnoresPointsOutsideLookback(t *testing.T) {
	store := storage.NewMemStore()
	if err := store.InsertPoint(context.Background(), storage.Point{
		Timestamp:  fixedNow().Add(-48 * time.Hour),
		MetricName: "cpu_percent",
		Value:      99,
	}); err != nil {
		t.Fatalf("insert stale point: %v", err)
	}
	seedPoints(t, store, "cpu_percent", []float64{10, 10, 10})

	engine := NewEngine(store, store, Options{MinSamples: 3, Now: fixedNow}, zerolog.Nop())

	b, ok, err := engine.Compute(context.Background(), "cpu_percent", 24*time.Hour)
	if err != nil || !ok {
		t.Fatalf("Compute: ok=%v err=%v", ok, err)
	}
	if b.Max != 10 {
		t.Fatalf("stale point leaked into window: max = %v", b.Max)
	}
}

func TestComputeValidation(t *testing.T) {
	store := storage.NewMemStore()
	engine := NewEngine(store, store, Options{}, zerolog.Nop())

	if _, _, err := engine.Compute(context.Background(), "", time.Hour); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("empty metric: err = %v, want ErrInvalidParameter", err)
	}
	if _, _, err := engine.Compute(context.Background(), "cpu_percent", 0); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("zero lookback: err = %v, want ErrInvalidParameter", err)
	}
}
