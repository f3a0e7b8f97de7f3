package threshold

import (
	"testing"

	"metric-insights/internal/config"
	"metric-insights/internal/storage"
)

func testThresholdsConfig() config.ThresholdsConfig {
	return config.ThresholdsConfig{
		HardCeiling:     98,
		DefaultSpread:   5,
		DefaultWarning:  80,
		DefaultCritical: 95,
		Metrics: map[string]config.MetricThresholdConfig{
			"cpu_percent":  {Warning: 70, Critical: 85, Adaptive: true},
			"disk_percent": {Warning: 80, Critical: 95, Adaptive: false},
			"load_average": {Warning: 2, Critical: 4, Adaptive: true},
		},
	}
}

func TestDynamicUnconfiguredMetric(t *testing.T) {
	engine := NewEngine(testThresholdsConfig())

	pair := engine.Dynamic("custom_metric", nil)
	if pair.Warning != 80 || pair.Critical != 95 {
		t.Fatalf("pair = %+v, want defaults 80/95", pair)
	}
	if pair.Adaptive {
		t.Fatal("default pair should not report adaptive")
	}
}

func TestDynamicStaticMetricIgnoresBaseline(t *testing.T) {
	engine := NewEngine(testThresholdsConfig())
	b := &storage.Baseline{MetricName: "disk_percent", Avg: 20, StdDev: 5}

	pair := engine.Dynamic("disk_percent", b)
	if pair.Warning != 80 || pair.Critical != 95 {
		t.Fatalf("pair = %+v, want static 80/95", pair)
	}
}

func TestDynamicAdaptiveWithoutBaseline(t *testing.T) {
	engine := NewEngine(testThresholdsConfig())

	pair := engine.Dynamic("cpu_percent", nil)
	if pair.Warning != 70 || pair.Critical != 85 {
		t.Fatalf("pair = %+v, want static 70/85 until a baseline exists", pair)
	}
}

func TestDynamicTracksBaseline(t *testing.T) {
	engine := NewEngine(testThresholdsConfig())
	b := &storage.Baseline{MetricName: "cpu_percent", Avg: 60, StdDev: 5}

	pair := engine.Dynamic("cpu_percent", b)
	// warning = min(60+2*5, 85-5) = 70, critical = min(60+3*5, 98) = 75.
	if pair.Warning != 70 {
		t.Fatalf("warning = %v, want 70", pair.Warning)
	}
	if pair.Critical != 75 {
		t.Fatalf("critical = %v, want 75", pair.Critical)
	}
	if !pair.Adaptive {
		t.Fatal("pair should report adaptive")
	}
}

func TestDynamicFloorsPreventCollapse(t *testing.T) {
	engine := NewEngine(testThresholdsConfig())
	// A very quiet period drags the raw derivation down to 30/35; the
	// floors hold it at 70% / 80% of the static pair.
	b := &storage.Baseline{MetricName: "cpu_percent", Avg: 20, StdDev: 5}

	pair := engine.Dynamic("cpu_percent", b)
	if pair.Warning != 49 {
		t.Fatalf("warning = %v, want floor 49", pair.Warning)
	}
	if pair.Critical != 68 {
		t.Fatalf("critical = %v, want floor 68", pair.Critical)
	}
}

func TestDynamicZeroVarianceUsesDefaultSpread(t *testing.T) {
	engine := NewEngine(testThresholdsConfig())
	b := &storage.Baseline{MetricName: "cpu_percent", Avg: 90, StdDev: 0}

	pair := engine.Dynamic("cpu_percent", b)
	// spread falls back to 5: warning = min(100, 80) = 80, critical =
	// min(105, ceiling 98) = 98.
	if pair.Warning != 80 {
		t.Fatalf("warning = %v, want 80", pair.Warning)
	}
	if pair.Critical != 98 {
		t.Fatalf("critical = %v, want ceiling 98", pair.Critical)
	}
}

func TestDynamicOrderingInvariant(t *testing.T) {
	engine := NewEngine(testThresholdsConfig())

	baselines := []storage.Baseline{
		{Avg: 0, StdDev: 0},
		{Avg: 20, StdDev: 5},
		{Avg: 60, StdDev: 5},
		{Avg: 90, StdDev: 0},
		{Avg: 150, StdDev: 30},
		{Avg: 5, StdDev: 0.1},
	}
	for _, metric := range []string{"cpu_percent", "load_average"} {
		for _, b := range baselines {
			b.MetricName = metric
			pair := engine.Dynamic(metric, &b)
			if pair.Warning >= pair.Critical {
				t.Fatalf("%s baseline %+v: warning %v >= critical %v", metric, b, pair.Warning, pair.Critical)
			}
		}
	}
}

func TestCategoryFor(t *testing.T) {
	cases := map[string]Category{
		"cpu_percent":     CategoryCPU,
		"memory_percent":  CategoryMemory,
		"swap_percent":    CategoryMemory,
		"disk_percent":    CategoryDisk,
		"network_in_mbps": CategoryNetwork,
		"load_average":    CategoryLoad,
		"custom_widget":   CategoryUnknown,
	}
	for name, want := range cases {
		if got := CategoryFor(name); got != want {
			t.Fatalf("CategoryFor(%q) = %v, want %v", name, got, want)
		}
	}

	if !CategoryCPU.PercentageScaled() || CategoryLoad.PercentageScaled() {
		t.Fatal("percentage scaling misclassified")
	}
}

func TestActionsFor(t *testing.T) {
	actions := ActionsFor(CategoryCPU, SeverityCritical)
	if len(actions) == 0 {
		t.Fatal("cpu critical should have suggested actions")
	}

	fallback := ActionsFor(CategoryUnknown, SeverityWarning)
	if len(fallback) == 0 {
		t.Fatal("unknown category should fall back to generic actions")
	}
}
