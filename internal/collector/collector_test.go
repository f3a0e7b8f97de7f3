package collector

import (
	"context"
	"testing"
)

func TestStaticSamplerCopiesReadings(t *testing.T) {
	sampler := &StaticSampler{Readings: map[string]float64{
		"cpu_percent":    42.5,
		"memory_percent": 60,
	}}

	snap, err := sampler.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if snap.Timestamp.IsZero() {
		t.Fatal("snapshot timestamp should be set")
	}
	if snap.Values["cpu_percent"] != 42.5 {
		t.Fatalf("cpu = %v, want 42.5", snap.Values["cpu_percent"])
	}

	// Mutating the snapshot must not leak back into the sampler.
	snap.Values["cpu_percent"] = 0
	again, err := sampler.Sample(context.Background())
	if err != nil {
		t.Fatalf("second Sample: %v", err)
	}
	if again.Values["cpu_percent"] != 42.5 {
		t.Fatal("snapshot values should be copied per sample")
	}
}
