package alert

import (
	"testing"
	"time"
)

func testAlert(metric string, severity Severity, bucket time.Time) Alert {
	a := Alert{
		Severity:   severity,
		MetricName: metric,
		BucketTS:   bucket,
		Timestamp:  bucket,
	}
	a.ID = a.Identity()
	return a
}

func TestLogEvictsOldestWhenFull(t *testing.T) {
	log := NewLog(2)
	bucket := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

	log.Record(testAlert("cpu_percent", SeverityWarning, bucket))
	log.Record(testAlert("memory_percent", SeverityWarning, bucket))
	log.Record(testAlert("disk_percent", SeverityCritical, bucket))

	if log.Len() != 2 {
		t.Fatalf("len = %d, want 2", log.Len())
	}

	recent := log.Recent(0)
	if len(recent) != 2 {
		t.Fatalf("recent = %d entries, want 2", len(recent))
	}
	if recent[0].MetricName != "disk_percent" || recent[1].MetricName != "memory_percent" {
		t.Fatalf("unexpected order: %s, %s", recent[0].MetricName, recent[1].MetricName)
	}
	for _, a := range recent {
		if a.MetricName == "cpu_percent" {
			t.Fatal("oldest entry should have been evicted")
		}
	}
}

func TestLogMergesSameIdentity(t *testing.T) {
	log := NewLog(10)
	bucket := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

	first := testAlert("cpu_percent", SeverityCritical, bucket)
	first.CurrentValue = 90
	log.Record(first)

	second := testAlert("cpu_percent", SeverityCritical, bucket)
	second.CurrentValue = 93
	log.Record(second)

	if log.Len() != 1 {
		t.Fatalf("len = %d, want 1 after merging", log.Len())
	}
	if got := log.Recent(1)[0].CurrentValue; got != 93 {
		t.Fatalf("merged value = %v, want latest 93", got)
	}
}

func TestLogDistinctSeveritiesWithinBucket(t *testing.T) {
	log := NewLog(10)
	bucket := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

	log.Record(testAlert("cpu_percent", SeverityWarning, bucket))
	log.Record(testAlert("cpu_percent", SeverityCritical, bucket))

	if log.Len() != 2 {
		t.Fatalf("len = %d, want 2; severity is part of the identity", log.Len())
	}
}

func TestLogRecentLimit(t *testing.T) {
	log := NewLog(10)
	base := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		log.Record(testAlert("cpu_percent", SeverityWarning, base.Add(time.Duration(i)*5*time.Minute)))
	}

	recent := log.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("recent = %d entries, want 3", len(recent))
	}
	if !recent[0].BucketTS.After(recent[1].BucketTS) {
		t.Fatal("recent should be newest first")
	}
}
