package app

import (
	"testing"
	"time"

	"metric-insights/internal/storage"
)

func TestParsePointRecord(t *testing.T) {
	point, err := parsePointRecord([]string{"2026-01-02T12:00:00Z", "cpu_percent", "42.5"})
	if err != nil {
		t.Fatalf("parsePointRecord: %v", err)
	}
	if point.MetricName != "cpu_percent" || point.Value != 42.5 {
		t.Fatalf("point = %+v", point)
	}
	want := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	if !point.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", point.Timestamp, want)
	}
}

func TestParsePointRecordRejectsBadRows(t *testing.T) {
	cases := [][]string{
		{"2026-01-02T12:00:00Z", "cpu_percent"},
		{"not-a-timestamp", "cpu_percent", "42.5"},
		{"2026-01-02T12:00:00Z", "", "42.5"},
		{"2026-01-02T12:00:00Z", "cpu_percent", "not-a-number"},
	}
	for _, record := range cases {
		if _, err := parsePointRecord(record); err == nil {
			t.Fatalf("record %v should be rejected", record)
		}
	}
}

func TestDownsamplePoints(t *testing.T) {
	points := make([]storage.Point, 100)
	base := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	for i := range points {
		points[i] = storage.Point{Timestamp: base.Add(time.Duration(i) * time.Minute), Value: float64(i)}
	}

	down := downsamplePoints(points, 10)
	if len(down) != 10 {
		t.Fatalf("got %d points, want 10", len(down))
	}
	if down[0].Value != 0 || down[len(down)-1].Value != 99 {
		t.Fatalf("endpoints = %v/%v, want first and last preserved", down[0].Value, down[len(down)-1].Value)
	}
	for i := 1; i < len(down); i++ {
		if !down[i].Timestamp.After(down[i-1].Timestamp) {
			t.Fatal("downsampled points should stay in order")
		}
	}

	// Under the cap, the series passes through untouched.
	if got := downsamplePoints(points, 200); len(got) != 100 {
		t.Fatalf("got %d points, want all 100", len(got))
	}
}
