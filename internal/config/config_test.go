package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Scheduler.Interval != 15*time.Second {
		t.Fatalf("scheduler interval = %v, want 15s", cfg.Scheduler.Interval)
	}
	if !cfg.Scheduler.AlignToBucket {
		t.Fatal("align_to_bucket should default on")
	}
	if cfg.Baseline.Lookback != 24*time.Hour || cfg.Baseline.MinSamples != 10 {
		t.Fatalf("baseline defaults = %v/%d", cfg.Baseline.Lookback, cfg.Baseline.MinSamples)
	}

	cpu, ok := cfg.Thresholds.Metrics["cpu_percent"]
	if !ok {
		t.Fatal("cpu_percent thresholds missing")
	}
	if cpu.Warning != 70 || cpu.Critical != 85 || !cpu.Adaptive {
		t.Fatalf("cpu thresholds = %+v, want 70/85 adaptive", cpu)
	}

	disk, ok := cfg.Thresholds.Metrics["disk_percent"]
	if !ok || disk.Adaptive {
		t.Fatalf("disk thresholds = %+v, want static", disk)
	}

	if cfg.Thresholds.HardCeiling != 98 {
		t.Fatalf("hard ceiling = %v, want 98", cfg.Thresholds.HardCeiling)
	}
	if cfg.Analysis.AnomalyEps != 2.0 || cfg.Analysis.AnomalyMinSamples != 5 {
		t.Fatalf("anomaly params = %v/%d, want 2.0/5", cfg.Analysis.AnomalyEps, cfg.Analysis.AnomalyMinSamples)
	}
	if cfg.Alerts.LogCapacity != 1000 {
		t.Fatalf("alert log capacity = %d, want 1000", cfg.Alerts.LogCapacity)
	}
	if cfg.Alerts.IdentityBucket != 5*time.Minute {
		t.Fatalf("identity bucket = %v, want 5m", cfg.Alerts.IdentityBucket)
	}
	if cfg.Retention.MaxAge != 720*time.Hour {
		t.Fatalf("retention = %v, want 720h", cfg.Retention.MaxAge)
	}
}

func TestValidateRejectsBadThresholdPair(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg.Thresholds.Metrics["cpu_percent"] = MetricThresholdConfig{Warning: 90, Critical: 80, Adaptive: true}
	err = cfg.Validate()
	if err == nil {
		t.Fatal("warning above critical must fail validation")
	}
	if !strings.Contains(err.Error(), "cpu_percent") {
		t.Fatalf("error should name the offending metric: %v", err)
	}
}

func TestValidateRejectsZeroSpread(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg.Thresholds.DefaultSpread = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero default_spread must fail validation")
	}
}

func TestValidateRequiresWebhookURL(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg.Alerts.Webhook.Enabled = true
	cfg.Alerts.Webhook.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled webhook without a url must fail validation")
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.ResolveMaxPoints(0); got != cfg.Export.MaxDataPoints {
		t.Fatalf("ResolveMaxPoints(0) = %d, want config default", got)
	}
	if got := cfg.ResolveMaxPoints(42); got != 42 {
		t.Fatalf("ResolveMaxPoints(42) = %d, want override", got)
	}
}
