package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWebhookNotifierSuccess(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content type = %s, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(srv.URL, time.Second, zerolog.Nop())
	a := testAlert("cpu_percent", SeverityCritical, time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC))
	a.CurrentValue = 91.5
	a.Message = "CRITICAL: Cpu Percent at 91.5 - immediate attention required"

	if err := notifier.Notify(context.Background(), a); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if received["metric_name"] != "cpu_percent" {
		t.Fatalf("metric_name = %v", received["metric_name"])
	}
	if received["severity"] != "critical" {
		t.Fatalf("severity = %v", received["severity"])
	}
	if received["message"] == "" {
		t.Fatal("message should be present")
	}
}

func TestWebhookNotifierServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(srv.URL, time.Second, zerolog.Nop())
	a := testAlert("cpu_percent", SeverityWarning, time.Now().UTC())

	if err := notifier.Notify(context.Background(), a); err == nil {
		t.Fatal("non-2xx response should fail")
	}
}
