package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notifier delivers alerts to an external channel.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// WebhookNotifier posts alerts as JSON to a configured endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewWebhookNotifier constructs a webhook notifier.
func NewWebhookNotifier(url string, timeout time.Duration, logger zerolog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "alert_webhook").Logger(),
	}
}

type webhookPayload struct {
	ID                string   `json:"id"`
	Severity          string   `json:"severity"`
	MetricName        string   `json:"metric_name"`
	CurrentValue      float64  `json:"current_value"`
	ThresholdValue    float64  `json:"threshold_value"`
	Message           string   `json:"message"`
	Timestamp         string   `json:"timestamp"`
	BaselineDeviation *float64 `json:"baseline_deviation,omitempty"`
	SuggestedActions  []string `json:"suggested_actions,omitempty"`
}

// Notify posts the alert and fails on any non-2xx response.
func (n *WebhookNotifier) Notify(ctx context.Context, a Alert) error {
	payload := webhookPayload{
		ID:                a.ID,
		Severity:          a.Severity.String(),
		MetricName:        a.MetricName,
		CurrentValue:      a.CurrentValue,
		ThresholdValue:    a.ThresholdValue,
		Message:           a.Message,
		Timestamp:         a.Timestamp.UTC().Format(time.RFC3339),
		BaselineDeviation: a.BaselineDeviation,
		SuggestedActions:  a.SuggestedActions,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.logger.Info().
		Str("metric", a.MetricName).
		Str("severity", a.Severity.String()).
		Msg("alert dispatched")
	return nil
}

var _ Notifier = (*WebhookNotifier)(nil)
