package notifier

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// Colors for Discord embeds
	colorRed    = 15158332 // 0xE74C3C - wickets and other high-severity alerts
	colorOrange = 15105570 // 0xE67E22
	colorGreen  = 5763719  // 0x57F287

	// Default timeout for webhook requests
	defaultWebhookTimeout = 10 * time.Second
)

// WebhookPayload represents a Discord webhook message
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedFooter represents the footer of a Discord embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// NewAlertPayload builds the webhook payload for an alert.
func NewAlertPayload(alert Alert, at time.Time) WebhookPayload {
	return WebhookPayload{
		Embeds: []Embed{
			{
				Title:       "🏏 " + alert.Title,
				Description: alert.Message,
				Color:       severityColor(alert.Severity),
				Footer:      &EmbedFooter{Text: "cricpulse"},
				Timestamp:   at.UTC().Format(time.RFC3339),
			},
		},
	}
}

func severityColor(severity int) int {
	switch {
	case severity >= 3:
		return colorRed
	case severity == 2:
		return colorOrange
	default:
		return colorGreen
	}
}

// WebhookNotifier posts alerts to a Discord-compatible webhook
type WebhookNotifier struct {
	webhookURL string
	httpClient *http.Client
	now        func() time.Time
}

// NewWebhookNotifier creates a new WebhookNotifier
func NewWebhookNotifier(webhookURL string) (*WebhookNotifier, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	return &WebhookNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
		now: time.Now,
	}, nil
}

// Name implements Named.
func (n *WebhookNotifier) Name() string { return "webhook" }

// Notify posts the alert once. A rate-limited response is an error like any
// other; alerts are not retried.
func (n *WebhookNotifier) Notify(ctx context.Context, alert Alert) error {
	data, err := json.Marshal(NewAlertPayload(alert, n.now()))
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	resp.Body.Close()

	// Success - Discord returns 204 No Content
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
		return nil
	}
	return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
}
