package notifier

import (
	"context"
	"strings"
)

// Alert is a short-lived message for an alert sink.
type Alert struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Severity int    `json:"severity"`
}

// Text renders the alert as "title\nmessage".
func (a Alert) Text() string {
	return strings.TrimSpace(a.Title + "\n" + a.Message)
}

// Notifier delivers alerts to one external channel.
type Notifier interface {
	// Notify delivers a single alert
	Notify(ctx context.Context, alert Alert) error
}

// Named is implemented by notifiers that report a stable name for logs and
// metrics.
type Named interface {
	Name() string
}

func sinkName(n Notifier) string {
	if named, ok := n.(Named); ok {
		return named.Name()
	}
	return "notifier"
}
