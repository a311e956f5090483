package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// DryRunNotifier prints alerts instead of sending them anywhere.
type DryRunNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewDryRunNotifier creates a dry-run notifier writing to out (stdout when nil).
func NewDryRunNotifier(out io.Writer) *DryRunNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &DryRunNotifier{out: out}
}

// Name implements Named.
func (n *DryRunNotifier) Name() string { return "dryrun" }

// Notify prints the alert
func (n *DryRunNotifier) Notify(_ context.Context, alert Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, err := fmt.Fprintf(n.out, "--- Alert (severity %d) ---\n%s\n%s\n\n", alert.Severity, alert.Title, alert.Message)
	return err
}
