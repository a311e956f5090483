package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pfrederiksen/cricpulse/internal/config"
	"github.com/pfrederiksen/cricpulse/internal/router"
)

func TestBuildSinks(t *testing.T) {
	tests := []struct {
		name   string
		notify config.NotifyConfig
		want   []string
	}{
		{"nothing configured falls back to dry run", config.NotifyConfig{}, []string{"dryrun"}},
		{"explicit dry run", config.NotifyConfig{DryRun: true}, []string{"dryrun"}},
		{"webhook only", config.NotifyConfig{Webhook: config.WebhookConfig{URL: "https://example.com/hook"}}, []string{"webhook"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Notify = tt.notify
			sinks, err := buildSinks(cfg, &bytes.Buffer{})
			if err != nil {
				t.Fatalf("buildSinks() error = %v", err)
			}
			if len(sinks) != len(tt.want) {
				t.Fatalf("buildSinks() = %d sinks, want %v", len(sinks), tt.want)
			}
			for i, want := range tt.want {
				named, ok := sinks[i].(interface{ Name() string })
				if !ok || named.Name() != want {
					t.Errorf("sink[%d] = %T, want %s", i, sinks[i], want)
				}
			}
		})
	}
}

func TestNewApp_DefaultConfigAlerts(t *testing.T) {
	setup(t)
	cfg := config.Default()
	cfg.Store.Driver = "memory"
	cfg.Log.Level = "error"

	var out bytes.Buffer
	a, err := newApp(context.Background(), cfg, &out)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	if a.dispatcher == nil {
		t.Fatal("newApp() with the default config has no dispatcher")
	}

	ack, err := router.Await(context.Background(), a.router.SendTestAlert(context.Background()))
	if err != nil || !ack.Success {
		t.Fatalf("SendTestAlert() = %+v, %v", ack, err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !strings.Contains(out.String(), "Sixer!") {
		t.Errorf("alert not printed: %q", out.String())
	}
}
