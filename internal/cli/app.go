package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pfrederiksen/cricpulse/internal/config"
	"github.com/pfrederiksen/cricpulse/internal/engine"
	"github.com/pfrederiksen/cricpulse/internal/logger"
	"github.com/pfrederiksen/cricpulse/internal/notifier"
	"github.com/pfrederiksen/cricpulse/internal/router"
	"github.com/pfrederiksen/cricpulse/internal/source"
	"github.com/pfrederiksen/cricpulse/internal/store"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg        config.Config
	log        *logger.Logger
	metrics    *logger.Metrics
	store      *store.Store
	source     *source.Client
	dispatcher *notifier.Dispatcher
	engine     *engine.Engine
	router     *router.Router
}

// newLogger builds the process logger on stderr and makes it the default.
func newLogger(cfg config.Config) (*logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	log := logger.New(level, os.Stderr)
	logger.SetDefault(log)
	return log, nil
}

// openStore opens the configured backend and wraps it in a Store.
func openStore(ctx context.Context, cfg config.Config, log *logger.Logger, metrics *logger.Metrics) (*store.Store, error) {
	backend, err := store.Open(ctx, cfg.Store.Driver, cfg.StoreDSN())
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}
	log.Debug("store opened", logger.Fields{"driver": cfg.Store.Driver})
	return store.New(backend, store.WithLogger(log), store.WithMetrics(metrics)), nil
}

// buildSinks creates every alert sink the config enables. Dry-run output goes
// to out. With nothing else enabled, alerts fall back to the dry-run sink so
// they are always shown somewhere.
func buildSinks(cfg config.Config, out io.Writer) ([]notifier.Notifier, error) {
	var sinks []notifier.Notifier
	n := cfg.Notify

	if n.DryRun {
		sinks = append(sinks, notifier.NewDryRunNotifier(out))
	}
	if n.Telegram.BotToken != "" || n.Telegram.ChatID != "" {
		tg, err := notifier.NewTelegramNotifier(n.Telegram.BotToken, n.Telegram.ChatID)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		sinks = append(sinks, tg)
	}
	if n.Webhook.URL != "" {
		wh, err := notifier.NewWebhookNotifier(n.Webhook.URL)
		if err != nil {
			return nil, fmt.Errorf("webhook: %w", err)
		}
		sinks = append(sinks, wh)
	}
	if creds := n.Twitter.Credentials(); creds != (notifier.TwitterCredentials{}) {
		tw, err := notifier.NewTwitterNotifier(creds)
		if err != nil {
			return nil, fmt.Errorf("twitter: %w", err)
		}
		sinks = append(sinks, tw)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, notifier.NewDryRunNotifier(out))
	}
	return sinks, nil
}

// newApp wires the store, source, sinks, engine and router.
func newApp(ctx context.Context, cfg config.Config, out io.Writer) (*app, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	metrics := logger.DefaultMetrics()

	st, err := openStore(ctx, cfg, log, metrics)
	if err != nil {
		return nil, err
	}

	src, err := source.New(cfg.API.BaseURL,
		source.WithTimeout(cfg.API.Timeout.Std()),
		source.WithLogger(log),
		source.WithMetrics(metrics),
	)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("creating source client: %w", err)
	}

	sinks, err := buildSinks(cfg, out)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := &app{cfg: cfg, log: log, metrics: metrics, store: st, source: src}

	a.dispatcher = notifier.NewDispatcher(sinks,
		notifier.WithSinkTimeout(cfg.Notify.SinkTimeout.Std()),
		notifier.WithLogger(log),
		notifier.WithMetrics(metrics),
	)
	log.Info("alert sinks enabled", logger.Fields{"sinks": a.dispatcher.Sinks()})

	a.engine = engine.New(src, st, a.dispatcher, engine.WithLogger(log), engine.WithMetrics(metrics))
	a.router = router.New(src, a.engine, a.dispatcher, log)
	return a, nil
}

// Close waits for in-flight alerts and closes the store.
func (a *app) Close() error {
	a.dispatcher.Wait()
	return a.store.Close()
}
