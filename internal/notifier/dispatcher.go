package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pfrederiksen/cricpulse/internal/logger"
)

// DefaultSinkTimeout bounds a single sink delivery.
const DefaultSinkTimeout = 10 * time.Second

// Dispatcher fans alerts out to every sink without blocking the caller.
type Dispatcher struct {
	sinks   []Notifier
	timeout time.Duration
	log     *logger.Logger
	metrics *logger.Metrics

	wg sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSinkTimeout bounds each sink delivery. Non-positive values keep the
// default.
func WithSinkTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *logger.Logger) DispatcherOption {
	return func(disp *Dispatcher) { disp.log = l }
}

// WithMetrics sets the metrics tracker.
func WithMetrics(m *logger.Metrics) DispatcherOption {
	return func(disp *Dispatcher) { disp.metrics = m }
}

// NewDispatcher creates a dispatcher over sinks. Nil sinks are skipped.
func NewDispatcher(sinks []Notifier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		timeout: DefaultSinkTimeout,
		log:     logger.Default(),
		metrics: logger.DefaultMetrics(),
	}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With(logger.Fields{"component": "notifier"})
	return d
}

// Sinks returns the names of the configured sinks.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, sinkName(s))
	}
	return names
}

// Alert hands the alert to every sink in the background and returns at once.
func (d *Dispatcher) Alert(alert Alert) {
	d.metrics.IncrCounter("notifier.alerts")
	for _, sink := range d.sinks {
		d.wg.Add(1)
		go d.deliver(sink, alert)
	}
}

// Wait blocks until every delivery started so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(sink Notifier, alert Alert) {
	defer d.wg.Done()
	name := sinkName(sink)

	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	err := safeNotify(ctx, sink, alert)
	d.metrics.RecordTiming("notifier."+name, time.Since(start))
	if err != nil {
		d.metrics.IncrCounter("notifier." + name + ".failed")
		d.log.Error("alert delivery failed", logger.Fields{"sink": name, "title": alert.Title}, err)
		return
	}
	d.metrics.IncrCounter("notifier." + name + ".sent")
	d.log.Debug("alert delivered", logger.Fields{"sink": name, "title": alert.Title})
}

// safeNotify turns a panicking sink into an error.
func safeNotify(ctx context.Context, sink Notifier, alert Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	return sink.Notify(ctx, alert)
}
