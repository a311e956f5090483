package notifier

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pfrederiksen/cricpulse/internal/logger"
)

type recordingSink struct {
	name  string
	err   error
	block chan struct{}
	panic bool

	mu     sync.Mutex
	alerts []Alert
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Notify(ctx context.Context, alert Alert) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.panic {
		panic("sink exploded")
	}
	s.mu.Lock()
	s.alerts = append(s.alerts, alert)
	s.mu.Unlock()
	return s.err
}

func (s *recordingSink) received() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Alert(nil), s.alerts...)
}

func newTestDispatcher(sinks []Notifier, opts ...DispatcherOption) (*Dispatcher, *bytes.Buffer, *logger.Metrics) {
	var logs bytes.Buffer
	metrics := logger.NewMetrics()
	opts = append([]DispatcherOption{
		WithLogger(logger.New(logger.LevelDebug, &logs)),
		WithMetrics(metrics),
	}, opts...)
	return NewDispatcher(sinks, opts...), &logs, metrics
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	d, _, metrics := newTestDispatcher([]Notifier{a, nil, b})

	if got := d.Sinks(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Sinks() = %v", got)
	}

	alert := Alert{Title: "Boundary!", Message: "IND 124/2 (15.5) - 4 Runs", Severity: 2}
	d.Alert(alert)
	d.Wait()

	for _, s := range []*recordingSink{a, b} {
		got := s.received()
		if len(got) != 1 || got[0] != alert {
			t.Errorf("sink %s received %v", s.name, got)
		}
	}
	if metrics.Counter("notifier.a.sent") != 1 || metrics.Counter("notifier.b.sent") != 1 {
		t.Errorf("sent counters = %d, %d", metrics.Counter("notifier.a.sent"), metrics.Counter("notifier.b.sent"))
	}
}

func TestDispatcher_AlertDoesNotBlock(t *testing.T) {
	slow := &recordingSink{name: "slow", block: make(chan struct{})}
	d, _, _ := newTestDispatcher([]Notifier{slow})

	returned := make(chan struct{})
	go func() {
		d.Alert(Alert{Title: "Sixer!"})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Alert() blocked on a slow sink")
	}

	close(slow.block)
	d.Wait()
	if len(slow.received()) != 1 {
		t.Error("slow sink never received the alert")
	}
}

func TestDispatcher_SwallowsFailures(t *testing.T) {
	failing := &recordingSink{name: "failing", err: errors.New("channel unavailable")}
	panicking := &recordingSink{name: "panicking", panic: true}
	healthy := &recordingSink{name: "healthy"}
	d, logs, metrics := newTestDispatcher([]Notifier{failing, panicking, healthy})

	d.Alert(Alert{Title: "Wicket Fallen!"})
	d.Wait()

	if len(healthy.received()) != 1 {
		t.Error("healthy sink affected by failing siblings")
	}
	if metrics.Counter("notifier.failing.failed") != 1 {
		t.Errorf("failing.failed = %d, want 1", metrics.Counter("notifier.failing.failed"))
	}
	if metrics.Counter("notifier.panicking.failed") != 1 {
		t.Errorf("panicking.failed = %d, want 1", metrics.Counter("notifier.panicking.failed"))
	}
	if !strings.Contains(logs.String(), "channel unavailable") || !strings.Contains(logs.String(), "sink panicked") {
		t.Errorf("failures not logged:\n%s", logs.String())
	}
}

func TestDispatcher_SinkTimeout(t *testing.T) {
	stuck := &recordingSink{name: "stuck", block: make(chan struct{})}
	d, _, metrics := newTestDispatcher([]Notifier{stuck}, WithSinkTimeout(20*time.Millisecond))

	d.Alert(Alert{Title: "Sixer!"})

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sink timeout not enforced")
	}
	if metrics.Counter("notifier.stuck.failed") != 1 {
		t.Errorf("stuck.failed = %d, want 1", metrics.Counter("notifier.stuck.failed"))
	}
}

func TestDispatcher_NoSinks(t *testing.T) {
	d, _, metrics := newTestDispatcher(nil)
	d.Alert(Alert{Title: "Boundary!"})
	d.Wait()
	if metrics.Counter("notifier.alerts") != 1 {
		t.Errorf("alerts = %d, want 1", metrics.Counter("notifier.alerts"))
	}
}
