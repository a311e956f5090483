package router

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pfrederiksen/cricpulse/internal/engine"
	"github.com/pfrederiksen/cricpulse/internal/logger"
	"github.com/pfrederiksen/cricpulse/internal/match"
	"github.com/pfrederiksen/cricpulse/internal/notifier"
)

type stubLister struct {
	matches []match.Summary
}

func (s stubLister) ListLiveMatches(context.Context) []match.Summary { return s.matches }

type stubSyncer struct {
	result engine.Result
	err    error
	calls  int
}

func (s *stubSyncer) RunTick(context.Context) (engine.Result, error) {
	s.calls++
	return s.result, s.err
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []notifier.Alert
}

func (r *recordingAlerter) Alert(a notifier.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

func quietLogger() *logger.Logger {
	return logger.New(logger.LevelError, &bytes.Buffer{})
}

func await[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := Await(ctx, ch)
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	return v
}

func TestListLiveMatches(t *testing.T) {
	tests := []struct {
		name    string
		matches []match.Summary
		want    int
	}{
		{"two matches", []match.Summary{{ID: "1"}, {ID: "2"}}, 2},
		{"nil list becomes empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(stubLister{matches: tt.matches}, &stubSyncer{}, nil, quietLogger())
			ch := r.ListLiveMatches(context.Background())

			resp := await(t, ch)
			if resp.Matches == nil || len(resp.Matches) != tt.want {
				t.Errorf("Matches = %v, want %d entries", resp.Matches, tt.want)
			}
			if _, ok := <-ch; ok {
				t.Error("channel yielded a second value")
			}
		})
	}
}

func TestForceSync(t *testing.T) {
	tests := []struct {
		name        string
		result      engine.Result
		err         error
		wantSuccess bool
		wantOutcome engine.Outcome
	}{
		{"published", engine.Result{Outcome: engine.Published}, nil, true, engine.Published},
		{"idle still completes", engine.Result{Outcome: engine.Idle}, nil, true, engine.Idle},
		{"store failure", engine.Result{Outcome: engine.Failed}, errors.New("disk full"), false, engine.Failed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := &stubSyncer{result: tt.result, err: tt.err}
			r := New(stubLister{}, syncer, nil, quietLogger())

			ack := await(t, r.ForceSync(context.Background()))
			if ack.Success != tt.wantSuccess || ack.Outcome != tt.wantOutcome {
				t.Errorf("Ack = %+v, want success %v outcome %s", ack, tt.wantSuccess, tt.wantOutcome)
			}
			if tt.err != nil && ack.Error != tt.err.Error() {
				t.Errorf("Ack.Error = %q", ack.Error)
			}
			if syncer.calls != 1 {
				t.Errorf("RunTick calls = %d, want 1", syncer.calls)
			}
		})
	}
}

func TestSendTestAlert(t *testing.T) {
	alerter := &recordingAlerter{}
	r := New(stubLister{}, &stubSyncer{}, alerter, quietLogger())

	ack := await(t, r.SendTestAlert(context.Background()))
	if !ack.Success {
		t.Errorf("Ack = %+v, want success", ack)
	}

	want := notifier.Alert{Title: "Sixer!", Message: "TEST 100/0 (10.0) - 6 Runs", Severity: 2}
	if len(alerter.alerts) != 1 || alerter.alerts[0] != want {
		t.Errorf("alerts = %+v, want [%+v]", alerter.alerts, want)
	}
}

func TestSendTestAlert_NoAlerter(t *testing.T) {
	r := New(stubLister{}, &stubSyncer{}, nil, quietLogger())
	if ack := await(t, r.SendTestAlert(context.Background())); ack.Success {
		t.Error("SendTestAlert() without sinks reported success")
	}
}

func TestHandle(t *testing.T) {
	alerter := &recordingAlerter{}
	syncer := &stubSyncer{result: engine.Result{Outcome: engine.NotFound}}
	r := New(stubLister{matches: []match.Summary{{ID: "42"}}}, syncer, alerter, quietLogger())

	tests := []struct {
		req         Request
		wantSuccess bool
		check       func(t *testing.T, resp Response)
	}{
		{
			req:         Request{Type: GetLiveMatches},
			wantSuccess: true,
			check: func(t *testing.T, resp Response) {
				if len(resp.Matches) != 1 || resp.Matches[0].ID != "42" {
					t.Errorf("Matches = %v", resp.Matches)
				}
			},
		},
		{
			req:         Request{Type: ForceUpdate},
			wantSuccess: true,
			check: func(t *testing.T, resp Response) {
				if resp.Outcome != engine.NotFound {
					t.Errorf("Outcome = %s", resp.Outcome)
				}
			},
		},
		{
			req:         Request{Type: TestNotification},
			wantSuccess: true,
		},
		{
			req:         Request{Type: "REBOOT"},
			wantSuccess: false,
			check: func(t *testing.T, resp Response) {
				if resp.Error == "" {
					t.Error("unknown request type produced no error")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.req.Type), func(t *testing.T) {
			resp := await(t, r.Handle(context.Background(), tt.req))
			if resp.Type != tt.req.Type {
				t.Errorf("Type = %s, want %s", resp.Type, tt.req.Type)
			}
			if resp.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v (%s)", resp.Success, tt.wantSuccess, resp.Error)
			}
			if tt.check != nil {
				tt.check(t, resp)
			}
		})
	}
}

func TestAwait_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Await(ctx, make(chan Ack)); !errors.Is(err, context.Canceled) {
		t.Errorf("Await() error = %v, want context.Canceled", err)
	}
}

func TestAwait_ClosedChannel(t *testing.T) {
	ch := make(chan Ack)
	close(ch)
	if _, err := Await(context.Background(), ch); err == nil {
		t.Error("Await() on closed channel error = nil")
	}
}
