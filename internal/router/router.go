package router

import (
	"context"
	"fmt"

	"github.com/pfrederiksen/cricpulse/internal/engine"
	"github.com/pfrederiksen/cricpulse/internal/event"
	"github.com/pfrederiksen/cricpulse/internal/logger"
	"github.com/pfrederiksen/cricpulse/internal/match"
)

// RequestType names an ad-hoc command.
type RequestType string

const (
	GetLiveMatches   RequestType = "GET_LIVE_MATCHES"
	ForceUpdate      RequestType = "FORCE_UPDATE"
	TestNotification RequestType = "TEST_NOTIFICATION"
)

// Request is an ad-hoc command from a client.
type Request struct {
	Type RequestType `json:"type"`
}

// Response answers one Request. Matches is set for GetLiveMatches; Success
// for the others.
type Response struct {
	Type    RequestType     `json:"type"`
	Matches []match.Summary `json:"matches,omitempty"`
	Success bool            `json:"success"`
	Outcome engine.Outcome  `json:"outcome,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// MatchesResponse answers ListLiveMatches.
type MatchesResponse struct {
	Matches []match.Summary `json:"matches"`
}

// Ack answers a command that only reports success.
type Ack struct {
	Success bool           `json:"success"`
	Outcome engine.Outcome `json:"outcome,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Lister lists live matches.
type Lister interface {
	ListLiveMatches(ctx context.Context) []match.Summary
}

// Syncer runs one sync tick.
type Syncer interface {
	RunTick(ctx context.Context) (engine.Result, error)
}

// Router serves ad-hoc commands. Every command runs in the background and
// answers on a buffered channel that yields exactly one value and is then
// closed, so an abandoned caller never blocks the command.
type Router struct {
	source  Lister
	syncer  Syncer
	alerter engine.Alerter
	log     *logger.Logger
}

// New creates a Router.
func New(source Lister, syncer Syncer, alerter engine.Alerter, log *logger.Logger) *Router {
	if log == nil {
		log = logger.Default()
	}
	return &Router{
		source:  source,
		syncer:  syncer,
		alerter: alerter,
		log:     log.With(logger.Fields{"component": "router"}),
	}
}

// ListLiveMatches fetches the live match list.
func (r *Router) ListLiveMatches(ctx context.Context) <-chan MatchesResponse {
	out := make(chan MatchesResponse, 1)
	go func() {
		defer close(out)
		matches := r.source.ListLiveMatches(ctx)
		if matches == nil {
			matches = []match.Summary{}
		}
		out <- MatchesResponse{Matches: matches}
	}()
	return out
}

// ForceSync runs one tick now, alongside any timer tick in flight.
func (r *Router) ForceSync(ctx context.Context) <-chan Ack {
	out := make(chan Ack, 1)
	go func() {
		defer close(out)
		r.log.Info("forced sync requested", nil)
		res, err := r.syncer.RunTick(ctx)
		ack := Ack{Success: err == nil, Outcome: res.Outcome}
		if err != nil {
			ack.Error = err.Error()
		}
		out <- ack
	}()
	return out
}

// TestAlert is the synthetic alert sent by SendTestAlert.
func TestAlert() event.Event {
	return event.Event{
		Kind:        event.Six,
		MatchID:     "test",
		Previous:    match.Score{Runs: 94, Wickets: 0},
		Current:     match.Score{Runs: 100, Wickets: 0},
		BattingTeam: "TEST",
		Overs:       "10.0",
	}
}

// SendTestAlert hands a synthetic six to the alert sinks. Delivery is
// best-effort, so success means the alert was handed over.
func (r *Router) SendTestAlert(ctx context.Context) <-chan Ack {
	out := make(chan Ack, 1)
	go func() {
		defer close(out)
		if r.alerter == nil {
			out <- Ack{Error: "no alert sinks configured"}
			return
		}
		r.log.Info("test alert requested", nil)
		r.alerter.Alert(engine.AlertFor(TestAlert()))
		out <- Ack{Success: true}
	}()
	return out
}

// Handle dispatches a typed request.
func (r *Router) Handle(ctx context.Context, req Request) <-chan Response {
	out := make(chan Response, 1)
	go func() {
		defer close(out)
		resp := Response{Type: req.Type}
		switch req.Type {
		case GetLiveMatches:
			m := <-r.ListLiveMatches(ctx)
			resp.Matches = m.Matches
			resp.Success = true
		case ForceUpdate:
			ack := <-r.ForceSync(ctx)
			resp.Success, resp.Outcome, resp.Error = ack.Success, ack.Outcome, ack.Error
		case TestNotification:
			ack := <-r.SendTestAlert(ctx)
			resp.Success, resp.Error = ack.Success, ack.Error
		default:
			resp.Error = fmt.Sprintf("unknown request type %q", req.Type)
		}
		out <- resp
	}()
	return out
}

// Await waits for a single response or for ctx to end.
func Await[T any](ctx context.Context, ch <-chan T) (T, error) {
	select {
	case v, ok := <-ch:
		if !ok {
			var zero T
			return zero, fmt.Errorf("response channel closed without a value")
		}
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
