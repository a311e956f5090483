package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/cricpulse/internal/event"
	"github.com/pfrederiksen/cricpulse/internal/logger"
	"github.com/pfrederiksen/cricpulse/internal/match"
	"github.com/pfrederiksen/cricpulse/internal/notifier"
	"github.com/pfrederiksen/cricpulse/internal/source"
)

// Outcome is how a tick ended.
type Outcome string

const (
	// Idle means no match is selected; nothing was fetched or written.
	Idle Outcome = "idle"
	// NotFound means the selected match is not in the live list; nothing
	// was written and the last published state stands.
	NotFound Outcome = "not_found"
	// Published means a merged state was written to the store.
	Published Outcome = "published"
	// Failed means a store read or write failed.
	Failed Outcome = "failed"
	// Superseded means a tick that started later already published for
	// the same match; this tick's reads are older and were dropped.
	Superseded Outcome = "superseded"
)

// Result describes one tick.
type Result struct {
	Outcome Outcome       `json:"outcome"`
	MatchID match.ID      `json:"match_id,omitempty"`
	Events  []event.Event `json:"events,omitempty"`
	State   match.State   `json:"-"`
}

// StateStore is the part of the store the engine uses.
type StateStore interface {
	Selection(ctx context.Context) (match.ID, bool, error)
	PublishState(ctx context.Context, state match.State, at time.Time) error
}

// Alerter takes alerts without blocking.
type Alerter interface {
	Alert(alert notifier.Alert)
}

type noopAlerter struct{}

func (noopAlerter) Alert(notifier.Alert) {}

// Engine runs sync ticks. The previous-state index lives only as long as
// the Engine; a new Engine starts without a baseline, so its first tick for
// any match raises no alerts.
type Engine struct {
	source  source.Source
	store   StateStore
	alerter Alerter
	now     func() time.Time
	log     *logger.Logger
	metrics *logger.Metrics

	locks *keyedMutex
	seq   atomic.Uint64

	indexMu  sync.Mutex
	previous map[match.ID]match.State
	// claimed holds, per match, the sequence number of the newest tick
	// that reached the merge step.
	claimed map[match.ID]uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for lastUpdated.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics sets the metrics tracker.
func WithMetrics(m *logger.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine. A nil alerter discards alerts.
func New(src source.Source, st StateStore, alerter Alerter, opts ...Option) *Engine {
	if alerter == nil {
		alerter = noopAlerter{}
	}
	e := &Engine{
		source:   src,
		store:    st,
		alerter:  alerter,
		now:      time.Now,
		log:      logger.Default(),
		metrics:  logger.DefaultMetrics(),
		locks:    newKeyedMutex(),
		previous: make(map[match.ID]match.State),
		claimed:  make(map[match.ID]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(logger.Fields{"component": "engine"})
	return e
}

// RunTick performs one read, merge, compare, alert and publish cycle. It is
// safe to call concurrently. The returned error is non-nil only when the
// store failed; source failures degrade to NotFound or a summary-only state.
func (e *Engine) RunTick(ctx context.Context) (Result, error) {
	start := time.Now()
	log := e.log.With(logger.Fields{"tick": uuid.NewString()})

	res, err := e.runTick(ctx, log)

	e.metrics.IncrCounter("engine.ticks")
	e.metrics.IncrCounter("engine.ticks." + string(res.Outcome))
	e.metrics.RecordTiming("engine.tick", time.Since(start))
	if err != nil {
		log.Error("tick failed", logger.Fields{"match_id": res.MatchID.String()}, err)
	}
	return res, err
}

func (e *Engine) runTick(ctx context.Context, log *logger.Logger) (Result, error) {
	id, ok, err := e.store.Selection(ctx)
	if err != nil {
		return Result{Outcome: Failed}, fmt.Errorf("reading selection: %w", err)
	}
	if !ok {
		log.Debug("no match selected", nil)
		return Result{Outcome: Idle}, nil
	}
	log = log.With(logger.Fields{"match_id": id.String()})
	ticket := e.seq.Add(1)

	summary, found := match.FindMatch(e.source.ListLiveMatches(ctx), id)
	if !found {
		log.Warn("selected match not in live list", nil)
		return Result{Outcome: NotFound, MatchID: id}, nil
	}
	summaryState, err := summary.State()
	if err != nil {
		return Result{Outcome: Failed, MatchID: id}, fmt.Errorf("encoding summary: %w", err)
	}

	detail, ok := e.source.MatchDetail(ctx, summary.ID)
	if !ok {
		log.Info("match detail unavailable, publishing summary only", nil)
	}

	unlock := e.locks.Lock(id)
	defer unlock()

	if !e.claim(id, ticket) {
		log.Debug("newer tick already published, dropping stale reads", nil)
		return Result{Outcome: Superseded, MatchID: id}, nil
	}

	merged := match.Merge(summaryState, detail)

	var events []event.Event
	if prev, ok := e.lookup(id); ok {
		events = event.Detect(prev, merged)
	}
	for _, ev := range events {
		e.metrics.IncrCounter("engine.events." + string(ev.Kind))
		log.Info("score event", logger.Fields{"kind": string(ev.Kind), "score": ev.Current.String()})
		e.alerter.Alert(AlertFor(ev))
	}

	e.remember(id, merged, log)

	if err := e.store.PublishState(ctx, merged, e.now()); err != nil {
		return Result{Outcome: Failed, MatchID: id, Events: events}, fmt.Errorf("publishing state: %w", err)
	}
	return Result{Outcome: Published, MatchID: id, Events: events, State: merged}, nil
}

// AlertFor builds the alert for a detected event.
func AlertFor(ev event.Event) notifier.Alert {
	return notifier.Alert{
		Title:    ev.Title(),
		Message:  ev.Message(),
		Severity: event.Severity,
	}
}

// claim records ticket as the newest tick for id. It reports false when a
// tick that started later has already claimed id. Callers hold the lock for id.
func (e *Engine) claim(id match.ID, ticket uint64) bool {
	e.indexMu.Lock()
	defer e.indexMu.Unlock()
	if ticket < e.claimed[id] {
		return false
	}
	e.claimed[id] = ticket
	return true
}

func (e *Engine) lookup(id match.ID) (match.State, bool) {
	e.indexMu.Lock()
	defer e.indexMu.Unlock()
	st, ok := e.previous[id]
	return st, ok
}

// remember replaces the index entry for id with an independent copy of
// state. If the copy fails the entry is dropped, so the next tick for id
// has no baseline instead of a stale one.
func (e *Engine) remember(id match.ID, state match.State, log *logger.Logger) {
	snap, err := state.Snapshot()

	e.indexMu.Lock()
	defer e.indexMu.Unlock()
	if err != nil {
		delete(e.previous, id)
		e.metrics.IncrCounter("engine.snapshot.failed")
		log.Error("snapshotting state failed", nil, err)
		return
	}
	e.previous[id] = snap
}
