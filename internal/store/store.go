package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/cricpulse/internal/logger"
)

// DefaultWatchInterval is how often Watch polls the backend for writes made
// by other processes.
const DefaultWatchInterval = time.Second

// Store wraps a Backend with change notification.
type Store struct {
	backend Backend
	log     *logger.Logger
	metrics *logger.Metrics

	mu        sync.RWMutex
	subs      map[string]*Subscription
	delivered map[string]int64 // last revision fanned out per key
	closed    bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithMetrics sets the metrics tracker.
func WithMetrics(m *logger.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New wraps backend. The Store owns it and closes it on Close.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		log:       logger.Default(),
		metrics:   logger.DefaultMetrics(),
		subs:      make(map[string]*Subscription),
		delivered: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Fields{"component": "store"})
	return s
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("getting %s: %w", key, err)
	}
	return e.Value, ok, nil
}

// Put writes values atomically and notifies subscribers of each key.
func (s *Store) Put(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	rev, err := s.backend.Put(ctx, values)
	if err != nil {
		return fmt.Errorf("writing %d keys: %w", len(values), err)
	}
	s.metrics.IncrCounter("store.writes")

	changes := make([]Entry, 0, len(values))
	for _, k := range sortedKeys(values) {
		changes = append(changes, Entry{Key: k, Value: values[k], Revision: rev})
	}
	s.fanOut(changes)
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.Put(ctx, map[string][]byte{key: nil})
}

// Close closes all subscriptions and the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subs
	s.subs = make(map[string]*Subscription)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.closeChannel()
	}
	return s.backend.Close()
}

// Subscription receives store changes. Delivery never blocks the writer:
// when C is full the change is dropped and counted.
type Subscription struct {
	ID string
	C  <-chan Entry

	ch      chan Entry
	store   *Store
	once    sync.Once
	dropped atomic.Uint64
}

// Subscribe registers a subscriber with a channel of the given buffer size.
// On a closed Store the returned subscription's channel is already closed.
func (s *Store) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Entry, buffer)
	sub := &Subscription{ID: uuid.NewString(), C: ch, ch: ch, store: s}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		sub.closeChannel()
		return sub
	}
	s.subs[sub.ID] = sub
	s.metrics.SetGauge("store.subscribers", float64(len(s.subs)))
	return sub
}

// Dropped returns how many changes were discarded because C was full.
func (sub *Subscription) Dropped() uint64 {
	return sub.dropped.Load()
}

// Close unregisters the subscription and closes C.
func (sub *Subscription) Close() {
	s := sub.store
	s.mu.Lock()
	if _, ok := s.subs[sub.ID]; ok {
		delete(s.subs, sub.ID)
		s.metrics.SetGauge("store.subscribers", float64(len(s.subs)))
	}
	s.mu.Unlock()
	sub.closeChannel()
}

func (sub *Subscription) closeChannel() {
	sub.once.Do(func() { close(sub.ch) })
}

// fanOut delivers changes not yet seen for their key. Local writes and
// Watch can report the same revision; each is delivered once.
func (s *Store) fanOut(changes []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for _, c := range changes {
		if c.Revision <= s.delivered[c.Key] {
			continue
		}
		s.delivered[c.Key] = c.Revision
		for _, sub := range s.subs {
			select {
			case sub.ch <- cloneEntry(c):
			default:
				sub.dropped.Add(1)
				s.metrics.IncrCounter("store.notifications.dropped")
			}
		}
	}
}

// Watch polls the backend for changes written by other processes and fans
// them out to subscribers. It returns when ctx is done or the backend closes.
func (s *Store) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	cursor, err := s.latestRevision(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		changes, err := s.backend.ChangesSince(ctx, cursor)
		if errors.Is(err, ErrClosed) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.metrics.IncrCounter("store.watch.failed")
			s.log.Warn("polling store changes failed", logger.Fields{"revision": cursor, "error": err.Error()})
			continue
		}
		if len(changes) == 0 {
			continue
		}
		cursor = changes[len(changes)-1].Revision
		s.fanOut(changes)
	}
}

func (s *Store) latestRevision(ctx context.Context) (int64, error) {
	changes, err := s.backend.ChangesSince(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("reading store revision: %w", err)
	}
	var rev int64
	for _, c := range changes {
		if c.Revision > rev {
			rev = c.Revision
		}
	}
	s.mu.Lock()
	for _, c := range changes {
		if c.Revision > s.delivered[c.Key] {
			s.delivered[c.Key] = c.Revision
		}
	}
	s.mu.Unlock()
	return rev, nil
}

// Entries returns the live entries for keys, skipping keys with no value.
func (s *Store) Entries(ctx context.Context, keys ...string) ([]Entry, error) {
	var entries []Entry
	for _, k := range keys {
		e, ok, err := s.backend.Get(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("getting %s: %w", k, err)
		}
		if ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
