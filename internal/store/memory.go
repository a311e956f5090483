package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is a process-local Backend.
type Memory struct {
	mu       sync.RWMutex
	revision int64
	entries  map[string]Entry
	closed   bool
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

// Get returns a copy of the live entry for key.
func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Entry{}, false, ErrClosed
	}
	e, ok := m.entries[key]
	if !ok || e.Deleted() {
		return Entry{}, false, nil
	}
	return cloneEntry(e), true, nil
}

// Put stores copies of values under one new revision.
func (m *Memory) Put(_ context.Context, values map[string][]byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	if len(values) == 0 {
		return m.revision, nil
	}
	m.revision++
	for k, v := range values {
		m.entries[k] = cloneEntry(Entry{Key: k, Value: v, Revision: m.revision})
	}
	return m.revision, nil
}

// ChangesSince returns entries newer than revision.
func (m *Memory) ChangesSince(_ context.Context, revision int64) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	var changes []Entry
	for _, e := range m.entries {
		if e.Revision > revision {
			changes = append(changes, cloneEntry(e))
		}
	}
	sortEntries(changes)
	return changes, nil
}

// Close marks the backend closed. Further calls return ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func cloneEntry(e Entry) Entry {
	if e.Value != nil {
		v := make([]byte, len(e.Value))
		copy(v, e.Value)
		e.Value = v
	}
	return e
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Revision != entries[j].Revision {
			return entries[i].Revision < entries[j].Revision
		}
		return entries[i].Key < entries[j].Key
	})
}
