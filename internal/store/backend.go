package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("store is closed")

// Entry is one key's value at a revision. A nil Value marks a deleted key.
type Entry struct {
	Key      string
	Value    []byte
	Revision int64
}

// Deleted reports whether the entry is a tombstone.
func (e Entry) Deleted() bool { return e.Value == nil }

// Backend is a key-value store with a store-wide revision counter.
type Backend interface {
	// Get returns the live entry for key. ok is false when the key was never
	// written or has been deleted.
	Get(ctx context.Context, key string) (e Entry, ok bool, err error)

	// Put writes all values in one atomic step under a single new revision
	// and returns that revision. A nil value deletes the key.
	Put(ctx context.Context, values map[string][]byte) (revision int64, err error)

	// ChangesSince returns entries (tombstones included) written after
	// revision, ordered by revision then key.
	ChangesSince(ctx context.Context, revision int64) ([]Entry, error)

	Close() error
}

// Drivers lists the backend names accepted by Open.
var Drivers = []string{"memory", "file", "sqlite", "postgres"}

// Open creates the backend named by driver. dsn is a directory for file, a
// database path for sqlite, a connection URL for postgres and is ignored
// for memory.
func Open(ctx context.Context, driver, dsn string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "memory", "":
		return NewMemory(), nil
	case "file":
		b, err := NewFile(dsn)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "sqlite":
		b, err := OpenSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "postgres", "postgresql":
		b, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q (want one of %s)", driver, strings.Join(Drivers, ", "))
	}
}

func sortedKeys(values map[string][]byte) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
