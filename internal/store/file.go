package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// snapshotName is the file the File backend keeps its data in.
const snapshotName = "store.json"

// File is a Backend persisted as a single JSON snapshot file. The file is
// re-read on every call, so a reader in another process sees new writes.
// Writers in different processes are not coordinated; the last one to
// rename its snapshot into place wins.
type File struct {
	dataDir string

	mu     sync.Mutex
	closed bool
}

type fileSnapshot struct {
	Revision  int64                `json:"revision"`
	UpdatedAt string               `json:"updated_at"`
	Entries   map[string]fileEntry `json:"entries"`
}

type fileEntry struct {
	Value    json.RawMessage `json:"value,omitempty"`
	Bytes    []byte          `json:"bytes,omitempty"`
	Deleted  bool            `json:"deleted,omitempty"`
	Revision int64           `json:"revision"`
}

// NewFile creates a File backend that stores its snapshot in dataDir.
// A leading ~/ is expanded and the directory is created if missing.
func NewFile(dataDir string) (*File, error) {
	if strings.TrimSpace(dataDir) == "" {
		return nil, fmt.Errorf("file store needs a data directory")
	}

	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &File{dataDir: dataDir}, nil
}

// Path returns the snapshot file location.
func (f *File) Path() string {
	return filepath.Join(f.dataDir, snapshotName)
}

// Get reads key from the snapshot on disk.
func (f *File) Get(_ context.Context, key string) (Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return Entry{}, false, ErrClosed
	}
	snap, err := f.load()
	if err != nil {
		return Entry{}, false, err
	}
	fe, ok := snap.Entries[key]
	if !ok || fe.Deleted {
		return Entry{}, false, nil
	}
	return fe.entry(key), true, nil
}

// Put loads the snapshot, applies values under a new revision and writes
// it back through a temp file and rename.
func (f *File) Put(_ context.Context, values map[string][]byte) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrClosed
	}
	snap, err := f.load()
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return snap.Revision, nil
	}

	snap.Revision++
	for k, v := range values {
		snap.Entries[k] = newFileEntry(v, snap.Revision)
	}
	if err := f.save(snap); err != nil {
		return 0, err
	}
	return snap.Revision, nil
}

// ChangesSince returns entries newer than revision.
func (f *File) ChangesSince(_ context.Context, revision int64) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}
	snap, err := f.load()
	if err != nil {
		return nil, err
	}
	var changes []Entry
	for k, fe := range snap.Entries {
		if fe.Revision > revision {
			changes = append(changes, fe.entry(k))
		}
	}
	sortEntries(changes)
	return changes, nil
}

// Close marks the backend closed. The snapshot file is left in place.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// load reads the snapshot from disk. A missing file is an empty store.
func (f *File) load() (*fileSnapshot, error) {
	data, err := os.ReadFile(f.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return &fileSnapshot{Entries: make(map[string]fileEntry)}, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap fileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if snap.Entries == nil {
		snap.Entries = make(map[string]fileEntry)
	}
	return &snap, nil
}

func (f *File) save(snap *fileSnapshot) error {
	snap.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(f.dataDir, snapshotName+".*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path()); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// newFileEntry keeps JSON values readable in the snapshot and falls back to
// base64 for anything else.
func newFileEntry(v []byte, revision int64) fileEntry {
	switch {
	case v == nil:
		return fileEntry{Deleted: true, Revision: revision}
	case json.Valid(v):
		return fileEntry{Value: append(json.RawMessage(nil), v...), Revision: revision}
	default:
		return fileEntry{Bytes: append([]byte{}, v...), Revision: revision}
	}
}

func (fe fileEntry) entry(key string) Entry {
	e := Entry{Key: key, Revision: fe.Revision}
	switch {
	case fe.Deleted:
	case fe.Value != nil:
		// MarshalIndent re-indents raw values; hand them back compact.
		var buf bytes.Buffer
		if err := json.Compact(&buf, fe.Value); err != nil {
			e.Value = []byte(fe.Value)
		} else {
			e.Value = buf.Bytes()
		}
	default:
		e.Value = fe.Bytes
		if e.Value == nil {
			e.Value = []byte{}
		}
	}
	return e
}
