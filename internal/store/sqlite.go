package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SQLite is a Backend on a SQLite database file. Several processes may open
// the same file; writes are serialized by SQLite's own locking.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies migrations.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite store needs a database path")
	}
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One connection keeps transactions in this process strictly serial and
	// keeps a ":memory:" database alive across calls.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating sqlite: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB,
			revision INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_kv_revision ON kv(revision);`,
		`CREATE TABLE IF NOT EXISTS kv_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			revision INTEGER NOT NULL
		);`,
		`INSERT OR IGNORE INTO kv_meta (id, revision) VALUES (1, 0);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the live entry for key.
func (s *SQLite) Get(ctx context.Context, key string) (Entry, bool, error) {
	e := Entry{Key: key}
	err := s.db.QueryRowContext(ctx,
		`SELECT value, revision FROM kv WHERE key = ?`, key).Scan(&e.Value, &e.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, s.wrap("reading key", err)
	}
	if e.Deleted() {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Put writes values in one transaction under a new revision.
func (s *SQLite) Put(ctx context.Context, values map[string][]byte) (revision int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.wrap("beginning write", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if len(values) == 0 {
		if err = tx.QueryRowContext(ctx, `SELECT revision FROM kv_meta WHERE id = 1`).Scan(&revision); err != nil {
			return 0, s.wrap("reading revision", err)
		}
		return revision, tx.Commit()
	}

	if _, err = tx.ExecContext(ctx, `UPDATE kv_meta SET revision = revision + 1 WHERE id = 1`); err != nil {
		return 0, s.wrap("bumping revision", err)
	}
	if err = tx.QueryRowContext(ctx, `SELECT revision FROM kv_meta WHERE id = 1`).Scan(&revision); err != nil {
		return 0, s.wrap("reading revision", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO kv (key, value, revision) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, revision = excluded.revision`)
	if err != nil {
		return 0, s.wrap("preparing write", err)
	}
	defer stmt.Close()
	for _, k := range sortedKeys(values) {
		var value interface{}
		if values[k] != nil {
			value = values[k]
		}
		if _, err = stmt.ExecContext(ctx, k, value, revision); err != nil {
			return 0, s.wrap("writing key "+k, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, s.wrap("committing write", err)
	}
	return revision, nil
}

// ChangesSince returns entries newer than revision.
func (s *SQLite) ChangesSince(ctx context.Context, revision int64) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, revision FROM kv WHERE revision > ? ORDER BY revision, key`, revision)
	if err != nil {
		return nil, s.wrap("listing changes", err)
	}
	defer rows.Close()

	var changes []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.Revision); err != nil {
			return nil, s.wrap("scanning change", err)
		}
		changes = append(changes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("listing changes", err)
	}
	return changes, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) wrap(op string, err error) error {
	if strings.Contains(err.Error(), "database is closed") {
		return ErrClosed
	}
	return fmt.Errorf("%s: %w", op, err)
}
