package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// writeLockID is the advisory lock key taken by every Postgres write, so
// revisions become visible in commit order.
const writeLockID = 0x637269637075 // "cricpu"

// Postgres is a Backend on a shared PostgreSQL database.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database at url, checks the connection and
// creates the schema if needed.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("postgres store needs a connection URL")
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrating postgres: %w", err)
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cricpulse_kv (
			key TEXT PRIMARY KEY,
			value BYTEA,
			revision BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cricpulse_kv_revision ON cricpulse_kv(revision)`,
		`CREATE SEQUENCE IF NOT EXISTS cricpulse_kv_revision`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the live entry for key.
func (p *Postgres) Get(ctx context.Context, key string) (Entry, bool, error) {
	e := Entry{Key: key}
	err := p.pool.QueryRow(ctx,
		`SELECT value, revision FROM cricpulse_kv WHERE key = $1`, key).Scan(&e.Value, &e.Revision)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, p.wrap("reading key", err)
	}
	if e.Deleted() {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Put writes values in one transaction under a new revision.
func (p *Postgres) Put(ctx context.Context, values map[string][]byte) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, p.wrap("beginning write", err)
	}
	defer func() {
		// No-op once committed.
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(writeLockID)); err != nil {
		return 0, p.wrap("locking store", err)
	}

	var revision int64
	if len(values) == 0 {
		err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(revision), 0) FROM cricpulse_kv`).Scan(&revision)
		if err != nil {
			return 0, p.wrap("reading revision", err)
		}
		return revision, nil
	}
	if err := tx.QueryRow(ctx, `SELECT nextval('cricpulse_kv_revision')`).Scan(&revision); err != nil {
		return 0, p.wrap("bumping revision", err)
	}

	batch := &pgx.Batch{}
	for _, k := range sortedKeys(values) {
		batch.Queue(`INSERT INTO cricpulse_kv (key, value, revision) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, revision = EXCLUDED.revision`,
			k, values[k], revision)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, p.wrap("writing keys", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, p.wrap("committing write", err)
	}
	return revision, nil
}

// ChangesSince returns entries newer than revision.
func (p *Postgres) ChangesSince(ctx context.Context, revision int64) ([]Entry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT key, value, revision FROM cricpulse_kv WHERE revision > $1 ORDER BY revision, key`, revision)
	if err != nil {
		return nil, p.wrap("listing changes", err)
	}
	defer rows.Close()

	var changes []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.Revision); err != nil {
			return nil, p.wrap("scanning change", err)
		}
		changes = append(changes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, p.wrap("listing changes", err)
	}
	return changes, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) wrap(op string, err error) error {
	if strings.Contains(err.Error(), "closed pool") {
		return ErrClosed
	}
	return fmt.Errorf("%s: %w", op, err)
}
