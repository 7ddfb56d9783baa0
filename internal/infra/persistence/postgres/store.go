// Package postgres provides a Postgres-backed table repository that mirrors
// the sqlite snapshotting semantics over a server database.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"draftstore/internal/infra/persistence/memory"
	"draftstore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/draftstore?sslmode=disable"
)

// sqlOpen is a test seam.
var sqlOpen = sql.Open

// Store persists table snapshots to Postgres as JSON payloads keyed by bucket.
type Store[K comparable, V any] struct {
	*memory.Store[K, V]
	db        *sql.DB
	mu        sync.Mutex
	bucket    string
	committed []domain.Record[K, V] // last durably saved snapshot
}

var _ domain.TableRepository[string, int] = (*Store[string, int])(nil)

// New opens a Postgres-backed store using the provided DSN (falls back to a
// local default), ensures the snapshot table exists, and hydrates the bucket.
func New[K comparable, V any](ctx context.Context, dsn, bucket string, clone func(V) V) (*Store[K, V], error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	if bucket == "" {
		return nil, errors.New("postgres: bucket name required")
	}
	db, err := sqlOpen(defaultDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BYTEA NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store[K, V]{Store: memory.New[K](clone), db: db, bucket: bucket}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store[K, V]) load(ctx context.Context) error {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = $1`, s.bucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	var records []domain.Record[K, V]
	if err := json.Unmarshal(payload, &records); err != nil {
		return fmt.Errorf("decode %s: %w", s.bucket, err)
	}
	s.ImportState(records)
	s.committed = records
	return nil
}

// Save snapshots the bucket to the database. A failed commit rolls the staged
// records back to the last durable snapshot, so the caller can replay the
// same Add/Update/Remove operations and retry.
func (s *Store[K, V]) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.ExportState()
	payload, err := json.Marshal(state)
	if err != nil {
		s.ImportState(s.committed)
		return fmt.Errorf("encode %s: %w", s.bucket, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO state (bucket, payload) VALUES ($1, $2)
		ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload`, s.bucket, payload)
	if err != nil {
		s.ImportState(s.committed)
		return fmt.Errorf("persist %s: %w", s.bucket, err)
	}
	s.committed = state
	return nil
}

// DB exposes the underlying handle for integration testing hooks.
func (s *Store[K, V]) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store[K, V]) Close() error { return s.db.Close() }
