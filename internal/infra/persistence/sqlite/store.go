// Package sqlite provides a SQLite-backed table repository. Mutations are
// staged through the embedded in-memory store; Save snapshots the full bucket
// to a single table as JSON. A failed save leaves the previous durable
// snapshot intact and restores the staged records to it, so the caller can
// replay its pending operations.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"draftstore/internal/infra/persistence/memory"
	"draftstore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Store persists table snapshots to SQLite as JSON payloads keyed by bucket.
type Store[K comparable, V any] struct {
	*memory.Store[K, V]
	db        *sql.DB
	mu        sync.Mutex
	bucket    string
	committed []domain.Record[K, V] // last durably saved snapshot
}

var _ domain.TableRepository[string, int] = (*Store[string, int])(nil)

// New opens (or creates) the database at path and hydrates the bucket's
// records into the embedded memory store.
func New[K comparable, V any](path, bucket string, clone func(V) V) (*Store[K, V], error) {
	if path == "" {
		path = "draftstore.db"
	}
	if bucket == "" {
		return nil, errors.New("sqlite: bucket name required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store[K, V]{Store: memory.New[K](clone), db: db, bucket: bucket}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store[K, V]) load() error {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM state WHERE bucket = ?`, s.bucket).Scan(&payload)
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
	_, err = s.db.ExecContext(ctx, `INSERT INTO state (bucket, payload) VALUES (?, ?)
		ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload`, s.bucket, payload)
	if err != nil {
		s.ImportState(s.committed)
		return fmt.Errorf("persist %s: %w", s.bucket, err)
	}
	s.committed = state
	return nil
}

// Close releases the database handle.
func (s *Store[K, V]) Close() error { return s.db.Close() }
