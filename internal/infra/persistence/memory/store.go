// Package memory implements an in-memory table repository for tests and
// ephemeral deployments. It also serves as the staging engine the durable
// backends embed.
package memory

import (
	"context"
	"fmt"
	"sync"

	"draftstore/pkg/domain"
)

// Store holds records in process memory, preserving insertion order for
// snapshots. All values crossing the boundary are cloned.
type Store[K comparable, V any] struct {
	mu    sync.RWMutex
	vals  map[K]V
	order []K
	clone func(V) V
}

// Compile-time contract assertion.
var _ domain.TableRepository[string, int] = (*Store[string, int])(nil)

// New constructs an empty store around the value type's clone function.
func New[K comparable, V any](clone func(V) V) *Store[K, V] {
	if clone == nil {
		clone = func(v V) V { return v }
	}
	return &Store[K, V]{vals: make(map[K]V), clone: clone}
}

// Snapshot returns every record in insertion order, cloned.
func (s *Store[K, V]) Snapshot(context.Context) ([]domain.Record[K, V], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Record[K, V], 0, len(s.order))
	for _, k := range s.order {
		out = append(out, domain.Record[K, V]{Key: k, Value: s.clone(s.vals[k])})
	}
	return out, nil
}

// Get retrieves a single record.
func (s *Store[K, V]) Get(_ context.Context, key K) (V, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vals[key]
	if !ok {
		var zero V
		return zero, false, nil
	}
	return s.clone(v), true, nil
}

// Add inserts a new record; adding an existing key is an error.
func (s *Store[K, V]) Add(_ context.Context, key K, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vals[key]; exists {
		return fmt.Errorf("record %v already exists", key)
	}
	s.vals[key] = s.clone(value)
	s.order = append(s.order, key)
	return nil
}

// Update replaces an existing record.
func (s *Store[K, V]) Update(_ context.Context, key K, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vals[key]; !exists {
		return fmt.Errorf("record %v not found", key)
	}
	s.vals[key] = s.clone(value)
	return nil
}

// Remove deletes a record, reporting whether it existed.
func (s *Store[K, V]) Remove(_ context.Context, key K) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vals[key]; !exists {
		return false, nil
	}
	delete(s.vals, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Save is a no-op: memory is the durable medium here.
func (s *Store[K, V]) Save(context.Context) error { return nil }

// ImportState replaces the store contents with the supplied records. Durable
// backends use it to hydrate from a loaded snapshot.
func (s *Store[K, V]) ImportState(records []domain.Record[K, V]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals = make(map[K]V, len(records))
	s.order = s.order[:0]
	for _, rec := range records {
		s.vals[rec.Key] = s.clone(rec.Value)
		s.order = append(s.order, rec.Key)
	}
}

// ExportState returns the full contents in insertion order, cloned. Durable
// backends persist this snapshot after each successful save.
func (s *Store[K, V]) ExportState() []domain.Record[K, V] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Record[K, V], 0, len(s.order))
	for _, k := range s.order {
		out = append(out, domain.Record[K, V]{Key: k, Value: s.clone(s.vals[k])})
	}
	return out
}
