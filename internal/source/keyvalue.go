// Package source implements the editable data sources that pair a persistent
// repository with a change tracker: key-value table collections, single-record
// configuration sources, and file-backed asset collections.
package source

import (
	"context"
	"fmt"
	"time"

	"draftstore/internal/observe"
	"draftstore/internal/track"
	"draftstore/pkg/domain"
)

// KeyValueSource wraps a persistent table repository with a change tracker.
// Enumeration merges the persisted baseline with pending adds minus pending
// deletes; saves fan pending changes out to the repository and rebase the
// tracker only once the repository commits.
type KeyValueSource[K comparable, V any] struct {
	repo    domain.TableRepository[K, V]
	tracker *track.Tracker[K, V]
	metrics observe.MetricsRecorder
	base    []K // snapshot key order, maintained across saves
}

// NewKeyValue constructs a source over the repository and type schema.
func NewKeyValue[K comparable, V any](repo domain.TableRepository[K, V], schema *domain.Schema[V]) *KeyValueSource[K, V] {
	return &KeyValueSource[K, V]{
		repo:    repo,
		tracker: track.New[K, V](schema),
		metrics: observe.NopMetricsRecorder{},
	}
}

// SetMetricsRecorder routes operation outcomes to rec.
func (s *KeyValueSource[K, V]) SetMetricsRecorder(rec observe.MetricsRecorder) {
	if rec == nil {
		rec = observe.NopMetricsRecorder{}
	}
	s.metrics = rec
}

// Load seeds tracker baselines from a repository snapshot. Reloading is safe:
// already-tracked keys keep their in-flight edits, new keys join the baseline.
func (s *KeyValueSource[K, V]) Load(ctx context.Context) error {
	records, err := s.repo.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	s.tracker.InitializeBaseline(records)
	known := make(map[K]struct{}, len(s.base))
	for _, k := range s.base {
		known[k] = struct{}{}
	}
	for _, rec := range records {
		if _, ok := known[rec.Key]; !ok {
			s.base = append(s.base, rec.Key)
		}
	}
	return nil
}

// Keys returns the visible keys: (baseline keys minus deleted) plus added, in
// insertion order. The pending-add and pending-delete sets are always
// consulted; the persistent registry alone is never the answer.
func (s *KeyValueSource[K, V]) Keys() []K {
	deleted := make(map[K]struct{})
	for _, k := range s.tracker.DeletedKeys() {
		deleted[k] = struct{}{}
	}
	out := make([]K, 0, len(s.base))
	for _, k := range s.base {
		if _, gone := deleted[k]; !gone {
			out = append(out, k)
		}
	}
	return append(out, s.tracker.AddedKeys()...)
}

// Items enumerates the visible entries, yielding the working copy per key.
func (s *KeyValueSource[K, V]) Items() []domain.Record[K, V] {
	keys := s.Keys()
	out := make([]domain.Record[K, V], 0, len(keys))
	for _, k := range keys {
		if v, ok := s.tracker.Working(k); ok {
			out = append(out, domain.Record[K, V]{Key: k, Value: v})
		}
	}
	return out
}

// Get returns the working copy when the key is tracked and not deleted, or
// falls through to the live repository value otherwise.
func (s *KeyValueSource[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	if state, tracked := s.tracker.State(key); tracked {
		if state == domain.StateDeleted {
			var zero V
			return zero, false, nil
		}
		v, _ := s.tracker.Working(key)
		return v, true, nil
	}
	return s.repo.Get(ctx, key)
}

// Add begins tracking a new entry. Duplicate keys fail with ErrDuplicateKey.
func (s *KeyValueSource[K, V]) Add(key K, value V) error {
	return s.tracker.TrackAdd(key, value)
}

// Delete marks an entry for removal; deleting a pending add discards it.
func (s *KeyValueSource[K, V]) Delete(key K) {
	s.tracker.TrackDelete(key)
}

// SetProperty edits one property of the working copy and reports whether the
// property now diverges from its baseline.
func (s *KeyValueSource[K, V]) SetProperty(key K, property string, value any) (bool, error) {
	return s.tracker.TrackPropertyChange(key, property, value)
}

// Revert discards every pending change and restores all baselines.
func (s *KeyValueSource[K, V]) Revert() {
	start := time.Now()
	s.tracker.Revert()
	s.metrics.Observe(context.Background(), "revert", true, time.Since(start))
}

// RevertKey discards one entry's pending changes.
func (s *KeyValueSource[K, V]) RevertKey(key K) {
	start := time.Now()
	s.tracker.RevertKey(key)
	s.metrics.Observe(context.Background(), "revert", true, time.Since(start))
}

// State returns the tracked entry's change state.
func (s *KeyValueSource[K, V]) State(key K) (domain.ChangeState, bool) {
	return s.tracker.State(key)
}

// IsPropertyModified reports per-property divergence for field highlighting.
func (s *KeyValueSource[K, V]) IsPropertyModified(key K, property string) bool {
	return s.tracker.IsPropertyModified(key, property)
}

// ModifiedProperties returns the diverging property names for a key.
func (s *KeyValueSource[K, V]) ModifiedProperties(key K) []string {
	return s.tracker.ModifiedProperties(key)
}

// BaselineProperty returns the captured baseline value of a modified property.
func (s *KeyValueSource[K, V]) BaselineProperty(key K, property string) (any, bool) {
	return s.tracker.BaselineProperty(key, property)
}

// HasModifications reports whether any entry has pending changes.
func (s *KeyValueSource[K, V]) HasModifications() bool { return s.tracker.HasChanges() }

// ChangedKeys returns every key with a pending change, in insertion order.
func (s *KeyValueSource[K, V]) ChangedKeys() []K { return s.tracker.ChangedKeys() }

// OnModifiedStateChanged subscribes to aggregate has-changes flips.
func (s *KeyValueSource[K, V]) OnModifiedStateChanged(fn func(bool)) func() {
	return s.tracker.OnModifiedStateChanged(fn)
}

// Save fans pending changes out to the repository (adds, then updates, then
// removes as encountered in insertion order), commits once, and rebases the
// tracker. Any failure leaves the tracker untouched so the identical diff
// survives for retry. The resolved changes are returned for auditing.
func (s *KeyValueSource[K, V]) Save(ctx context.Context) (changes []domain.Change[K, V], err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe(ctx, "save", err == nil, time.Since(start))
	}()

	changes = s.tracker.Changes()
	for _, ch := range changes {
		switch ch.Action {
		case domain.ActionAdd:
			if err = s.repo.Add(ctx, ch.Key, *ch.After); err != nil {
				return nil, fmt.Errorf("add %v: %w", ch.Key, err)
			}
		case domain.ActionUpdate:
			if err = s.repo.Update(ctx, ch.Key, *ch.After); err != nil {
				return nil, fmt.Errorf("update %v: %w", ch.Key, err)
			}
		case domain.ActionRemove:
			if _, err = s.repo.Remove(ctx, ch.Key); err != nil {
				return nil, fmt.Errorf("remove %v: %w", ch.Key, err)
			}
		}
	}
	if err = s.repo.Save(ctx); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	s.rebase(changes)
	return changes, nil
}

func (s *KeyValueSource[K, V]) rebase(changes []domain.Change[K, V]) {
	s.tracker.Rebase()
	for _, ch := range changes {
		switch ch.Action {
		case domain.ActionAdd:
			s.base = append(s.base, ch.Key)
		case domain.ActionRemove:
			for i, k := range s.base {
				if k == ch.Key {
					s.base = append(s.base[:i], s.base[i+1:]...)
					break
				}
			}
		}
	}
}
