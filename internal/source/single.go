package source

import (
	"context"
	"fmt"

	"draftstore/internal/observe"
	"draftstore/pkg/domain"
)

// SingleKey is the synthetic key under which a single-record source tracks
// its one value.
const SingleKey = "record"

// SingleSource edits exactly one persistent record, such as a configuration
// object, through the same engine as a table collection. A single-record
// source has no add/remove concept, only field modification; Add and Delete
// fail with ErrUnsupported.
type SingleSource[V any] struct {
	kv *KeyValueSource[string, V]
}

// NewSingle constructs a single-record source. The repository is expected to
// hold the record under SingleKey.
func NewSingle[V any](repo domain.TableRepository[string, V], schema *domain.Schema[V]) *SingleSource[V] {
	return &SingleSource[V]{kv: NewKeyValue(repo, schema)}
}

// SetMetricsRecorder routes operation outcomes to rec.
func (s *SingleSource[V]) SetMetricsRecorder(rec observe.MetricsRecorder) {
	s.kv.SetMetricsRecorder(rec)
}

// Load seeds the baseline. The record must already exist in the repository.
func (s *SingleSource[V]) Load(ctx context.Context) error {
	if err := s.kv.Load(ctx); err != nil {
		return err
	}
	if _, tracked := s.kv.State(SingleKey); !tracked {
		return fmt.Errorf("%w: record %q", domain.ErrNotFound, SingleKey)
	}
	return nil
}

// CurrentData returns a copy of the working record.
func (s *SingleSource[V]) CurrentData(ctx context.Context) (V, error) {
	v, ok, err := s.kv.Get(ctx, SingleKey)
	if err != nil {
		return v, err
	}
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: record %q", domain.ErrNotFound, SingleKey)
	}
	return v, nil
}

// Add is not available on a single-record source.
func (s *SingleSource[V]) Add(V) error { return domain.ErrUnsupported }

// Delete is not available on a single-record source.
func (s *SingleSource[V]) Delete() error { return domain.ErrUnsupported }

// SetProperty edits one field of the record.
func (s *SingleSource[V]) SetProperty(property string, value any) (bool, error) {
	return s.kv.SetProperty(SingleKey, property, value)
}

// Revert restores the record to its baseline.
func (s *SingleSource[V]) Revert() { s.kv.RevertKey(SingleKey) }

// State returns the record's change state.
func (s *SingleSource[V]) State() domain.ChangeState {
	state, tracked := s.kv.State(SingleKey)
	if !tracked {
		return domain.StateUnchanged
	}
	return state
}

// IsPropertyModified reports whether the named field diverges from baseline.
func (s *SingleSource[V]) IsPropertyModified(property string) bool {
	return s.kv.IsPropertyModified(SingleKey, property)
}

// ModifiedProperties returns the diverging field names.
func (s *SingleSource[V]) ModifiedProperties() []string {
	return s.kv.ModifiedProperties(SingleKey)
}

// HasModifications reports whether the record has pending changes.
func (s *SingleSource[V]) HasModifications() bool { return s.kv.HasModifications() }

// OnModifiedStateChanged subscribes to has-changes flips.
func (s *SingleSource[V]) OnModifiedStateChanged(fn func(bool)) func() {
	return s.kv.OnModifiedStateChanged(fn)
}

// Save persists the record if modified and rebases on success.
func (s *SingleSource[V]) Save(ctx context.Context) error {
	_, err := s.kv.Save(ctx)
	return err
}
