// Package track implements the generic baseline-diff engine behind every
// editable data source: a per-key state machine over baseline and working
// copies with property-granular reversibility.
//
// The engine is single-threaded and cooperative. It assumes one property edit
// or one save at a time from an interactive caller and performs no locking;
// each data source owns its tracker exclusively.
package track

import (
	"fmt"

	"draftstore/pkg/domain"
)

// Tracker owns the key -> entry map for one editable collection. Every value
// crossing its boundary is deep-copied through the schema, so callers can
// never mutate a baseline through a returned reference.
type Tracker[K comparable, V any] struct {
	schema  *domain.Schema[V]
	entries map[K]*entry[V]
	order   []K // key insertion order
	dirty   int // entries whose state != StateUnchanged
	notify  *Notifier
}

// New constructs an empty tracker over the given type schema.
func New[K comparable, V any](schema *domain.Schema[V]) *Tracker[K, V] {
	return &Tracker[K, V]{
		schema:  schema,
		entries: make(map[K]*entry[V]),
		notify:  NewNotifier(),
	}
}

// Schema returns the type schema the tracker diffs with.
func (t *Tracker[K, V]) Schema() *domain.Schema[V] { return t.schema }

// OnModifiedStateChanged subscribes fn to aggregate has-changes flips and
// returns a cancel function. fn fires only on a false<->true transition.
func (t *Tracker[K, V]) OnModifiedStateChanged(fn func(bool)) func() {
	return t.notify.Subscribe(fn)
}

// InitializeBaseline seeds baselines from a read-only snapshot. It is
// idempotent per key: already-tracked entries are left untouched, so a reload
// never clobbers in-flight edits.
func (t *Tracker[K, V]) InitializeBaseline(records []domain.Record[K, V]) {
	for _, rec := range records {
		if _, tracked := t.entries[rec.Key]; tracked {
			continue
		}
		base := t.schema.Clone(rec.Value)
		e := &entry[V]{
			baseline: &base,
			working:  t.schema.Clone(rec.Value),
			state:    domain.StateUnchanged,
		}
		e.clearModified()
		t.insert(rec.Key, e)
	}
}

// TrackAdd begins tracking a brand-new entry with no baseline. Adding an
// already-tracked key is the engine's sole hard error.
func (t *Tracker[K, V]) TrackAdd(key K, value V) error {
	if _, tracked := t.entries[key]; tracked {
		return fmt.Errorf("%w: %v", domain.ErrDuplicateKey, key)
	}
	had := t.dirty > 0
	e := &entry[V]{
		working: t.schema.Clone(value),
		state:   domain.StateAdded,
	}
	e.clearModified()
	t.insert(key, e)
	t.dirty++
	t.flip(had)
	return nil
}

// TrackDelete marks an entry deleted. Deleting an added entry removes it
// outright; it never reaches StateDeleted. Unseen keys are a benign no-op,
// tolerating caller races against data loading.
func (t *Tracker[K, V]) TrackDelete(key K) {
	e, tracked := t.entries[key]
	if !tracked || e.state == domain.StateDeleted {
		return
	}
	had := t.dirty > 0
	switch e.state {
	case domain.StateAdded:
		t.remove(key)
		t.dirty--
	case domain.StateUnchanged:
		e.state = domain.StateDeleted
		t.dirty++
	default: // StateModified keeps its dirty slot
		e.state = domain.StateDeleted
	}
	t.flip(had)
}

// TrackPropertyChange writes a property on the working copy and reports
// whether the property now diverges from its baseline. On first touch the
// baseline value is captured; writing the baseline value back releases the
// property and, when it was the last one, returns the entry to unchanged.
// Edits to deleted entries are ignored by policy, edits to unseen keys are
// benign no-ops, and an unknown property name is a programmer error.
func (t *Tracker[K, V]) TrackPropertyChange(key K, property string, value any) (bool, error) {
	e, tracked := t.entries[key]
	if !tracked || e.state == domain.StateDeleted {
		return false, nil
	}
	if !t.schema.HasProperty(property) {
		return false, fmt.Errorf("%w: %s", domain.ErrUnknownProperty, property)
	}
	if e.state == domain.StateAdded {
		// No baseline to diverge from; the entry stays Added.
		if err := t.schema.Set(&e.working, property, value); err != nil {
			return false, err
		}
		return true, nil
	}

	baselineVal, ok := e.modified[property]
	if !ok {
		// First touch: capture from a clone so the captured value shares
		// nothing with the live baseline.
		var err error
		baselineVal, err = t.schema.Get(t.schema.Clone(*e.baseline), property)
		if err != nil {
			return false, err
		}
	}
	if err := t.schema.Set(&e.working, property, value); err != nil {
		return false, err
	}
	written, err := t.schema.Get(e.working, property)
	if err != nil {
		return false, err
	}

	had := t.dirty > 0
	diverged := !t.schema.PropertyEqual(property, written, baselineVal)
	if diverged {
		e.captureBaseline(property, baselineVal)
	} else {
		e.releaseBaseline(property)
	}
	t.recomputeState(e)
	t.flip(had)
	return diverged, nil
}

func (t *Tracker[K, V]) recomputeState(e *entry[V]) {
	wasDirty := e.isDirty()
	if len(e.modified) == 0 {
		e.state = domain.StateUnchanged
	} else {
		e.state = domain.StateModified
	}
	switch {
	case e.isDirty() && !wasDirty:
		t.dirty++
	case !e.isDirty() && wasDirty:
		t.dirty--
	}
}

// State returns the entry's change state and whether the key is tracked.
func (t *Tracker[K, V]) State(key K) (domain.ChangeState, bool) {
	e, tracked := t.entries[key]
	if !tracked {
		return "", false
	}
	return e.state, true
}

// Working returns a deep copy of the entry's working value. Deleted entries
// are still returned; enumeration filtering is the data source's concern.
func (t *Tracker[K, V]) Working(key K) (V, bool) {
	e, tracked := t.entries[key]
	if !tracked {
		var zero V
		return zero, false
	}
	return t.schema.Clone(e.working), true
}

// HasChanges reports whether any entry's state differs from unchanged.
func (t *Tracker[K, V]) HasChanges() bool { return t.dirty > 0 }

// Keys returns every tracked key in insertion order, including deleted ones.
func (t *Tracker[K, V]) Keys() []K {
	out := make([]K, len(t.order))
	copy(out, t.order)
	return out
}

// ChangedKeys returns keys whose state is not unchanged, in insertion order.
func (t *Tracker[K, V]) ChangedKeys() []K {
	return t.keysInState(domain.StateAdded, domain.StateModified, domain.StateDeleted)
}

// AddedKeys returns keys in StateAdded, in insertion order.
func (t *Tracker[K, V]) AddedKeys() []K { return t.keysInState(domain.StateAdded) }

// ModifiedKeys returns keys in StateModified, in insertion order.
func (t *Tracker[K, V]) ModifiedKeys() []K { return t.keysInState(domain.StateModified) }

// DeletedKeys returns keys in StateDeleted, in insertion order.
func (t *Tracker[K, V]) DeletedKeys() []K { return t.keysInState(domain.StateDeleted) }

func (t *Tracker[K, V]) keysInState(states ...domain.ChangeState) []K {
	var out []K
	for _, key := range t.order {
		e := t.entries[key]
		for _, s := range states {
			if e.state == s {
				out = append(out, key)
				break
			}
		}
	}
	return out
}

// IsPropertyModified reports whether the named property currently diverges
// from its baseline.
func (t *Tracker[K, V]) IsPropertyModified(key K, property string) bool {
	e, tracked := t.entries[key]
	if !tracked {
		return false
	}
	_, modified := e.modified[property]
	return modified
}

// ModifiedProperties returns the names of diverging properties in the order
// they were first touched.
func (t *Tracker[K, V]) ModifiedProperties(key K) []string {
	e, tracked := t.entries[key]
	if !tracked {
		return nil
	}
	out := make([]string, len(e.modOrder))
	copy(out, e.modOrder)
	return out
}

// BaselineProperty returns the captured baseline value of a currently
// modified property, answering "changed from what" for per-field display.
func (t *Tracker[K, V]) BaselineProperty(key K, property string) (any, bool) {
	e, tracked := t.entries[key]
	if !tracked {
		return nil, false
	}
	v, ok := e.modified[property]
	return v, ok
}

// RevertKey restores a single entry to its baseline: added entries vanish,
// deleted and modified entries return to unchanged. Unseen keys are no-ops.
func (t *Tracker[K, V]) RevertKey(key K) {
	had := t.dirty > 0
	t.revertOne(key)
	t.flip(had)
}

// Revert restores every entry to its baseline. The aggregate notification
// fires at most once, regardless of how many entries resolve.
func (t *Tracker[K, V]) Revert() {
	had := t.dirty > 0
	for _, key := range t.Keys() {
		t.revertOne(key)
	}
	t.flip(had)
}

func (t *Tracker[K, V]) revertOne(key K) {
	e, tracked := t.entries[key]
	if !tracked {
		return
	}
	switch e.state {
	case domain.StateUnchanged:
		return
	case domain.StateAdded:
		t.remove(key)
		t.dirty--
		return
	}
	e.working = t.schema.Clone(*e.baseline)
	e.clearModified()
	e.state = domain.StateUnchanged
	t.dirty--
}

// Changes returns the resolved repository operations for every pending entry,
// in key insertion order, with cloned payloads.
func (t *Tracker[K, V]) Changes() []domain.Change[K, V] {
	var out []domain.Change[K, V]
	for _, key := range t.order {
		e := t.entries[key]
		switch e.state {
		case domain.StateAdded:
			after := t.schema.Clone(e.working)
			out = append(out, domain.Change[K, V]{Key: key, Action: domain.ActionAdd, After: &after})
		case domain.StateModified:
			before := t.schema.Clone(*e.baseline)
			after := t.schema.Clone(e.working)
			out = append(out, domain.Change[K, V]{Key: key, Action: domain.ActionUpdate, Before: &before, After: &after})
		case domain.StateDeleted:
			before := t.schema.Clone(*e.baseline)
			out = append(out, domain.Change[K, V]{Key: key, Action: domain.ActionRemove, Before: &before})
		}
	}
	return out
}

// Rebase replaces every pending entry's baseline with its working copy after
// a successful save: added and modified entries become unchanged, deleted
// entries are dropped. Callers must invoke it only once persistence succeeded;
// on failure the tracker is left untouched so a retry reproduces the same diff.
func (t *Tracker[K, V]) Rebase() {
	had := t.dirty > 0
	for _, key := range t.Keys() {
		e := t.entries[key]
		switch e.state {
		case domain.StateUnchanged:
			continue
		case domain.StateDeleted:
			t.remove(key)
		default:
			base := t.schema.Clone(e.working)
			e.baseline = &base
			e.clearModified()
			e.state = domain.StateUnchanged
		}
		t.dirty--
	}
	t.flip(had)
}

func (t *Tracker[K, V]) insert(key K, e *entry[V]) {
	t.entries[key] = e
	t.order = append(t.order, key)
}

func (t *Tracker[K, V]) remove(key K) {
	delete(t.entries, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *Tracker[K, V]) flip(had bool) {
	if now := t.dirty > 0; now != had {
		t.notify.Broadcast(now)
	}
}
