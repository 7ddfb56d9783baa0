package domain

// Action identifies the repository operation a resolved change maps to.
type Action string

// Actions emitted by a save fan-out.
const (
	// ActionAdd persists an entry that had no baseline.
	ActionAdd Action = "add"
	// ActionUpdate persists a modified working copy over its baseline.
	ActionUpdate Action = "update"
	// ActionRemove deletes a persisted entry.
	ActionRemove Action = "remove"
)

// Change describes one entry resolved during a save. Before and After are
// private clones; callers may retain and mutate them freely without reaching
// tracker state. Before is nil for adds, After is nil for removes.
type Change[K comparable, V any] struct {
	Key    K
	Action Action
	Before *V
	After  *V
}
