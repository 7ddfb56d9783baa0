// Package domain defines the tracked-entry value types, per-type schemas, and
// persistence contracts used by draftstore.
package domain

import "errors"

// ChangeState identifies how a tracked entry currently diverges from its baseline.
type ChangeState string

// Tracked entry states. Exactly one applies to a tracked key at any instant.
const (
	// StateUnchanged means the working copy deep-equals the baseline.
	StateUnchanged ChangeState = "unchanged"
	// StateAdded means the entry has no baseline; it exists only in memory.
	StateAdded ChangeState = "added"
	// StateModified means at least one property diverges from the baseline.
	StateModified ChangeState = "modified"
	// StateDeleted means the entry is marked for removal on the next save.
	StateDeleted ChangeState = "deleted"
)

// CanTransition reports whether moving between two entry states is legal.
// Added entries never reach StateDeleted: deleting an added entry removes it
// outright instead.
func CanTransition(from, to ChangeState) bool {
	allowed, ok := stateTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

var stateTransitions = map[ChangeState][]ChangeState{
	StateUnchanged: {StateModified, StateDeleted},
	StateAdded:     {StateUnchanged},
	StateModified:  {StateUnchanged, StateDeleted},
	StateDeleted:   {StateUnchanged},
}

// Sentinel errors shared across the engine and data sources.
var (
	// ErrDuplicateKey is returned when a key is added while already tracked.
	// It signals an upstream bug rather than a recoverable condition.
	ErrDuplicateKey = errors.New("draftstore: key already tracked")
	// ErrUnsupported is returned by operations a data source does not offer,
	// such as add or delete on a single-record source.
	ErrUnsupported = errors.New("draftstore: unsupported operation")
	// ErrUnknownProperty is returned when a property name is missing from the
	// tracked type's schema.
	ErrUnknownProperty = errors.New("draftstore: unknown property")
	// ErrNotFound is returned when a repository has no record for a key.
	ErrNotFound = errors.New("draftstore: not found")
)
