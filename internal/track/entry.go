package track

import "draftstore/pkg/domain"

// entry records one entity's baseline, working copy, and property-level
// divergence. The tracker exclusively owns every entry it creates; baselines
// and captured property values are private clones, never aliased with values
// handed to callers.
type entry[V any] struct {
	baseline *V // nil iff state == StateAdded
	working  V
	modified map[string]any // property name -> captured baseline value
	modOrder []string       // modification order of the property names above
	state    domain.ChangeState
}

func (e *entry[V]) isDirty() bool { return e.state != domain.StateUnchanged }

// captureBaseline records the property's baseline value on first touch.
func (e *entry[V]) captureBaseline(name string, value any) {
	if _, ok := e.modified[name]; ok {
		return
	}
	e.modified[name] = value
	e.modOrder = append(e.modOrder, name)
}

// releaseBaseline drops a property whose working value returned to baseline.
func (e *entry[V]) releaseBaseline(name string) {
	if _, ok := e.modified[name]; !ok {
		return
	}
	delete(e.modified, name)
	for i, n := range e.modOrder {
		if n == name {
			e.modOrder = append(e.modOrder[:i], e.modOrder[i+1:]...)
			break
		}
	}
}

func (e *entry[V]) clearModified() {
	e.modified = make(map[string]any)
	e.modOrder = nil
}
