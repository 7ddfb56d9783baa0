package domain

import (
	"fmt"
	"reflect"
)

// PropertyAccessor bundles the typed get/set closures for one named property
// of a tracked type. Equal overrides the comparison used to decide whether a
// written value diverges from its baseline; when nil, values are compared with
// reflect.DeepEqual.
type PropertyAccessor[V any] struct {
	Get   func(V) any
	Set   func(*V, any) error
	Equal func(a, b any) bool
}

// Schema describes how the tracker reads, writes, compares, and deep-copies
// values of a tracked type. Build one schema per type and share it across
// data sources; registration happens once at startup, so registration
// mistakes panic rather than return errors.
type Schema[V any] struct {
	clone func(V) V
	names []string
	props map[string]PropertyAccessor[V]
}

// NewSchema constructs a schema around the type's deep-copy function. The
// clone function must return a value sharing no mutable state with its input;
// it is what keeps baselines independent of working copies.
func NewSchema[V any](clone func(V) V) *Schema[V] {
	if clone == nil {
		panic("domain: schema requires a clone function")
	}
	return &Schema[V]{
		clone: clone,
		props: make(map[string]PropertyAccessor[V]),
	}
}

// Property registers a named accessor and returns the schema for chaining.
func (s *Schema[V]) Property(name string, acc PropertyAccessor[V]) *Schema[V] {
	if name == "" {
		panic("domain: property name must not be empty")
	}
	if acc.Get == nil || acc.Set == nil {
		panic(fmt.Sprintf("domain: property %q requires get and set accessors", name))
	}
	if _, exists := s.props[name]; exists {
		panic(fmt.Sprintf("domain: property %q registered twice", name))
	}
	s.props[name] = acc
	s.names = append(s.names, name)
	return s
}

// Clone returns a deep copy of v.
func (s *Schema[V]) Clone(v V) V { return s.clone(v) }

// PropertyNames returns the registered property names in registration order.
func (s *Schema[V]) PropertyNames() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// HasProperty reports whether name is registered.
func (s *Schema[V]) HasProperty(name string) bool {
	_, ok := s.props[name]
	return ok
}

// Get reads the named property from v.
func (s *Schema[V]) Get(v V, name string) (any, error) {
	acc, ok := s.props[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	return acc.Get(v), nil
}

// Set writes the named property on v.
func (s *Schema[V]) Set(v *V, name string, value any) error {
	acc, ok := s.props[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	return acc.Set(v, value)
}

// PropertyEqual compares two values of the named property, using the
// property's override when registered.
func (s *Schema[V]) PropertyEqual(name string, a, b any) bool {
	if acc, ok := s.props[name]; ok && acc.Equal != nil {
		return acc.Equal(a, b)
	}
	return reflect.DeepEqual(a, b)
}
