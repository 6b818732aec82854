// Package state implements the scenario-scoped State<T> store of spec
// §4.3/§9: a mapping from runtime type identity to one lazily-constructed
// value of that type, owned by a single scenario.
package state

import "reflect"

// Store is the per-scenario state map. The zero value is ready to use.
// Not safe for concurrent use — spec §4.3/§5 guarantee a scenario is
// never observed from two threads simultaneously, so Store needs no
// locking of its own.
type Store struct {
	values map[reflect.Type]any
}

// Get returns the value of type T in the store, constructing it with init
// on first access. Subsequent calls for the same T within the same Store
// return the same instance (spec §4.3: "the first request for T within a
// scenario invokes the user-supplied initializer; subsequent requests
// return the same instance").
func Get[T any](s *Store, init func() T) T {
	if s.values == nil {
		s.values = make(map[reflect.Type]any)
	}
	t := reflect.TypeFor[T]()
	if v, ok := s.values[t]; ok {
		return v.(T)
	}
	v := init()
	s.values[t] = v
	return v
}

// Peek returns the current value of type T without constructing it,
// reporting whether one has been set.
func Peek[T any](s *Store) (T, bool) {
	var zero T
	if s == nil || s.values == nil {
		return zero, false
	}
	v, ok := s.values[reflect.TypeFor[T]()]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// GetUntyped resolves a value by its reflect.Type, invoking factory
// (func() T, type-erased) if absent. Used by the reflection-based
// handler-argument binder in pkg/scenario, which only has a reflect.Type
// to work with, not a compile-time T.
func (s *Store) GetUntyped(t reflect.Type, factory func() any) any {
	if s.values == nil {
		s.values = make(map[reflect.Type]any)
	}
	if v, ok := s.values[t]; ok {
		return v
	}
	v := factory()
	s.values[t] = v
	return v
}
