// Package registry holds the operators and providers consulted by the
// dispatcher. Reads never block; registrations serialize on a small
// writer-only mutex.
package registry

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrAlreadyExists is returned when an id is registered twice.
	ErrAlreadyExists = errors.New("already exists")
	// ErrPriorityTaken is returned under PolicyReject when the requested
	// priority is occupied.
	ErrPriorityTaken = errors.New("priority already taken")
	// ErrPriorityExhausted is returned when no priority above the highest
	// occupied one is left.
	ErrPriorityExhausted = errors.New("no higher priority available")
)

// Map is an id-keyed concurrent registry.
type Map[K comparable, V any] struct {
	m sync.Map
}

// Register adds v under id, failing with ErrAlreadyExists for duplicates.
func (r *Map[K, V]) Register(id K, v V) error {
	if _, loaded := r.m.LoadOrStore(id, v); loaded {
		return fmt.Errorf("%v: %w", id, ErrAlreadyExists)
	}
	return nil
}

// Get looks up id.
func (r *Map[K, V]) Get(id K) (V, bool) {
	v, ok := r.m.Load(id)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Unregister removes id and reports whether it was present.
func (r *Map[K, V]) Unregister(id K) bool {
	_, ok := r.m.LoadAndDelete(id)
	return ok
}

// Range iterates over all entries in unspecified order.
func (r *Map[K, V]) Range(fn func(id K, v V) bool) {
	r.m.Range(func(k, v any) bool { return fn(k.(K), v.(V)) })
}
