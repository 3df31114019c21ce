// Package ledger tracks which backend owns a reservation or a charging
// session. Ledgers are the only shared mutable state touched by concurrent
// dispatch calls and rely on sync.Map atomics instead of a global lock.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrExists is returned by Put when the id is already tracked.
var ErrExists = errors.New("ledger: id already tracked")

// Ledger is a concurrent map enforcing at most one entry per id.
type Ledger[K comparable, V any] struct {
	name string
	m    sync.Map
	size atomic.Int64
	hook func(name string, size int64)
}

// New returns an empty ledger. name is used in errors and size reports.
func New[K comparable, V any](name string) *Ledger[K, V] {
	return &Ledger[K, V]{name: name}
}

// Name returns the ledger name.
func (l *Ledger[K, V]) Name() string { return l.name }

// OnResize registers a callback receiving the new size after every
// successful Put or TryRemove. It must be set before concurrent use.
func (l *Ledger[K, V]) OnResize(fn func(name string, size int64)) { l.hook = fn }

// Put inserts v for id atomically. It fails with ErrExists when id is
// already present; the existing entry is left untouched.
func (l *Ledger[K, V]) Put(id K, v V) error {
	if _, loaded := l.m.LoadOrStore(id, v); loaded {
		return fmt.Errorf("%s %v: %w", l.name, id, ErrExists)
	}
	l.resized(l.size.Add(1))
	return nil
}

// TryRemove atomically removes id and returns the removed value.
func (l *Ledger[K, V]) TryRemove(id K) (V, bool) {
	v, ok := l.m.LoadAndDelete(id)
	if !ok {
		var zero V
		return zero, false
	}
	l.resized(l.size.Add(-1))
	return v.(V), true
}

// Peek returns the value stored for id without removing it.
func (l *Ledger[K, V]) Peek(id K) (V, bool) {
	v, ok := l.m.Load(id)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Len returns the number of tracked ids.
func (l *Ledger[K, V]) Len() int { return int(l.size.Load()) }

// Range calls fn for every entry until fn returns false. It observes a
// consistent entry per key but not a snapshot of the whole ledger.
func (l *Ledger[K, V]) Range(fn func(id K, v V) bool) {
	l.m.Range(func(k, v any) bool { return fn(k.(K), v.(V)) })
}

func (l *Ledger[K, V]) resized(n int64) {
	if l.hook != nil {
		l.hook(l.name, n)
	}
}
