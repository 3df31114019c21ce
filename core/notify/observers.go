// Package notify implements the two-phase veto and notify protocol used for
// every membership change of the charging hierarchy, plus the "notify all,
// isolate failures" helper reused by every observer list in roamnet.
package notify

import (
	"sync"
	"sync/atomic"

	"github.com/kilianp07/roamnet/core/logger"
	"github.com/kilianp07/roamnet/core/monitoring"
)

type named[E any] struct {
	id   uint64
	name string
	fn   func(E)
}

// Observers is a copy-on-write list of named handlers. Emit never takes a
// lock, so handlers may register further observers without deadlocking.
type Observers[E any] struct {
	scope string
	log   logger.Logger

	mu   sync.Mutex
	next uint64
	list atomic.Pointer[[]named[E]]
}

// NewObservers returns an empty list. scope is used in log lines and
// monitoring tags.
func NewObservers[E any](scope string, log logger.Logger) *Observers[E] {
	o := &Observers[E]{scope: scope, log: logger.OrNop(log)}
	o.list.Store(&[]named[E]{})
	return o
}

// Add registers fn and returns a function removing it again.
func (o *Observers[E]) Add(name string, fn func(E)) (remove func()) {
	if fn == nil {
		return func() {}
	}
	o.mu.Lock()
	o.next++
	id := o.next
	cur := *o.list.Load()
	upd := make([]named[E], 0, len(cur)+1)
	upd = append(upd, cur...)
	upd = append(upd, named[E]{id: id, name: name, fn: fn})
	o.list.Store(&upd)
	o.mu.Unlock()

	return func() { o.remove(id) }
}

func (o *Observers[E]) remove(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cur := *o.list.Load()
	upd := make([]named[E], 0, len(cur))
	for _, n := range cur {
		if n.id != id {
			upd = append(upd, n)
		}
	}
	o.list.Store(&upd)
}

// Len returns the number of registered observers.
func (o *Observers[E]) Len() int { return len(*o.list.Load()) }

// Emit calls every observer in registration order. A panicking observer is
// logged and reported; the remaining observers still run. Emit returns the
// number of observers that failed.
func (o *Observers[E]) Emit(e E) (failed int) {
	for _, n := range *o.list.Load() {
		if !o.call(n, e) {
			failed++
		}
	}
	return failed
}

func (o *Observers[E]) call(n named[E], e E) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err := monitoring.CapturePanic(r, map[string]string{"scope": o.scope, "observer": n.name})
			o.log.Errorf("%s observer %q failed: %v", o.scope, n.name, err)
			ok = false
		}
	}()
	n.fn(e)
	return true
}
