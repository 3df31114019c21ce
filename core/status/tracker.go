package status

import (
	"sync"
	"time"

	"github.com/kilianp07/roamnet/core/logger"
	"github.com/kilianp07/roamnet/core/model"
	"github.com/kilianp07/roamnet/core/notify"
)

// Hierarchy resolves parent and child references. The topology arena
// implements it; the tracker never stores references between entities.
type Hierarchy interface {
	Parent(ref model.EntityRef) (model.EntityRef, bool)
	Children(ref model.EntityRef) []model.EntityRef
}

// AggregateFunc derives a parent's status from the current values of its
// children. Returning false leaves the parent untouched.
type AggregateFunc[T any] func(parent model.EntityRef, children []T) (T, bool)

// Change describes a recorded status transition.
type Change[T any] struct {
	Time   time.Time
	Entity model.EntityRef
	Old    T
	HadOld bool
	New    T
}

// Tracker holds one history per entity and bubbles changes upward. Status
// and admin status each use their own Tracker.
type Tracker[T comparable] struct {
	name     string
	capacity int
	hier     Hierarchy

	mu          sync.Mutex
	histories   map[model.EntityRef]*History[T]
	aggregators map[model.Tier]AggregateFunc[T]

	observers *notify.Observers[Change[T]]
}

// NewTracker returns a tracker resolving parents through hier. hier may be
// nil, in which case nothing bubbles.
func NewTracker[T comparable](name string, hier Hierarchy, capacity int, log logger.Logger) *Tracker[T] {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &Tracker[T]{
		name:        name,
		capacity:    capacity,
		hier:        hier,
		histories:   make(map[model.EntityRef]*History[T]),
		aggregators: make(map[model.Tier]AggregateFunc[T]),
		observers:   notify.NewObservers[Change[T]](name, log),
	}
}

// SetAggregator configures how entities of the given tier are derived from
// their children. nil disables aggregation for that tier.
func (t *Tracker[T]) SetAggregator(tier model.Tier, fn AggregateFunc[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fn == nil {
		delete(t.aggregators, tier)
		return
	}
	t.aggregators[tier] = fn
}

// OnChange registers an observer called for every recorded transition.
func (t *Tracker[T]) OnChange(name string, fn func(Change[T])) (remove func()) {
	return t.observers.Add(name, fn)
}

// Insert records v for ref and propagates to the ancestors. Observers run
// synchronously after the internal lock is released, bottom-up. The
// recorded changes are returned in the same order.
func (t *Tracker[T]) Insert(ref model.EntityRef, v T, ts time.Time) []Change[T] {
	if ts.IsZero() {
		ts = time.Now()
	}
	t.mu.Lock()
	changes := t.bubble(ref, v, ts)
	t.mu.Unlock()
	t.emit(changes)
	return changes
}

// Recompute re-derives ref from its children, for example after a child
// was removed, and propagates the result. An aggregated entity left without
// children falls back to the zero value, Unknown for both status kinds.
func (t *Tracker[T]) Recompute(ref model.EntityRef, ts time.Time) []Change[T] {
	if ts.IsZero() {
		ts = time.Now()
	}
	t.mu.Lock()
	var changes []Change[T]
	if v, ok := t.aggregate(ref); ok {
		changes = t.bubble(ref, v, ts)
	} else if t.emptied(ref) {
		var zero T
		changes = t.bubble(ref, zero, ts)
	}
	t.mu.Unlock()
	t.emit(changes)
	return changes
}

// Current returns the latest entry of ref.
func (t *Tracker[T]) Current(ref model.EntityRef) (Entry[T], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.histories[ref]
	if !ok {
		return Entry[T]{}, false
	}
	return h.Peek()
}

// History returns the entries of ref, most recent first.
func (t *Tracker[T]) History(ref model.EntityRef) []Entry[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h, ok := t.histories[ref]; ok {
		return h.Entries()
	}
	return nil
}

// Forget drops the history of ref.
func (t *Tracker[T]) Forget(ref model.EntityRef) {
	t.mu.Lock()
	delete(t.histories, ref)
	t.mu.Unlock()
}

func (t *Tracker[T]) bubble(ref model.EntityRef, v T, ts time.Time) []Change[T] {
	var changes []Change[T]
	for {
		h := t.history(ref)
		old, had := h.Peek()
		if !h.Push(v, ts) {
			return changes
		}
		changes = append(changes, Change[T]{Time: ts, Entity: ref, Old: old.Value, HadOld: had, New: v})
		if t.hier == nil {
			return changes
		}
		parent, ok := t.hier.Parent(ref)
		if !ok {
			return changes
		}
		cand, ok := t.aggregate(parent)
		if !ok {
			return changes
		}
		ref, v = parent, cand
	}
}

func (t *Tracker[T]) aggregate(parent model.EntityRef) (T, bool) {
	var zero T
	fn, ok := t.aggregators[parent.Tier]
	if !ok || t.hier == nil {
		return zero, false
	}
	children := t.hier.Children(parent)
	vals := make([]T, 0, len(children))
	for _, c := range children {
		if h, ok := t.histories[c]; ok {
			if e, ok := h.Peek(); ok {
				vals = append(vals, e.Value)
			}
		}
	}
	if len(vals) == 0 {
		return zero, false
	}
	return fn(parent, vals)
}

// emptied reports whether an aggregated entity holding a value has lost
// its last child.
func (t *Tracker[T]) emptied(ref model.EntityRef) bool {
	if _, ok := t.aggregators[ref.Tier]; !ok || t.hier == nil {
		return false
	}
	h, ok := t.histories[ref]
	if !ok || h.Len() == 0 {
		return false
	}
	return len(t.hier.Children(ref)) == 0
}

func (t *Tracker[T]) history(ref model.EntityRef) *History[T] {
	h, ok := t.histories[ref]
	if !ok {
		h = NewHistory[T](t.capacity)
		t.histories[ref] = h
	}
	return h
}

func (t *Tracker[T]) emit(changes []Change[T]) {
	for _, c := range changes {
		t.observers.Emit(c)
	}
}
