package registry

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultFirstPriority is assigned to the first entry registered without an
// explicit priority.
const DefaultFirstPriority uint32 = 10

// DuplicatePolicy decides what happens when a priority is requested that
// another entry already occupies.
type DuplicatePolicy uint8

const (
	// PolicyReject fails the registration with ErrPriorityTaken.
	PolicyReject DuplicatePolicy = iota
	// PolicyShift places the newcomer at the next free priority above the
	// requested one.
	PolicyShift
	// PolicyOverwrite replaces the occupant, which leaves the chain.
	PolicyOverwrite
)

// ParseDuplicatePolicy parses "reject", "shift" or "overwrite". The empty
// string selects PolicyReject.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return PolicyReject, nil
	case "shift":
		return PolicyShift, nil
	case "overwrite":
		return PolicyOverwrite, nil
	}
	return PolicyReject, fmt.Errorf("unknown duplicate priority policy %q", s)
}

func (p DuplicatePolicy) String() string {
	switch p {
	case PolicyShift:
		return "shift"
	case PolicyOverwrite:
		return "overwrite"
	default:
		return "reject"
	}
}

// Entry is one member of a Chain.
type Entry[T any] struct {
	Priority uint32
	ID       string
	Value    T
}

// Chain keeps entries ordered by ascending priority; iteration order is the
// call order of fallback loops. Readers get immutable snapshots.
type Chain[T any] struct {
	policy DuplicatePolicy

	mu   sync.Mutex
	snap atomic.Pointer[[]Entry[T]]
}

// NewChain returns an empty chain using the given duplicate policy.
func NewChain[T any](policy DuplicatePolicy) *Chain[T] {
	c := &Chain[T]{policy: policy}
	c.snap.Store(&[]Entry[T]{})
	return c
}

// Policy returns the duplicate priority policy.
func (c *Chain[T]) Policy() DuplicatePolicy { return c.policy }

// Add appends v after the current last entry (max priority + 1, or
// DefaultFirstPriority for an empty chain) and returns the priority used.
func (c *Chain[T]) Add(id string, v T) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := *c.snap.Load()
	prio := DefaultFirstPriority
	if n := len(cur); n > 0 {
		last := cur[n-1].Priority
		if last == math.MaxUint32 {
			return 0, fmt.Errorf("%s after %s: %w", id, cur[n-1].ID, ErrPriorityExhausted)
		}
		prio = last + 1
	}
	if err := c.checkID(cur, id); err != nil {
		return 0, err
	}
	c.store(append(clone(cur), Entry[T]{Priority: prio, ID: id, Value: v}))
	return prio, nil
}

// AddWithPriority inserts v at prio, resolving collisions per the chain's
// DuplicatePolicy. It returns the priority actually used.
func (c *Chain[T]) AddWithPriority(id string, prio uint32, v T) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := *c.snap.Load()
	if err := c.checkID(cur, id); err != nil {
		return 0, err
	}
	next := clone(cur)
	if idx := indexOfPriority(cur, prio); idx >= 0 {
		switch c.policy {
		case PolicyReject:
			return 0, fmt.Errorf("%s at %d held by %s: %w", id, prio, cur[idx].ID, ErrPriorityTaken)
		case PolicyOverwrite:
			next = append(next[:idx], next[idx+1:]...)
		case PolicyShift:
			for indexOfPriority(cur, prio) >= 0 {
				if prio == math.MaxUint32 {
					return 0, fmt.Errorf("%s: %w", id, ErrPriorityExhausted)
				}
				prio++
			}
		}
	}
	next = append(next, Entry[T]{Priority: prio, ID: id, Value: v})
	c.store(next)
	return prio, nil
}

// Remove deletes id and reports whether it was present.
func (c *Chain[T]) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := *c.snap.Load()
	for i, e := range cur {
		if e.ID == id {
			next := clone(cur)
			c.store(append(next[:i], next[i+1:]...))
			return true
		}
	}
	return false
}

// Get looks up id.
func (c *Chain[T]) Get(id string) (Entry[T], bool) {
	for _, e := range *c.snap.Load() {
		if e.ID == id {
			return e, true
		}
	}
	return Entry[T]{}, false
}

// Ordered returns the entries by ascending priority. The slice must not be
// modified.
func (c *Chain[T]) Ordered() []Entry[T] { return *c.snap.Load() }

// Len returns the number of entries.
func (c *Chain[T]) Len() int { return len(*c.snap.Load()) }

func (c *Chain[T]) checkID(cur []Entry[T], id string) error {
	for _, e := range cur {
		if e.ID == id {
			return fmt.Errorf("%s: %w", id, ErrAlreadyExists)
		}
	}
	return nil
}

func (c *Chain[T]) store(entries []Entry[T]) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Priority < entries[j].Priority })
	c.snap.Store(&entries)
}

func indexOfPriority[T any](entries []Entry[T], prio uint32) int {
	for i, e := range entries {
		if e.Priority == prio {
			return i
		}
	}
	return -1
}

func clone[T any](entries []Entry[T]) []Entry[T] {
	return append(make([]Entry[T], 0, len(entries)+1), entries...)
}
