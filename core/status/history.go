// Package status keeps bounded status histories per charging entity and
// propagates changes up the hierarchy through pluggable aggregation
// functions.
package status

import "time"

// DefaultHistorySize is the number of entries kept per entity when no
// capacity is configured.
const DefaultHistorySize = 15

// Entry is one timestamped status value.
type Entry[T any] struct {
	Value     T         `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// History is a bounded, most-recent-first sequence of status entries.
// It is not safe for concurrent use; Tracker serializes access.
type History[T comparable] struct {
	capacity int
	entries  []Entry[T]
}

// NewHistory returns an empty history. A non-positive capacity selects
// DefaultHistorySize.
func NewHistory[T comparable](capacity int) *History[T] {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History[T]{capacity: capacity, entries: make([]Entry[T], 0, capacity)}
}

// Peek returns the most recent entry.
func (h *History[T]) Peek() (Entry[T], bool) {
	if len(h.entries) == 0 {
		return Entry[T]{}, false
	}
	return h.entries[0], true
}

// Push records v unless it equals the current value. The oldest entry is
// evicted once the capacity is exceeded. Push reports whether v was
// recorded.
func (h *History[T]) Push(v T, ts time.Time) bool {
	if cur, ok := h.Peek(); ok && cur.Value == v {
		return false
	}
	if len(h.entries) < h.capacity {
		h.entries = append(h.entries, Entry[T]{})
	}
	copy(h.entries[1:], h.entries[:len(h.entries)-1])
	h.entries[0] = Entry[T]{Value: v, Timestamp: ts}
	return true
}

// Len returns the number of stored entries.
func (h *History[T]) Len() int { return len(h.entries) }

// Capacity returns the maximum number of stored entries.
func (h *History[T]) Capacity() int { return h.capacity }

// Entries returns a copy of the entries, most recent first.
func (h *History[T]) Entries() []Entry[T] {
	return append([]Entry[T](nil), h.entries...)
}
