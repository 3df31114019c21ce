package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHistoryDedup(t *testing.T) {
	h := NewHistory[string](0)
	now := time.Now()
	assert.True(t, h.Push("available", now))
	assert.False(t, h.Push("available", now.Add(time.Second)))
	assert.Equal(t, 1, h.Len())
	e, ok := h.Peek()
	assert.True(t, ok)
	assert.Equal(t, now, e.Timestamp)
}

func TestHistoryBound(t *testing.T) {
	h := NewHistory[int](DefaultHistorySize)
	base := time.Now()
	for i := 0; i < 40; i++ {
		h.Push(i, base.Add(time.Duration(i)*time.Second))
		assert.LessOrEqual(t, h.Len(), DefaultHistorySize)
	}
	entries := h.Entries()
	assert.Len(t, entries, DefaultHistorySize)
	// most recent first, oldest evicted
	assert.Equal(t, 39, entries[0].Value)
	assert.Equal(t, 39-DefaultHistorySize+1, entries[len(entries)-1].Value)
}

func TestHistoryAlternatingValues(t *testing.T) {
	h := NewHistory[string](3)
	now := time.Now()
	for _, v := range []string{"a", "b", "a", "b"} {
		assert.True(t, h.Push(v, now))
	}
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 3, h.Capacity())
	got := []string{}
	for _, e := range h.Entries() {
		got = append(got, e.Value)
	}
	assert.Equal(t, []string{"b", "a", "b"}, got)
}
