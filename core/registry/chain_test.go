package registry

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids[T any](entries []Entry[T]) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestChainAddAssignsPriorities(t *testing.T) {
	c := NewChain[int](PolicyReject)
	p, err := c.Add("a", 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultFirstPriority, p)
	p, err = c.Add("b", 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(11), p)

	_, err = c.AddWithPriority("c", 40, 3)
	require.NoError(t, err)
	p, err = c.Add("d", 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(41), p)
	_, err = c.AddWithPriority("e", 5, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"e", "a", "b", "c", "d"}, ids(c.Ordered()))
}

func TestChainDuplicateID(t *testing.T) {
	c := NewChain[int](PolicyOverwrite)
	_, err := c.Add("a", 1)
	require.NoError(t, err)
	_, err = c.Add("a", 2)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	_, err = c.AddWithPriority("a", 99, 2)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestChainPolicyReject(t *testing.T) {
	c := NewChain[int](PolicyReject)
	_, _ = c.AddWithPriority("a", 10, 1)
	_, err := c.AddWithPriority("b", 10, 2)
	assert.ErrorIs(t, err, ErrPriorityTaken)
	assert.Equal(t, []string{"a"}, ids(c.Ordered()))
}

func TestChainPolicyShift(t *testing.T) {
	c := NewChain[int](PolicyShift)
	_, _ = c.AddWithPriority("a", 10, 1)
	_, _ = c.AddWithPriority("b", 11, 2)
	p, err := c.AddWithPriority("c", 10, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), p)
	assert.Equal(t, []string{"a", "b", "c"}, ids(c.Ordered()))
}

func TestChainPriorityExhausted(t *testing.T) {
	c := NewChain[int](PolicyShift)
	_, err := c.AddWithPriority("last", math.MaxUint32, 1)
	require.NoError(t, err)
	_, err = c.Add("next", 2)
	assert.ErrorIs(t, err, ErrPriorityExhausted)

	_, err = c.AddWithPriority("shifted", math.MaxUint32, 3)
	assert.ErrorIs(t, err, ErrPriorityExhausted)
	assert.Equal(t, []string{"last"}, ids(c.Ordered()))

	p, err := c.AddWithPriority("below", math.MaxUint32-1, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32-1), p)
	assert.Equal(t, []string{"below", "last"}, ids(c.Ordered()))
}

func TestChainPolicyOverwrite(t *testing.T) {
	c := NewChain[int](PolicyOverwrite)
	_, _ = c.AddWithPriority("a", 10, 1)
	_, _ = c.AddWithPriority("b", 20, 2)
	p, err := c.AddWithPriority("c", 10, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), p)
	assert.Equal(t, []string{"c", "b"}, ids(c.Ordered()))
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestChainRemoveKeepsSnapshotsImmutable(t *testing.T) {
	c := NewChain[int](PolicyReject)
	_, _ = c.Add("a", 1)
	_, _ = c.Add("b", 2)
	snap := c.Ordered()
	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, []string{"a", "b"}, ids(snap))
	assert.Equal(t, []string{"b"}, ids(c.Ordered()))
}

func TestChainConcurrentAdd(t *testing.T) {
	c := NewChain[int](PolicyReject)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Add(string(rune('A'+i)), i)
			assert.NoError(t, err)
			_ = c.Ordered()
		}(i)
	}
	wg.Wait()
	entries := c.Ordered()
	require.Len(t, entries, 50)
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, entries[i-1].Priority+1, entries[i].Priority)
	}
}

func TestParseDuplicatePolicy(t *testing.T) {
	for in, want := range map[string]DuplicatePolicy{"": PolicyReject, "Shift": PolicyShift, "overwrite": PolicyOverwrite} {
		got, err := ParseDuplicatePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDuplicatePolicy("renumber")
	assert.Error(t, err)
}

func TestMapRegister(t *testing.T) {
	var m Map[string, int]
	require.NoError(t, m.Register("a", 1))
	assert.ErrorIs(t, m.Register("a", 2), ErrAlreadyExists)
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, m.Unregister("a"))
	_, ok = m.Get("a")
	assert.False(t, ok)
}
