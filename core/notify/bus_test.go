package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusVetoBlocksCommit(t *testing.T) {
	bus := NewBus[string, string]("evse_added", nil)
	bus.AddVoter("allow", func(time.Time, string, string) Vote { return Accept })
	bus.AddVoter("deny-e2", func(_ time.Time, _ string, s string) Vote {
		if s == "E2" {
			return Veto
		}
		return Accept
	})
	var notified []string
	bus.AddObserver("rec", func(e Event[string, string]) { notified = append(notified, e.Subject) })

	committed := 0
	commit := func() error { committed++; return nil }

	require.NoError(t, bus.Apply(time.Now(), "S1", "E1", commit))
	err := bus.Apply(time.Now(), "S1", "E2", commit)
	assert.ErrorIs(t, err, ErrVetoed)
	assert.Equal(t, 1, committed)
	assert.Equal(t, []string{"E1"}, notified)
}

func TestBusCommitErrorSkipsNotify(t *testing.T) {
	bus := NewBus[string, int]("x", nil)
	called := false
	bus.AddObserver("rec", func(Event[string, int]) { called = true })
	boom := errors.New("exists")
	err := bus.Apply(time.Now(), "p", 1, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestBusPanickingVoterVetoes(t *testing.T) {
	bus := NewBus[string, string]("x", nil)
	bus.AddVoter("broken", func(time.Time, string, string) Vote { panic("boom") })
	assert.Equal(t, Vetoed, bus.Propose(time.Now(), "p", "s"))
}

func TestBusNoVotersAccepts(t *testing.T) {
	bus := NewBus[string, string]("x", nil)
	assert.Equal(t, Accepted, bus.Propose(time.Now(), "p", "s"))
}

func TestMajorityCombinator(t *testing.T) {
	assert.Equal(t, Accepted, MajorityCombinator(nil))
	assert.Equal(t, Accepted, MajorityCombinator([]Vote{Accept, Accept, Veto}))
	assert.Equal(t, Vetoed, MajorityCombinator([]Vote{Accept, Veto}))

	bus := NewBus[string, string]("x", nil)
	bus.SetCombinator(MajorityCombinator)
	bus.AddVoter("a", func(time.Time, string, string) Vote { return Accept })
	bus.AddVoter("b", func(time.Time, string, string) Vote { return Accept })
	bus.AddVoter("c", func(time.Time, string, string) Vote { return Veto })
	assert.Equal(t, Accepted, bus.Propose(time.Now(), "p", "s"))
}

func TestObserversIsolateFailures(t *testing.T) {
	obs := NewObservers[int]("test", nil)
	var got []int
	obs.Add("first", func(v int) { got = append(got, v) })
	obs.Add("broken", func(int) { panic("observer exploded") })
	remove := obs.Add("last", func(v int) { got = append(got, v*10) })

	failed := obs.Emit(2)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []int{2, 20}, got)

	remove()
	assert.Equal(t, 2, obs.Len())
	obs.Emit(3)
	assert.Equal(t, []int{2, 20, 3}, got)
}

func TestObserversAddDuringEmit(t *testing.T) {
	obs := NewObservers[int]("test", nil)
	added := false
	obs.Add("adder", func(int) {
		if !added {
			added = true
			obs.Add("late", func(int) {})
		}
	})
	obs.Emit(1)
	assert.Equal(t, 2, obs.Len())
}
