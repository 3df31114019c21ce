package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/roamnet/core/factory"
	"github.com/kilianp07/roamnet/core/model"
)

func TestLedgerPutPeekRemove(t *testing.T) {
	l := NewReservations()
	res := model.Reservation{ID: "r1", Owner: model.OperatorOwner("DE*GEF")}
	require.NoError(t, l.Add(res))
	assert.ErrorIs(t, l.Add(model.Reservation{ID: "r1", Owner: model.ProviderOwner("hub")}), ErrExists)

	owner, ok := l.Owner("r1")
	require.True(t, ok)
	assert.Equal(t, model.OperatorOwner("DE*GEF"), owner, "existing owner must win")
	assert.Equal(t, 1, l.Len())

	got, ok := l.TryRemove("r1")
	require.True(t, ok)
	assert.Equal(t, res, got)
	_, ok = l.TryRemove("r1")
	assert.False(t, ok)
	assert.Equal(t, 0, l.Len())
}

func TestLedgerResizeHook(t *testing.T) {
	l := NewSessions()
	var sizes []int64
	l.OnResize(func(name string, n int64) {
		assert.Equal(t, "sessions", name)
		sizes = append(sizes, n)
	})
	require.NoError(t, l.Add(model.Session{ID: "s1"}))
	require.NoError(t, l.Add(model.Session{ID: "s2"}))
	l.TryRemove("s1")
	l.TryRemove("missing")
	assert.Equal(t, []int64{1, 2, 1}, sizes)
}

// Concurrent Put/TryRemove cycles on the same id never observe two owners.
func TestLedgerSingleOwnershipUnderContention(t *testing.T) {
	l := NewSessions()
	const workers = 16
	const rounds = 500
	var (
		wg      sync.WaitGroup
		holders atomic.Int32
		maxSeen atomic.Int32
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			owner := model.ProviderOwner(model.ProviderID(string(rune('a' + w))))
			for i := 0; i < rounds; i++ {
				if err := l.Add(model.Session{ID: "shared", Owner: owner}); err != nil {
					continue
				}
				n := holders.Add(1)
				for {
					m := maxSeen.Load()
					if n <= m || maxSeen.CompareAndSwap(m, n) {
						break
					}
				}
				got, ok := l.Peek("shared")
				if ok && got.Owner != owner {
					t.Errorf("owner changed while held: %v", got.Owner)
				}
				holders.Add(-1)
				if _, ok := l.TryRemove("shared"); !ok {
					t.Errorf("entry vanished while held")
				}
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Equal(t, 0, l.Len())
}

func TestMemoryCDRStoreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s, err := NewCDRStore(factory.ModuleConfig{})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	replaced, err := s.Put(ctx, model.ChargeDetailRecord{ID: "c1", SessionID: "s1", EnergyKWh: 10})
	require.NoError(t, err)
	assert.False(t, replaced)
	replaced, err = s.Put(ctx, model.ChargeDetailRecord{ID: "c2", SessionID: "s1", EnergyKWh: 12})
	require.NoError(t, err)
	assert.True(t, replaced)

	n, _ := s.Len(ctx)
	assert.Equal(t, 1, n)
	got, ok, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c2", got.ID)
}

func TestNewCDRStoreUnknown(t *testing.T) {
	_, err := NewCDRStore(factory.ModuleConfig{Type: "nope"})
	assert.ErrorIs(t, err, factory.ErrUnknownModule)
}
