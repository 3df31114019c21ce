package ledger

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kilianp07/roamnet/core/model"
)

// CDRStore keeps the latest charge detail record per session id. Merging
// duplicate sends is up to the caller; the store is last-write-wins.
type CDRStore interface {
	// Put stores cdr and reports whether a record for the same session was
	// replaced.
	Put(ctx context.Context, cdr model.ChargeDetailRecord) (replaced bool, err error)
	Get(ctx context.Context, id model.SessionID) (model.ChargeDetailRecord, bool, error)
	Len(ctx context.Context) (int, error)
	Close() error
}

// MemoryCDRStore is an in-process CDRStore.
type MemoryCDRStore struct {
	m    sync.Map
	size atomic.Int64
}

// NewMemoryCDRStore returns an empty store.
func NewMemoryCDRStore() *MemoryCDRStore { return &MemoryCDRStore{} }

func (s *MemoryCDRStore) Put(_ context.Context, cdr model.ChargeDetailRecord) (bool, error) {
	_, loaded := s.m.Swap(cdr.SessionID, cdr)
	if !loaded {
		s.size.Add(1)
	}
	return loaded, nil
}

func (s *MemoryCDRStore) Get(_ context.Context, id model.SessionID) (model.ChargeDetailRecord, bool, error) {
	v, ok := s.m.Load(id)
	if !ok {
		return model.ChargeDetailRecord{}, false, nil
	}
	return v.(model.ChargeDetailRecord), true, nil
}

func (s *MemoryCDRStore) Len(context.Context) (int, error) { return int(s.size.Load()), nil }

func (s *MemoryCDRStore) Close() error { return nil }
