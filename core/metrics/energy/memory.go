package energy

import (
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/roamnet/core/model"
)

// MemoryStore keeps records in memory.
type MemoryStore struct {
	mu   sync.Mutex
	data map[model.ProviderID]map[time.Time]*Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[model.ProviderID]map[time.Time]*Record{}}
}

// Add merges r into the record of its provider and day.
func (s *MemoryStore) Add(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[r.ProviderID] == nil {
		s.data[r.ProviderID] = map[time.Time]*Record{}
	}
	d := Day(r.Date)
	rec := s.data[r.ProviderID][d]
	if rec == nil {
		rec = &Record{ProviderID: r.ProviderID, Date: d}
		s.data[r.ProviderID][d] = rec
	}
	rec.EnergyKWh += r.EnergyKWh
	rec.Sessions += r.Sessions
	return nil
}

// Query returns the records of provider between start and end inclusive,
// oldest first.
func (s *MemoryStore) Query(provider model.ProviderID, start, end time.Time) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start = Day(start)
	end = Day(end)
	var res []Record
	for d, r := range s.data[provider] {
		if d.Before(start) || d.After(end) {
			continue
		}
		res = append(res, *r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date.Before(res[j].Date) })
	return res, nil
}
