package history

import (
	"context"
	"sync"
)

// DefaultMaxRecords bounds the memory journal when no limit is configured.
const DefaultMaxRecords = 1000

// MemoryStore keeps the most recent records for the lifetime of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	max  int
	recs []Record
}

// NewMemoryStore keeps at most maxRecords records, evicting the oldest. A
// non-positive value selects DefaultMaxRecords.
func NewMemoryStore(maxRecords int) *MemoryStore {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &MemoryStore{max: maxRecords}
}

func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recs) >= s.max {
		n := copy(s.recs, s.recs[len(s.recs)-s.max+1:])
		clear(s.recs[n:])
		s.recs = s.recs[:n]
	}
	s.recs = append(s.recs, rec)
	return nil
}

// Len returns the number of retained records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Record
	for _, r := range s.recs {
		if q.Match(r) {
			res = append(res, r)
		}
	}
	return finish(res, q.Limit), nil
}

func (s *MemoryStore) Close() error { return nil }
