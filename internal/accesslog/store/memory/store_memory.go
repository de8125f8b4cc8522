package memory

import (
	"context"
	"sync"

	"acredita/internal/accesslog"
)

// InMemoryStore keeps entries per event. Used by unit tests and single-node
// deployments without postgres.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]accesslog.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string][]accesslog.Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry accesslog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.EventID] = append(s.entries[entry.EventID], entry)
	return nil
}

func (s *InMemoryStore) ListByEvent(_ context.Context, eventID string, limit int) ([]accesslog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.entries[eventID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	// Most recent first.
	out := make([]accesslog.Entry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *InMemoryStore) ListByDNI(_ context.Context, eventID, dni string) ([]accesslog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []accesslog.Entry
	for _, e := range s.entries[eventID] {
		if e.DNI == dni {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) CountByEvent(_ context.Context, eventID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[eventID]), nil
}

func (s *InMemoryStore) DeleteByEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, eventID)
	return nil
}
