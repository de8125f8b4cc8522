package memory

import (
	"context"
	"sync"
	"time"

	"acredita/internal/participant/models"
	id "acredita/pkg/domain"
	"acredita/pkg/platform/sentinel"
)

type key struct {
	dni     id.DNI
	eventID string
}

// InMemory is the mutex-guarded participant store used by unit tests and
// single-node deployments.
type InMemory struct {
	mu           sync.RWMutex
	participants map[key]*models.Participant
}

func NewInMemory() *InMemory {
	return &InMemory{participants: make(map[key]*models.Participant)}
}

func (s *InMemory) GetByKey(_ context.Context, dni id.DNI, eventID string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[key{dni: dni, eventID: eventID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *InMemory) Upsert(_ context.Context, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{dni: p.DNI, eventID: p.EventID}
	cp := p.Clone()
	cp.Version = 1
	if existing, ok := s.participants[k]; ok {
		cp.Version = existing.Version + 1
		cp.CreatedAt = existing.CreatedAt
	}
	cp.UpdatedAt = time.Now()
	s.participants[k] = cp
	p.Version = cp.Version
	return nil
}

func (s *InMemory) Delete(_ context.Context, dni id.DNI, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{dni: dni, eventID: eventID}
	if _, ok := s.participants[k]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.participants, k)
	return nil
}

func (s *InMemory) ListByEvent(_ context.Context, eventID string) ([]*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Participant
	for k, p := range s.participants {
		if k.eventID == eventID {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (s *InMemory) CountByEvent(_ context.Context, eventID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for k := range s.participants {
		if k.eventID == eventID {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) DeleteByEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.participants {
		if k.eventID == eventID {
			delete(s.participants, k)
		}
	}
	return nil
}

// Execute holds the write lock across validate and mutate so the mutation
// lands exactly on the state the validation saw.
func (s *InMemory) Execute(_ context.Context, dni id.DNI, eventID string,
	validate func(*models.Participant) error,
	mutate func(*models.Participant)) (*models.Participant, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{dni: dni, eventID: eventID}
	p, ok := s.participants[k]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)
	p.Version++
	p.UpdatedAt = time.Now()
	return p.Clone(), nil
}
