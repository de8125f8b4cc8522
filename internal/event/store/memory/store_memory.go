package memory

import (
	"context"
	"sync"
	"time"

	"acredita/internal/event/models"
	"acredita/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded event store used by unit tests and
// single-node deployments.
type InMemory struct {
	mu     sync.RWMutex
	events map[string]*models.Event
}

func NewInMemory() *InMemory {
	return &InMemory{events: make(map[string]*models.Event)}
}

func (s *InMemory) Create(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return sentinel.ErrConflict
	}
	s.events[event.ID] = event.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, eventID string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return event.Clone(), nil
}

func (s *InMemory) Update(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.events[event.ID] = event.Clone()
	return nil
}

func (s *InMemory) ListByOrg(_ context.Context, organizationID string) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Event
	for _, event := range s.events {
		if event.OrganizationID == organizationID {
			out = append(out, event.Clone())
		}
	}
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.events, eventID)
	return nil
}

func (s *InMemory) Execute(_ context.Context, eventID string,
	validate func(*models.Event) error,
	mutate func(*models.Event)) (*models.Event, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(event); err != nil {
		return nil, err
	}
	mutate(event)
	event.UpdatedAt = time.Now()
	return event.Clone(), nil
}
