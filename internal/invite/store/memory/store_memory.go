package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"acredita/internal/invite/models"
	"acredita/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded invitation store.
type InMemory struct {
	mu          sync.RWMutex
	invitations map[string]*models.Invitation
}

func NewInMemory() *InMemory {
	return &InMemory{invitations: make(map[string]*models.Invitation)}
}

func (s *InMemory) Create(_ context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invitations {
		if !existing.Accepted() && strings.EqualFold(existing.Email, inv.Email) {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.invitations[inv.ID] = inv.Clone()
	return nil
}

func (s *InMemory) FindByToken(_ context.Context, token string) (*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.invitations {
		if inv.Token == token {
			return inv.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListByOrg(_ context.Context, organizationID string) ([]*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Invitation
	for _, inv := range s.invitations {
		if inv.OrganizationID == organizationID {
			out = append(out, inv.Clone())
		}
	}
	return out, nil
}

func (s *InMemory) MarkAccepted(_ context.Context, invID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[invID]
	if !ok {
		return sentinel.ErrNotFound
	}
	t := at
	inv.AcceptedAt = &t
	return nil
}

func (s *InMemory) Delete(_ context.Context, invID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invitations[invID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.invitations, invID)
	return nil
}
