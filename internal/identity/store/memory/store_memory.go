package memory

import (
	"context"
	"strings"
	"sync"

	"acredita/internal/identity/models"
	"acredita/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded user store used by unit tests and
// single-node deployments.
type InMemory struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[string]*models.User)}
}

func (s *InMemory) CreateIfEmailFree(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.users[user.UID] = user.Clone()
	return nil
}

func (s *InMemory) FindByUID(_ context.Context, uid string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[uid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return user.Clone(), nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return user.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListByOrg(_ context.Context, organizationID string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.User
	for _, user := range s.users {
		if user.OrganizationID == organizationID {
			out = append(out, user.Clone())
		}
	}
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[uid]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, uid)
	return nil
}
