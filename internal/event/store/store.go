// Package store defines the event persistence contract.
package store

import (
	"context"

	"acredita/internal/event/models"
)

// Store persists events. Implementations return pkg/platform/sentinel errors
// for infrastructure facts.
type Store interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, eventID string) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	ListByOrg(ctx context.Context, organizationID string) ([]*models.Event, error)
	Delete(ctx context.Context, eventID string) error

	// Execute atomically runs validate then mutate under the store's lock,
	// mirroring the participant store's guarded update for lifecycle moves.
	Execute(ctx context.Context, eventID string,
		validate func(*models.Event) error,
		mutate func(*models.Event)) (*models.Event, error)
}
