// Package store defines the participant persistence contract.
//
// Implementations return pkg/platform/sentinel errors for infrastructure
// facts (ErrNotFound, ErrConflict); services translate them into coded domain
// errors.
package store

import (
	"context"

	"acredita/internal/participant/models"
	id "acredita/pkg/domain"
)

// Store persists participants scoped per event. The (dni, eventID) pair is
// the document key.
type Store interface {
	GetByKey(ctx context.Context, dni id.DNI, eventID string) (*models.Participant, error)
	Upsert(ctx context.Context, p *models.Participant) error
	Delete(ctx context.Context, dni id.DNI, eventID string) error
	ListByEvent(ctx context.Context, eventID string) ([]*models.Participant, error)
	CountByEvent(ctx context.Context, eventID string) (int, error)
	DeleteByEvent(ctx context.Context, eventID string) error

	// Execute atomically runs validate then mutate against the current
	// document. The store holds its lock (mutex in memory, row lock plus
	// version compare-and-swap in postgres) across both callbacks, so the
	// mutation only lands on the state the validation saw. Returns the
	// mutated participant.
	Execute(ctx context.Context, dni id.DNI, eventID string,
		validate func(*models.Participant) error,
		mutate func(*models.Participant)) (*models.Participant, error)
}
