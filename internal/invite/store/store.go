// Package store defines the invitation persistence contract.
package store

import (
	"context"
	"time"

	"acredita/internal/invite/models"
)

// Store persists invitations. Implementations return pkg/platform/sentinel
// errors: Create returns ErrAlreadyUsed when a pending invitation for the
// email exists, FindByToken returns ErrNotFound for unknown tokens.
type Store interface {
	Create(ctx context.Context, inv *models.Invitation) error
	FindByToken(ctx context.Context, token string) (*models.Invitation, error)
	ListByOrg(ctx context.Context, organizationID string) ([]*models.Invitation, error)
	MarkAccepted(ctx context.Context, invID string, at time.Time) error
	Delete(ctx context.Context, invID string) error
}
