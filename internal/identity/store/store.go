// Package store defines the user persistence contract.
package store

import (
	"context"

	"acredita/internal/identity/models"
)

// Store persists operator accounts. Implementations return
// pkg/platform/sentinel errors for infrastructure facts; CreateIfEmailFree
// returns ErrAlreadyUsed when the email is taken (case-insensitive).
type Store interface {
	CreateIfEmailFree(ctx context.Context, user *models.User) error
	FindByUID(ctx context.Context, uid string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ListByOrg(ctx context.Context, organizationID string) ([]*models.User, error)
	Delete(ctx context.Context, uid string) error
}
