package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"acredita/internal/invite/models"
	id "acredita/pkg/domain"
	"acredita/pkg/platform/sentinel"
	txcontext "acredita/pkg/platform/tx"
)

// Store implements the invitation store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL invitation store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `id, token, email, role, organization_id, invited_by, created_at, expires_at, accepted_at`

func (s *Store) Create(ctx context.Context, inv *models.Invitation) error {
	const query = `
		INSERT INTO invitations (id, token, email, role, organization_id, invited_by, created_at, expires_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE NOT EXISTS (
			SELECT 1 FROM invitations
			WHERE LOWER(email) = LOWER($3) AND accepted_at IS NULL
		)
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		inv.ID, inv.Token, inv.Email, string(inv.Role), inv.OrganizationID,
		inv.InvitedBy, inv.CreatedAt, inv.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *Store) FindByToken(ctx context.Context, token string) (*models.Invitation, error) {
	query := `SELECT ` + selectColumns + ` FROM invitations WHERE token = $1`
	inv, err := scanInvitation(s.db.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return inv, err
}

func (s *Store) ListByOrg(ctx context.Context, organizationID string) ([]*models.Invitation, error) {
	query := `SELECT ` + selectColumns + ` FROM invitations WHERE organization_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var out []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) MarkAccepted(ctx context.Context, invID string, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE invitations SET accepted_at = $2 WHERE id = $1`, invID, at)
	if err != nil {
		return fmt.Errorf("mark invitation accepted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark invitation accepted: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, invID string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, invID)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (*models.Invitation, error) {
	var (
		inv      models.Invitation
		role     string
		accepted sql.NullTime
	)
	err := row.Scan(&inv.ID, &inv.Token, &inv.Email, &role, &inv.OrganizationID,
		&inv.InvitedBy, &inv.CreatedAt, &inv.ExpiresAt, &accepted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan invitation: %w", err)
	}
	inv.Role = id.Role(role)
	if accepted.Valid {
		t := accepted.Time
		inv.AcceptedAt = &t
	}
	return &inv, nil
}
