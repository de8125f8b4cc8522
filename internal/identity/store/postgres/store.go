package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"acredita/internal/identity/models"
	id "acredita/pkg/domain"
	"acredita/pkg/platform/sentinel"
	txcontext "acredita/pkg/platform/tx"
)

// Store implements the user store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL user store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `uid, email, nombre, password_hash, role, organization_id, created_at`

func (s *Store) CreateIfEmailFree(ctx context.Context, user *models.User) error {
	const query = `
		INSERT INTO users (uid, email, nombre, password_hash, role, organization_id, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE NOT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($2))
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		user.UID, user.Email, user.Nombre, user.PasswordHash,
		string(user.Role), user.OrganizationID, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *Store) FindByUID(ctx context.Context, uid string) (*models.User, error) {
	query := `SELECT ` + selectColumns + ` FROM users WHERE uid = $1`
	return s.findOne(ctx, query, uid)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + selectColumns + ` FROM users WHERE LOWER(email) = $1`
	return s.findOne(ctx, query, strings.ToLower(email))
}

func (s *Store) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return user, err
}

func (s *Store) ListByOrg(ctx context.Context, organizationID string) ([]*models.User, error) {
	query := `SELECT ` + selectColumns + ` FROM users WHERE organization_id = $1 ORDER BY email`
	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, uid string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM users WHERE uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
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

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	err := row.Scan(&u.UID, &u.Email, &u.Nombre, &u.PasswordHash, &role, &u.OrganizationID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = id.Role(role)
	return &u, nil
}
