package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"acredita/internal/event/models"
	id "acredita/pkg/domain"
	"acredita/pkg/platform/sentinel"
	txcontext "acredita/pkg/platform/tx"
)

// Store implements the event store on PostgreSQL. Modos is stored as a
// comma-joined text column; the set is tiny and fixed.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL event store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `id, organization_id, nombre, status, modos, created_at, updated_at`

func (s *Store) Create(ctx context.Context, event *models.Event) error {
	const query = `
		INSERT INTO events (id, organization_id, nombre, status, modos, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID, event.OrganizationID, event.Nombre, string(event.Status),
		joinModos(event.Modos), event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, eventID string) (*models.Event, error) {
	query := `SELECT ` + selectColumns + ` FROM events WHERE id = $1`
	event, err := scanEvent(s.db.QueryRowContext(ctx, query, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return event, err
}

func (s *Store) Update(ctx context.Context, event *models.Event) error {
	const query = `
		UPDATE events SET nombre = $1, status = $2, modos = $3, updated_at = NOW()
		WHERE id = $4
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		event.Nombre, string(event.Status), joinModos(event.Modos), event.ID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) ListByOrg(ctx context.Context, organizationID string) ([]*models.Event, error) {
	query := `SELECT ` + selectColumns + ` FROM events WHERE organization_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, eventID string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Execute runs validate and mutate under a SELECT ... FOR UPDATE row lock.
func (s *Store) Execute(ctx context.Context, eventID string,
	validate func(*models.Event) error,
	mutate func(*models.Event)) (*models.Event, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin event update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + selectColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	event, err := scanEvent(tx.QueryRowContext(ctx, query, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := validate(event); err != nil {
		return nil, err
	}
	mutate(event)

	const update = `UPDATE events SET nombre = $1, status = $2, modos = $3, updated_at = NOW() WHERE id = $4`
	if _, err := tx.ExecContext(ctx, update,
		event.Nombre, string(event.Status), joinModos(event.Modos), event.ID,
	); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit event update: %w", err)
	}
	return event, nil
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

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		e      models.Event
		status string
		modos  string
	)
	err := row.Scan(&e.ID, &e.OrganizationID, &e.Nombre, &status, &modos, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.Status = models.Status(status)
	e.Modos = splitModos(modos)
	return &e, nil
}

func joinModos(modos []id.AccessMode) string {
	parts := make([]string, len(modos))
	for i, m := range modos {
		parts[i] = string(m)
	}
	return strings.Join(parts, ",")
}

func splitModos(joined string) []id.AccessMode {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	modos := make([]id.AccessMode, len(parts))
	for i, p := range parts {
		modos[i] = id.AccessMode(p)
	}
	return modos
}
