package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"acredita/internal/participant/models"
	id "acredita/pkg/domain"
	"acredita/pkg/platform/sentinel"
	txcontext "acredita/pkg/platform/tx"
)

// Store implements the participant store on PostgreSQL. Estado mutations go
// through Execute, which takes a row lock and uses the version column as a
// compare-and-swap precondition.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL participant store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `
	dni, event_id, nombre, email, telefono, escuela, cargo, entitat,
	ha_pagado,
	permiso_aula_magna, permiso_master_class, permiso_cena,
	registrado, en_aula_magna, en_master_class, en_cena,
	version, created_at, updated_at
`

func (s *Store) GetByKey(ctx context.Context, dni id.DNI, eventID string) (*models.Participant, error) {
	query := `SELECT ` + selectColumns + ` FROM participants WHERE dni = $1 AND event_id = $2`
	row := s.db.QueryRowContext(ctx, query, string(dni), eventID)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return p, err
}

func (s *Store) Upsert(ctx context.Context, p *models.Participant) error {
	const query = `
		INSERT INTO participants (
			dni, event_id, nombre, email, telefono, escuela, cargo, entitat,
			ha_pagado,
			permiso_aula_magna, permiso_master_class, permiso_cena,
			registrado, en_aula_magna, en_master_class, en_cena,
			version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1, NOW(), NOW())
		ON CONFLICT (dni, event_id) DO UPDATE SET
			nombre = EXCLUDED.nombre,
			email = EXCLUDED.email,
			telefono = EXCLUDED.telefono,
			escuela = EXCLUDED.escuela,
			cargo = EXCLUDED.cargo,
			entitat = EXCLUDED.entitat,
			ha_pagado = EXCLUDED.ha_pagado,
			permiso_aula_magna = EXCLUDED.permiso_aula_magna,
			permiso_master_class = EXCLUDED.permiso_master_class,
			permiso_cena = EXCLUDED.permiso_cena,
			version = participants.version + 1,
			updated_at = NOW()
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		string(p.DNI), p.EventID, p.Nombre, p.Email, p.Telefono, p.Escuela, p.Cargo, p.Entitat,
		p.HaPagado,
		p.Permisos.AulaMagna, p.Permisos.MasterClass, p.Permisos.Cena,
		p.Estado.Registrado, p.Estado.EnAulaMagna, p.Estado.EnMasterClass, p.Estado.EnCena,
	)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, dni id.DNI, eventID string) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM participants WHERE dni = $1 AND event_id = $2`, string(dni), eventID,
	)
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) ListByEvent(ctx context.Context, eventID string) ([]*models.Participant, error) {
	query := `SELECT ` + selectColumns + ` FROM participants WHERE event_id = $1 ORDER BY nombre`
	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE event_id = $1`, eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}

func (s *Store) DeleteByEvent(ctx context.Context, eventID string) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM participants WHERE event_id = $1`, eventID,
	)
	if err != nil {
		return fmt.Errorf("delete participants: %w", err)
	}
	return nil
}

// Execute runs validate and mutate inside one transaction holding a
// SELECT ... FOR UPDATE row lock. The UPDATE carries the version the row had
// under the lock as a compare-and-swap precondition, so a concurrent writer
// who slipped in anyway (for example through a different connection pool)
// causes ErrConflict instead of a lost update.
func (s *Store) Execute(ctx context.Context, dni id.DNI, eventID string,
	validate func(*models.Participant) error,
	mutate func(*models.Participant)) (*models.Participant, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin estado update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + selectColumns + ` FROM participants WHERE dni = $1 AND event_id = $2 FOR UPDATE`
	p, err := scanParticipant(tx.QueryRowContext(ctx, query, string(dni), eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := validate(p); err != nil {
		return nil, err
	}
	seenVersion := p.Version
	mutate(p)

	const update = `
		UPDATE participants SET
			registrado = $1, en_aula_magna = $2, en_master_class = $3, en_cena = $4,
			version = version + 1, updated_at = NOW()
		WHERE dni = $5 AND event_id = $6 AND version = $7
	`
	res, err := tx.ExecContext(ctx, update,
		p.Estado.Registrado, p.Estado.EnAulaMagna, p.Estado.EnMasterClass, p.Estado.EnCena,
		string(dni), eventID, seenVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("update estado: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update estado: %w", err)
	}
	if affected == 0 {
		return nil, sentinel.ErrConflict
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit estado update: %w", err)
	}
	p.Version = seenVersion + 1
	return p, nil
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

func scanParticipant(row rowScanner) (*models.Participant, error) {
	var (
		p   models.Participant
		dni string
	)
	err := row.Scan(
		&dni, &p.EventID, &p.Nombre, &p.Email, &p.Telefono, &p.Escuela, &p.Cargo, &p.Entitat,
		&p.HaPagado,
		&p.Permisos.AulaMagna, &p.Permisos.MasterClass, &p.Permisos.Cena,
		&p.Estado.Registrado, &p.Estado.EnAulaMagna, &p.Estado.EnMasterClass, &p.Estado.EnCena,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan participant: %w", err)
	}
	p.DNI = id.DNI(dni)
	return &p, nil
}
