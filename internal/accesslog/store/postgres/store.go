package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"acredita/internal/accesslog"
	id "acredita/pkg/domain"
	txcontext "acredita/pkg/platform/tx"
)

// Store implements accesslog.Store on PostgreSQL. Each Append writes the entry
// to access_log for querying and to the outbox table for Kafka publication by
// the publisher worker, in the same transaction when one is in context.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL access log store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
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

// outboxPayload is the JSON structure published to Kafka. Field names match
// accesslog.Entry tags so consumers can decode directly.
type outboxPayload struct {
	ID        string `json:"id"`
	EventID   string `json:"eventId"`
	DNI       string `json:"dni"`
	Nombre    string `json:"nombre,omitempty"`
	Modo      string `json:"modo"`
	Direccion string `json:"direccion"`
	Exitoso   bool   `json:"exitoso"`
	Mensaje   string `json:"mensaje"`
	Operador  string `json:"operador,omitempty"`
	DeviceID  string `json:"deviceId,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Append inserts the entry and its outbox row.
func (s *Store) Append(ctx context.Context, entry accesslog.Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	const insertEntry = `
		INSERT INTO access_log (
			id, event_id, dni, nombre, modo, direccion,
			exitoso, mensaje, operador, device_id, ts
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, insertEntry,
		entry.ID,
		entry.EventID,
		entry.DNI,
		entry.Nombre,
		string(entry.Modo),
		string(entry.Direccion),
		entry.Exitoso,
		entry.Mensaje,
		entry.Operador,
		entry.DeviceID,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert access log entry: %w", err)
	}

	payload := outboxPayload{
		ID:        entry.ID.String(),
		EventID:   entry.EventID,
		DNI:       entry.DNI,
		Nombre:    entry.Nombre,
		Modo:      string(entry.Modo),
		Direccion: string(entry.Direccion),
		Exitoso:   entry.Exitoso,
		Mensaje:   entry.Mensaje,
		Operador:  entry.Operador,
		DeviceID:  entry.DeviceID,
		Timestamp: entry.Timestamp.Format(time.RFC3339Nano),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	const insertOutbox = `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, insertOutbox,
		uuid.New(),
		"access_log",
		entry.EventID,
		"scan_recorded",
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListByEvent returns the most recent entries for an event.
func (s *Store) ListByEvent(ctx context.Context, eventID string, limit int) ([]accesslog.Entry, error) {
	if limit <= 0 {
		limit = 500
	}
	const query = `
		SELECT id, event_id, dni, nombre, modo, direccion,
		       exitoso, mensaje, operador, device_id, ts
		FROM access_log
		WHERE event_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("query access log: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListByDNI returns all entries for one participant within an event.
func (s *Store) ListByDNI(ctx context.Context, eventID, dni string) ([]accesslog.Entry, error) {
	const query = `
		SELECT id, event_id, dni, nombre, modo, direccion,
		       exitoso, mensaje, operador, device_id, ts
		FROM access_log
		WHERE event_id = $1 AND dni = $2
		ORDER BY ts DESC
	`
	rows, err := s.db.QueryContext(ctx, query, eventID, dni)
	if err != nil {
		return nil, fmt.Errorf("query access log: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// CountByEvent returns the total number of recorded attempts for an event.
func (s *Store) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM access_log WHERE event_id = $1`, eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count access log: %w", err)
	}
	return count, nil
}

// DeleteByEvent removes the audit trail for an event. Used only by the admin
// cascade when an event is deleted.
func (s *Store) DeleteByEvent(ctx context.Context, eventID string) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM access_log WHERE event_id = $1`, eventID,
	)
	if err != nil {
		return fmt.Errorf("delete access log: %w", err)
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]accesslog.Entry, error) {
	var entries []accesslog.Entry
	for rows.Next() {
		var (
			e    accesslog.Entry
			modo string
			dir  string
		)
		err := rows.Scan(
			&e.ID,
			&e.EventID,
			&e.DNI,
			&e.Nombre,
			&modo,
			&dir,
			&e.Exitoso,
			&e.Mensaje,
			&e.Operador,
			&e.DeviceID,
			&e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan access log entry: %w", err)
		}
		e.Modo = id.AccessMode(modo)
		e.Direccion = id.Direction(dir)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access log entries: %w", err)
	}
	return entries, nil
}
