package checkin

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"acredita/internal/accesslog"
	"acredita/pkg/requestcontext"
)

// LogWriter appends one immutable audit entry per scan attempt, success or
// failure. Partial context (missing operator, no participant snapshot) is
// fine; a thin log beats a scan going unrecorded.
type LogWriter struct {
	store  accesslog.Store
	logger *slog.Logger
}

func NewLogWriter(store accesslog.Store, logger *slog.Logger) *LogWriter {
	return &LogWriter{store: store, logger: logger}
}

// Record writes the entry, filling in ID, timestamp, operator, and device
// from context when absent. A write failure is returned so the caller can
// surface it as a warning, and logged here so it is never silently dropped;
// it must not block the operator-visible result.
func (w *LogWriter) Record(ctx context.Context, entry accesslog.Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if entry.DNI == "" {
		entry.DNI = "unknown"
	}
	if entry.Operador == "" {
		entry.Operador = requestcontext.Actor(ctx).UID
	}
	if entry.DeviceID == "" {
		entry.DeviceID = requestcontext.DeviceID(ctx)
	}

	if err := w.store.Append(ctx, entry); err != nil {
		w.logger.ErrorContext(ctx, "access log write failed",
			"event_id", entry.EventID,
			"dni", entry.DNI,
			"modo", entry.Modo.String(),
			"error", err,
		)
		return err
	}
	return nil
}
