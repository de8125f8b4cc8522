package accesslog

import "context"

// Store persists scan attempts as an append-only audit log. Implementations
// must never mutate an entry after Append returns.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByEvent(ctx context.Context, eventID string, limit int) ([]Entry, error)
	ListByDNI(ctx context.Context, eventID, dni string) ([]Entry, error)
	CountByEvent(ctx context.Context, eventID string) (int, error)
	DeleteByEvent(ctx context.Context, eventID string) error
}
