// Package service exposes read access to the audit log for event dashboards.
package service

import (
	"context"
	"errors"
	"log/slog"

	"acredita/internal/accesslog"
	"acredita/internal/event/models"
	"acredita/internal/policy"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/platform/sentinel"
	"acredita/pkg/requestcontext"
)

// EventGetter scopes log reads to an event the actor may see.
type EventGetter interface {
	FindByID(ctx context.Context, eventID string) (*models.Event, error)
}

const defaultListLimit = 200

// Service reads the access log on behalf of org-scoped admins.
type Service struct {
	logs   accesslog.Store
	events EventGetter
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs a Service.
func New(logs accesslog.Store, events EventGetter, opts ...Option) *Service {
	s := &Service{logs: logs, events: events, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) authorize(ctx context.Context, eventID string) error {
	event, err := s.events.FindByID(ctx, eventID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	return policy.RequireOrgAdmin(requestcontext.Actor(ctx), event.OrganizationID)
}

// ListByEvent returns the most recent entries for an event, newest first.
func (s *Service) ListByEvent(ctx context.Context, eventID string, limit int) ([]accesslog.Entry, error) {
	if err := s.authorize(ctx, eventID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	entries, err := s.logs.ListByEvent(ctx, eventID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list access log")
	}
	return entries, nil
}

// ListByDNI returns one participant's full scan history within an event.
func (s *Service) ListByDNI(ctx context.Context, eventID, dni string) ([]accesslog.Entry, error) {
	if err := s.authorize(ctx, eventID); err != nil {
		return nil, err
	}
	entries, err := s.logs.ListByDNI(ctx, eventID, dni)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list access log")
	}
	return entries, nil
}
