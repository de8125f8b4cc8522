// Package service orchestrates event lifecycle management.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"acredita/internal/event/models"
	"acredita/internal/event/store"
	"acredita/internal/platform/metrics"
	"acredita/internal/policy"
	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/platform/sentinel"
	"acredita/pkg/requestcontext"
)

// ParticipantCascade is the slice of the participant store the event service
// needs when deleting an event.
type ParticipantCascade interface {
	DeleteByEvent(ctx context.Context, eventID string) error
	CountByEvent(ctx context.Context, eventID string) (int, error)
}

// LogCascade is the slice of the access log store used for cascade deletes
// and log counts.
type LogCascade interface {
	DeleteByEvent(ctx context.Context, eventID string) error
	CountByEvent(ctx context.Context, eventID string) (int, error)
}

// TxRunner runs fn with a shared transaction in the context so the stores'
// writes commit or roll back together. The default runs fn directly, which
// is correct for the memory stores.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Service manages events on behalf of org-scoped admins.
type Service struct {
	events       store.Store
	participants ParticipantCascade
	logs         LogCascade
	tx           TxRunner
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) { s.tx = tx }
}

// New constructs a Service.
func New(events store.Store, participants ParticipantCascade, logs LogCascade, opts ...Option) *Service {
	s := &Service{events: events, participants: participants, logs: logs, tx: passthroughTx{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a draft event in the actor's organization.
func (s *Service) Create(ctx context.Context, nombre string, modos []id.AccessMode) (*models.Event, error) {
	actor := requestcontext.Actor(ctx)
	if err := policy.RequireAdmin(actor); err != nil {
		return nil, err
	}

	event, err := models.New(uuid.NewString(), actor.OrganizationID, nombre, modos, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.events.Create(ctx, event); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "event already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
	}

	s.metrics.IncrementEventsCreated()
	s.logger.InfoContext(ctx, "event created",
		"event_id", event.ID, "organization_id", event.OrganizationID, "actor", actor.UID)
	return event, nil
}

// Get returns an event the actor may see.
func (s *Service) Get(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, wrapEventErr(err)
	}
	if err := policy.RequireOrgAccess(requestcontext.Actor(ctx), event.OrganizationID); err != nil {
		return nil, err
	}
	return event, nil
}

// List returns the actor's organization's events.
func (s *Service) List(ctx context.Context) ([]*models.Event, error) {
	actor := requestcontext.Actor(ctx)
	if err := policy.RequireAdmin(actor); err != nil {
		return nil, err
	}
	events, err := s.events.ListByOrg(ctx, actor.OrganizationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

// Transition moves an event along its lifecycle using the store's guarded
// Execute so concurrent transitions cannot skip a state.
func (s *Service) Transition(ctx context.Context, eventID string, next models.Status) (*models.Event, error) {
	current, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := policy.RequireOrgAdmin(requestcontext.Actor(ctx), current.OrganizationID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	event, err := s.events.Execute(ctx, eventID,
		func(e *models.Event) error {
			if err := e.CanTransition(next); err != nil {
				if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
					return dErrors.New(dErrors.CodeConflict, err.Error())
				}
				return err
			}
			return nil
		},
		func(e *models.Event) {
			e.ApplyTransition(next, now)
		},
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}
	s.logger.InfoContext(ctx, "event transitioned", "event_id", eventID, "status", string(next))
	return event, nil
}

// Update changes the event's name and enabled modes.
func (s *Service) Update(ctx context.Context, eventID, nombre string, modos []id.AccessMode) (*models.Event, error) {
	current, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := policy.RequireOrgAdmin(requestcontext.Actor(ctx), current.OrganizationID); err != nil {
		return nil, err
	}
	for _, m := range modos {
		if !m.IsValid() {
			return nil, dErrors.Newf(dErrors.CodeValidation, "unknown access mode %q", m)
		}
	}

	event, err := s.events.Execute(ctx, eventID,
		func(e *models.Event) error {
			if e.Status == models.StatusArchived {
				return dErrors.New(dErrors.CodeConflict, "archived events are immutable")
			}
			return nil
		},
		func(e *models.Event) {
			if nombre != "" {
				e.Nombre = nombre
			}
			if len(modos) > 0 {
				e.Modos = modos
			}
		},
	)
	if err != nil {
		return nil, wrapEventErr(err)
	}
	return event, nil
}

// Delete removes an event and cascades to its participants and access logs.
func (s *Service) Delete(ctx context.Context, eventID string, cascadeLogs bool) error {
	current, err := s.Get(ctx, eventID)
	if err != nil {
		return err
	}
	actor := requestcontext.Actor(ctx)
	if err := policy.RequireOrgAdmin(actor, current.OrganizationID); err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.participants.DeleteByEvent(ctx, eventID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete event participants")
		}
		if cascadeLogs {
			if err := s.logs.DeleteByEvent(ctx, eventID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete event access logs")
			}
		}
		if err := s.events.Delete(ctx, eventID); err != nil {
			return wrapEventErr(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "event deleted", "event_id", eventID, "actor", actor.UID, "cascade_logs", cascadeLogs)
	return nil
}

// Stats returns headline counts for an event's dashboard.
func (s *Service) Stats(ctx context.Context, eventID string) (participants int, scans int, err error) {
	if _, err := s.Get(ctx, eventID); err != nil {
		return 0, 0, err
	}
	participants, err = s.participants.CountByEvent(ctx, eventID)
	if err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count participants")
	}
	scans, err = s.logs.CountByEvent(ctx, eventID)
	if err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count scans")
	}
	return participants, scans, nil
}

func wrapEventErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	case dErrors.HasCode(err, dErrors.CodeConflict),
		dErrors.HasCode(err, dErrors.CodeForbidden),
		dErrors.HasCode(err, dErrors.CodeUnauthorized),
		dErrors.HasCode(err, dErrors.CodeValidation):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "event store failure")
	}
}
