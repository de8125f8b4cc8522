package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accesslogmemory "acredita/internal/accesslog/store/memory"
	"acredita/internal/event/models"
	eventmemory "acredita/internal/event/store/memory"
	pmodels "acredita/internal/participant/models"
	participantmemory "acredita/internal/participant/store/memory"
	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/requestcontext"
)

type fixture struct {
	svc          *Service
	events       *eventmemory.InMemory
	participants *participantmemory.InMemory
	logs         *accesslogmemory.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		events:       eventmemory.NewInMemory(),
		participants: participantmemory.NewInMemory(),
		logs:         accesslogmemory.NewInMemoryStore(),
	}
	f.svc = New(f.events, f.participants, f.logs)
	return f
}

func adminCtx(orgID string) context.Context {
	ctx := requestcontext.WithActor(context.Background(), requestcontext.ActorContext{
		UID: "admin-1", Role: id.RoleAdmin, OrganizationID: orgID,
	})
	return requestcontext.WithTime(ctx, time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	event, err := f.svc.Create(adminCtx("org-1"), "Jornadas 2026", []id.AccessMode{id.ModeRegistro, id.ModeCena})
	require.NoError(t, err)
	assert.Equal(t, "org-1", event.OrganizationID)
	assert.Equal(t, models.StatusDraft, event.Status, "new events start as drafts")
	assert.NotEmpty(t, event.ID)

	t.Run("empty name is a validation error", func(t *testing.T) {
		_, err := f.svc.Create(adminCtx("org-1"), "  ", nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("controllers cannot create events", func(t *testing.T) {
		ctx := requestcontext.WithActor(context.Background(), requestcontext.ActorContext{
			UID: "c1", Role: id.RoleControlador, OrganizationID: "org-1",
		})
		_, err := f.svc.Create(ctx, "Jornadas", nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestGetScopesToOrganization(t *testing.T) {
	f := newFixture(t)
	event, err := f.svc.Create(adminCtx("org-1"), "Jornadas", nil)
	require.NoError(t, err)

	_, err = f.svc.Get(adminCtx("org-2"), event.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = f.svc.Get(adminCtx("org-1"), "missing")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestTransition(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx("org-1")
	event, err := f.svc.Create(ctx, "Jornadas", nil)
	require.NoError(t, err)

	t.Run("walks the lifecycle in order", func(t *testing.T) {
		for _, next := range []models.Status{
			models.StatusActive, models.StatusCompleted, models.StatusArchived,
		} {
			updated, err := f.svc.Transition(ctx, event.ID, next)
			require.NoError(t, err)
			assert.Equal(t, next, updated.Status)
		}
	})

	t.Run("skipping a state conflicts", func(t *testing.T) {
		other, err := f.svc.Create(ctx, "Otro", nil)
		require.NoError(t, err)
		_, err = f.svc.Transition(ctx, other.ID, models.StatusCompleted)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("archived is terminal", func(t *testing.T) {
		_, err := f.svc.Transition(ctx, event.ID, models.StatusActive)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx("org-1")
	event, err := f.svc.Create(ctx, "Jornadas", nil)
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, event.ID, "Jornadas 2026", []id.AccessMode{id.ModeCena})
	require.NoError(t, err)
	assert.Equal(t, "Jornadas 2026", updated.Nombre)
	assert.Equal(t, []id.AccessMode{id.ModeCena}, updated.Modos)

	t.Run("empty fields are left untouched", func(t *testing.T) {
		updated, err := f.svc.Update(ctx, event.ID, "", nil)
		require.NoError(t, err)
		assert.Equal(t, "Jornadas 2026", updated.Nombre)
		assert.Equal(t, []id.AccessMode{id.ModeCena}, updated.Modos)
	})

	t.Run("unknown mode is rejected", func(t *testing.T) {
		_, err := f.svc.Update(ctx, event.ID, "", []id.AccessMode{"backstage"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx("org-1")
	event, err := f.svc.Create(ctx, "Jornadas", nil)
	require.NoError(t, err)

	p, err := pmodels.New("12345678Z", event.ID, "Jose Perez", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.participants.Upsert(ctx, p))

	require.NoError(t, f.svc.Delete(ctx, event.ID, false))

	_, err = f.svc.Get(ctx, event.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	count, err := f.participants.CountByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "participants go with the event")
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx("org-1")
	event, err := f.svc.Create(ctx, "Jornadas", nil)
	require.NoError(t, err)

	p, err := pmodels.New("12345678Z", event.ID, "Jose Perez", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.participants.Upsert(ctx, p))

	participants, scans, err := f.svc.Stats(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, participants)
	assert.Equal(t, 0, scans)
}
