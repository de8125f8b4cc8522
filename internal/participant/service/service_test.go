package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	emodels "acredita/internal/event/models"
	eventmemory "acredita/internal/event/store/memory"
	"acredita/internal/participant/models"
	participantmemory "acredita/internal/participant/store/memory"
	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/requestcontext"
)

const eventID = "evt-1"

type fixture struct {
	svc          *Service
	participants *participantmemory.InMemory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	events := eventmemory.NewInMemory()
	event, err := emodels.New(eventID, "org-1", "Jornadas", nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, events.Create(context.Background(), event))

	participants := participantmemory.NewInMemory()
	return &fixture{
		svc:          New(participants, events),
		participants: participants,
	}
}

func adminCtx() context.Context {
	return requestcontext.WithActor(context.Background(), requestcontext.ActorContext{
		UID: "admin-1", Role: id.RoleAdmin, OrganizationID: "org-1",
	})
}

func TestUpsert(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Upsert(adminCtx(), eventID, UpsertRequest{
		DNI: "12345678z", Nombre: "Jose Perez", Email: "jose@example.com",
		Permisos: models.Permisos{Cena: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "12345678Z", p.DNI.String(), "key is stored canonically")
	assert.True(t, p.Permisos.Cena)
	assert.False(t, p.Estado.Registrado)

	t.Run("upsert never touches estado", func(t *testing.T) {
		_, err := f.participants.Execute(context.Background(), "12345678Z", eventID,
			func(*models.Participant) error { return nil },
			func(p *models.Participant) { p.Estado.Registrado = true })
		require.NoError(t, err)

		updated, err := f.svc.Upsert(adminCtx(), eventID, UpsertRequest{DNI: "12345678Z", Nombre: "Jose Perez"})
		require.NoError(t, err)
		assert.True(t, updated.Estado.Registrado, "admin edits keep accumulated scan state")
	})

	t.Run("bad dni is a validation error", func(t *testing.T) {
		_, err := f.svc.Upsert(adminCtx(), eventID, UpsertRequest{DNI: "nope", Nombre: "X"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := f.svc.Upsert(adminCtx(), "missing", UpsertRequest{DNI: "12345678Z", Nombre: "X"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("wrong organization", func(t *testing.T) {
		ctx := requestcontext.WithActor(context.Background(), requestcontext.ActorContext{
			UID: "a2", Role: id.RoleAdmin, OrganizationID: "org-2",
		})
		_, err := f.svc.Upsert(ctx, eventID, UpsertRequest{DNI: "12345678Z", Nombre: "X"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Upsert(adminCtx(), eventID, UpsertRequest{DNI: "12345678Z", Nombre: "Jose Perez"})
	require.NoError(t, err)

	_, err = f.participants.Execute(context.Background(), "12345678Z", eventID,
		func(*models.Participant) error { return nil },
		func(p *models.Participant) {
			p.Estado = models.Estado{Registrado: true, EnCena: true}
		})
	require.NoError(t, err)

	p, err := f.svc.Reset(adminCtx(), eventID, "12345678Z")
	require.NoError(t, err)
	assert.Equal(t, models.Estado{}, p.Estado)

	_, err = f.svc.Reset(adminCtx(), eventID, "87654321X")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestImportCSV(t *testing.T) {
	f := newFixture(t)

	csv := strings.Join([]string{
		"dni,nombre,email,ha_pagado,cena",
		"12345678Z,Jose Perez,jose@example.com,true,1",
		"not-a-dni,Bad Row,,false,0",
		"87654321X,Ana Lopez,,false,true",
	}, "\n")

	report, err := f.svc.ImportCSV(adminCtx(), eventID, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed[0], "line 3", "failed rows keep their line number")

	p, err := f.svc.Get(adminCtx(), eventID, "87654321X")
	require.NoError(t, err)
	assert.True(t, p.Permisos.Cena)
	assert.False(t, p.HaPagado)

	t.Run("missing dni column aborts", func(t *testing.T) {
		_, err := f.svc.ImportCSV(adminCtx(), eventID, strings.NewReader("nombre\nJose"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("empty stream aborts", func(t *testing.T) {
		_, err := f.svc.ImportCSV(adminCtx(), eventID, strings.NewReader(""))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestExportCSVRoundTrip(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Upsert(adminCtx(), eventID, UpsertRequest{
		DNI: "12345678Z", Nombre: "Jose Perez", HaPagado: true,
		Permisos: models.Permisos{AulaMagna: true},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportCSV(adminCtx(), eventID, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(csvHeader, ","), lines[0])
	assert.Contains(t, lines[1], "12345678Z,Jose Perez")

	// The export feeds back through import unchanged.
	other := newFixture(t)
	report, err := other.svc.ImportCSV(adminCtx(), eventID, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Empty(t, report.Failed)

	p, err := other.svc.Get(adminCtx(), eventID, "12345678Z")
	require.NoError(t, err)
	assert.True(t, p.HaPagado)
	assert.True(t, p.Permisos.AulaMagna)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Upsert(adminCtx(), eventID, UpsertRequest{DNI: "12345678Z", Nombre: "Jose Perez"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(adminCtx(), eventID, "12345678Z"))
	_, err = f.svc.Get(adminCtx(), eventID, "12345678Z")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	err = f.svc.Delete(adminCtx(), eventID, "12345678Z")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
