package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acredita/internal/participant/models"
	"acredita/pkg/platform/sentinel"
)

func newParticipant(t *testing.T, dni string) *models.Participant {
	t.Helper()
	p, err := models.New(dni, "evt-1", "Jose Perez", time.Now())
	require.NoError(t, err)
	return p
}

func TestClonesIsolateCallers(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, newParticipant(t, "12345678Z")))

	got, err := s.GetByKey(ctx, "12345678Z", "evt-1")
	require.NoError(t, err)
	got.Nombre = "Mutated"

	again, err := s.GetByKey(ctx, "12345678Z", "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "Jose Perez", again.Nombre, "returned values are copies")
}

func TestUpsertBumpsVersion(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	p := newParticipant(t, "12345678Z")
	require.NoError(t, s.Upsert(ctx, p))
	assert.EqualValues(t, 1, p.Version)

	require.NoError(t, s.Upsert(ctx, p))
	assert.EqualValues(t, 2, p.Version)
}

func TestExecute(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, newParticipant(t, "12345678Z")))

	t.Run("validate failure leaves the record untouched", func(t *testing.T) {
		boom := errors.New("nope")
		_, err := s.Execute(ctx, "12345678Z", "evt-1",
			func(*models.Participant) error { return boom },
			func(p *models.Participant) { p.Estado.Registrado = true },
		)
		require.ErrorIs(t, err, boom)

		got, err := s.GetByKey(ctx, "12345678Z", "evt-1")
		require.NoError(t, err)
		assert.False(t, got.Estado.Registrado)
	})

	t.Run("mutation lands and bumps the version", func(t *testing.T) {
		before, err := s.GetByKey(ctx, "12345678Z", "evt-1")
		require.NoError(t, err)

		got, err := s.Execute(ctx, "12345678Z", "evt-1",
			func(*models.Participant) error { return nil },
			func(p *models.Participant) { p.Estado.Registrado = true },
		)
		require.NoError(t, err)
		assert.True(t, got.Estado.Registrado)
		assert.Equal(t, before.Version+1, got.Version)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Execute(ctx, "87654321X", "evt-1",
			func(*models.Participant) error { return nil },
			func(*models.Participant) {},
		)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestDeleteByEventScopes(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, newParticipant(t, "12345678Z")))

	other, err := models.New("12345678Z", "evt-2", "Jose Perez", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, other))

	require.NoError(t, s.DeleteByEvent(ctx, "evt-1"))

	_, err = s.GetByKey(ctx, "12345678Z", "evt-1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = s.GetByKey(ctx, "12345678Z", "evt-2")
	assert.NoError(t, err, "the same dni under another event is untouched")
}
