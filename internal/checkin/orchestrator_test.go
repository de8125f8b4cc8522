package checkin

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acredita/internal/accesslog"
	accesslogmemory "acredita/internal/accesslog/store/memory"
	eventmodels "acredita/internal/event/models"
	eventmemory "acredita/internal/event/store/memory"
	"acredita/internal/participant/models"
	"acredita/internal/participant/store"
	participantmemory "acredita/internal/participant/store/memory"
	id "acredita/pkg/domain"
	"acredita/pkg/requestcontext"
)

type fixture struct {
	participants *participantmemory.InMemory
	events       *eventmemory.InMemory
	logs         *accesslogmemory.InMemoryStore
	orchestrator *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		participants: participantmemory.NewInMemory(),
		events:       eventmemory.NewInMemory(),
		logs:         accesslogmemory.NewInMemoryStore(),
	}
	f.orchestrator = New(f.participants, f.events, f.logs)
	return f
}

func (f *fixture) addActiveEvent(t *testing.T, modos ...id.AccessMode) {
	t.Helper()
	ctx := context.Background()
	event, err := eventmodels.New(testEventID, "org-1", "Jornadas 2026", modos, fixedNow())
	require.NoError(t, err)
	event.Status = eventmodels.StatusActive
	require.NoError(t, f.events.Create(ctx, event))
}

func (f *fixture) addParticipant(t *testing.T, mutate func(*models.Participant)) {
	t.Helper()
	p, err := models.New("12345678Z", testEventID, "Jose Perez", fixedNow())
	require.NoError(t, err)
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, f.participants.Upsert(context.Background(), p))
}

func (f *fixture) entries(t *testing.T) []accesslog.Entry {
	t.Helper()
	entries, err := f.logs.ListByEvent(context.Background(), testEventID, 0)
	require.NoError(t, err)
	return entries
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func scanCtx(deviceID string) context.Context {
	ctx := requestcontext.WithDeviceID(context.Background(), deviceID)
	return requestcontext.WithTime(ctx, fixedNow())
}

func registroReq(raw string) ScanRequest {
	return ScanRequest{Raw: raw, Mode: id.ModeRegistro, Direction: id.DirectionEntrada, EventID: testEventID}
}

func TestScanRegistration(t *testing.T) {
	f := newFixture(t)
	f.addActiveEvent(t, id.ModeRegistro)
	f.addParticipant(t, nil)

	result, err := f.orchestrator.Scan(scanCtx("dev-1"), registroReq("12345678Z"))
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, "registration granted", result.Message)
	assert.Equal(t, DismissAuto, result.SuggestedDismissal)
	require.NotNil(t, result.Participant)
	assert.True(t, result.Participant.Estado.Registrado)

	// A second scan of the same code is idempotently denied.
	result, err = f.orchestrator.Scan(scanCtx("dev-1"), registroReq("12345678Z"))
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, "already registered", result.Message)
	assert.Equal(t, DismissManual, result.SuggestedDismissal)

	// Listing is most recent first.
	entries := f.entries(t)
	require.Len(t, entries, 2, "one audit entry per scan, success or failure")
	assert.False(t, entries[0].Exitoso)
	assert.True(t, entries[1].Exitoso)
	assert.Equal(t, "dev-1", entries[1].DeviceID)
}

func TestScanEventGating(t *testing.T) {
	t.Run("unknown event", func(t *testing.T) {
		f := newFixture(t)
		result, err := f.orchestrator.Scan(scanCtx("dev-1"), registroReq("12345678Z"))
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, "event not found", result.Message)
	})

	t.Run("inactive event", func(t *testing.T) {
		f := newFixture(t)
		event, err := eventmodels.New(testEventID, "org-1", "Jornadas", nil, fixedNow())
		require.NoError(t, err)
		require.NoError(t, f.events.Create(context.Background(), event))

		result, err := f.orchestrator.Scan(scanCtx("dev-1"), registroReq("12345678Z"))
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, "event is not active", result.Message)
	})

	t.Run("mode not enabled", func(t *testing.T) {
		f := newFixture(t)
		f.addActiveEvent(t, id.ModeRegistro)

		result, err := f.orchestrator.Scan(scanCtx("dev-1"), ScanRequest{
			Raw: "12345678Z", Mode: id.ModeCena, Direction: id.DirectionEntrada, EventID: testEventID,
		})
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, "mode cena not enabled for event", result.Message)
	})
}

func TestScanUnresolvablePayloadIsLogged(t *testing.T) {
	f := newFixture(t)
	f.addActiveEvent(t, id.ModeRegistro)

	result, err := f.orchestrator.Scan(scanCtx("dev-1"), registroReq(`{"broken`))
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, "malformed structured payload", result.Message)

	entries := f.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "unknown", entries[0].DNI)
	assert.False(t, entries[0].Exitoso)
}

func TestScanUnknownParticipant(t *testing.T) {
	f := newFixture(t)
	f.addActiveEvent(t, id.ModeRegistro)

	ctx := requestcontext.WithActor(scanCtx("dev-1"), requestcontext.ActorContext{
		UID: "u1", Role: id.RoleControlador, OrganizationID: "org-1",
	})
	result, err := f.orchestrator.Scan(ctx, registroReq("87654321X"))
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Message, "ask your event admin")

	ctx = requestcontext.WithActor(scanCtx("dev-2"), requestcontext.ActorContext{
		UID: "u2", Role: id.RoleAdmin, OrganizationID: "org-1",
	})
	result, err = f.orchestrator.Scan(ctx, registroReq("87654321X"))
	require.NoError(t, err)
	assert.Contains(t, result.Message, "participants panel")

	entries := f.entries(t)
	require.Len(t, entries, 2)
	assert.Equal(t, "87654321X", entries[0].DNI, "failed lookups still log the scanned identifier")
}

func TestScanLogWriteFailureBecomesWarning(t *testing.T) {
	f := newFixture(t)
	f.addActiveEvent(t, id.ModeRegistro)
	f.addParticipant(t, nil)

	failing := &failingLogStore{Store: f.logs}
	orchestrator := New(f.participants, f.events, failing)

	result, err := orchestrator.Scan(scanCtx("dev-1"), registroReq("12345678Z"))
	require.NoError(t, err)
	assert.True(t, result.Allowed, "a log write failure never blocks the decision")
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "audit log write failed")
}

func TestScanSingleFlightPerDevice(t *testing.T) {
	f := newFixture(t)
	f.addActiveEvent(t, id.ModeRegistro)
	f.addParticipant(t, nil)

	blocking := &blockingParticipantStore{
		Store:   f.participants,
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	orchestrator := New(blocking, f.events, f.logs)

	var wg sync.WaitGroup
	wg.Add(1)
	firstDone := make(chan *ScanResult, 1)
	go func() {
		defer wg.Done()
		result, err := orchestrator.Scan(scanCtx("dev-1"), registroReq("12345678Z"))
		require.NoError(t, err)
		firstDone <- result
	}()

	<-blocking.entered
	_, err := orchestrator.Scan(scanCtx("dev-1"), registroReq("12345678Z"))
	assert.ErrorIs(t, err, ErrScanInFlight, "duplicate frames from one device are dropped, not queued")

	// A different device is unaffected.
	_, err = orchestrator.Scan(scanCtx("dev-2"), registroReq("12345678Z"))
	assert.NoError(t, err)

	close(blocking.gate)
	wg.Wait()
	assert.True(t, (<-firstDone) != nil)

	// The guard released: the device can scan again.
	_, err = orchestrator.Scan(scanCtx("dev-1"), registroReq("12345678Z"))
	assert.NoError(t, err)
}

func TestApplierLockedRecheck(t *testing.T) {
	f := newFixture(t)
	f.addParticipant(t, func(p *models.Participant) { p.Estado.Registrado = true })

	applier := NewApplier(f.participants)
	_, err := applier.Apply(context.Background(), "12345678Z", testEventID, id.ModeRegistro, id.DirectionEntrada)
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "already registered", denied.Reason)
}

func TestApplierFlipsPresence(t *testing.T) {
	f := newFixture(t)
	f.addParticipant(t, func(p *models.Participant) { p.Permisos.Cena = true })
	applier := NewApplier(f.participants)

	p, err := applier.Apply(context.Background(), "12345678Z", testEventID, id.ModeCena, id.DirectionEntrada)
	require.NoError(t, err)
	assert.True(t, p.Estado.EnCena)

	p, err = applier.Apply(context.Background(), "12345678Z", testEventID, id.ModeCena, id.DirectionSalida)
	require.NoError(t, err)
	assert.False(t, p.Estado.EnCena)
}

// failingLogStore fails every append while delegating the rest.
type failingLogStore struct {
	accesslog.Store
}

func (s *failingLogStore) Append(context.Context, accesslog.Entry) error {
	return errors.New("disk full")
}

// blockingParticipantStore parks the first GetByKey until gate closes so the
// test can observe an in-flight scan. Later calls pass straight through.
type blockingParticipantStore struct {
	store.Store
	gate    chan struct{}
	entered chan struct{}
	claimed atomic.Bool
}

func (s *blockingParticipantStore) GetByKey(ctx context.Context, dni id.DNI, eventID string) (*models.Participant, error) {
	if s.claimed.CompareAndSwap(false, true) {
		close(s.entered)
		<-s.gate
	}
	return s.Store.GetByKey(ctx, dni, eventID)
}
