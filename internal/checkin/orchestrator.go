package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"acredita/internal/accesslog"
	checkinmetrics "acredita/internal/checkin/metrics"
	eventmodels "acredita/internal/event/models"
	"acredita/internal/participant/models"
	"acredita/internal/participant/store"
	id "acredita/pkg/domain"
	"acredita/pkg/platform/sentinel"
	"acredita/pkg/requestcontext"
)

// EventStore is the slice of the event store the orchestrator needs.
type EventStore interface {
	FindByID(ctx context.Context, eventID string) (*eventmodels.Event, error)
}

// ScanRequest carries one scan attempt from an operator's device.
type ScanRequest struct {
	Raw       string
	Mode      id.AccessMode
	Direction id.Direction
	EventID   string
}

// Dismissal hints how the UI should clear the result: approvals auto-dismiss
// so the operator keeps scanning; denials demand an explicit acknowledgement
// because they usually mean a problem needing human judgment. The actual
// timer lives in the UI layer.
type Dismissal string

const (
	DismissAuto   Dismissal = "auto"
	DismissManual Dismissal = "manual"
)

// ScanResult is the single terminal outcome of a scan. Warnings carry
// secondary failures (log write, state persistence) that must reach the
// operator without changing the decision.
type ScanResult struct {
	Allowed            bool                `json:"allowed"`
	Message            string              `json:"message"`
	Participant        *models.Participant `json:"participant,omitempty"`
	Warnings           []string            `json:"warnings,omitempty"`
	SuggestedDismissal Dismissal           `json:"suggestedDismissal"`
}

// ErrScanInFlight marks a scan dropped by the per-device guard. It is not a
// failure: duplicate camera frames of one physical code are expected, and
// queuing them would double-process the scan event.
var ErrScanInFlight = errors.New("a scan from this device is already in flight")

// Orchestrator sequences resolver, store lookup, validator, applier and log
// writer into one strictly sequential pipeline per scan. Nothing escapes it:
// every internal error becomes a ScanResult.
type Orchestrator struct {
	participants store.Store
	events       EventStore
	applier      *Applier
	logs         *LogWriter
	guard        *DeviceGuard
	metrics      *checkinmetrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
}

type Option func(o *Orchestrator)

func WithMetrics(m *checkinmetrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithGuard(guard *DeviceGuard) Option {
	return func(o *Orchestrator) { o.guard = guard }
}

// New constructs the orchestrator over its collaborators.
func New(participants store.Store, events EventStore, logStore accesslog.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		participants: participants,
		events:       events,
		logger:       slog.Default(),
		tracer:       otel.Tracer("acredita/checkin"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.guard == nil {
		o.guard = NewDeviceGuard(nil, o.logger)
	}
	o.applier = NewApplier(participants)
	o.logs = NewLogWriter(logStore, o.logger)
	return o
}

// Scan runs the full pipeline for one scanned payload. The only non-nil
// error is ErrScanInFlight; every other outcome, including infrastructure
// failures, is expressed as a ScanResult so the scanning session never
// crashes.
func (o *Orchestrator) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	deviceID := requestcontext.DeviceID(ctx)
	if deviceID == "" {
		deviceID = requestcontext.Actor(ctx).UID
	}
	if deviceID == "" {
		deviceID = "unknown-device"
	}

	if !o.guard.TryAcquire(ctx, deviceID) {
		if o.metrics != nil {
			o.metrics.IncrementDropped()
		}
		return nil, ErrScanInFlight
	}
	// Release on any terminal outcome, including I/O errors, so a stuck
	// scan clears back to idle and the operator can retry.
	defer o.guard.Release(context.WithoutCancel(ctx), deviceID)

	ctx, span := o.tracer.Start(ctx, "checkin.scan", trace.WithAttributes(
		attribute.String("scan.mode", req.Mode.String()),
		attribute.String("scan.direction", req.Direction.String()),
		attribute.String("scan.event_id", req.EventID),
	))
	defer span.End()

	start := time.Now()
	result := o.pipeline(ctx, req)
	if o.metrics != nil {
		o.metrics.ObserveScan(start)
		outcome := "denied"
		if result.Allowed {
			outcome = "allowed"
		}
		o.metrics.IncrementScan(req.Mode.String(), outcome)
	}
	span.SetAttributes(attribute.Bool("scan.allowed", result.Allowed))
	return result, nil
}

// pipeline is the sequential state machine: resolving -> looking_up ->
// validating -> applying | logging_denied. Each terminal path funnels
// through finish, which writes exactly one audit entry per attempt.
func (o *Orchestrator) pipeline(ctx context.Context, req ScanRequest) *ScanResult {
	if earlyDeny := o.checkEvent(ctx, req); earlyDeny != nil {
		return o.finish(ctx, req, BestEffortDNI(req.Raw), "", nil, *earlyDeny)
	}

	res, err := Resolve(req.Raw, req.EventID)
	if err != nil {
		return o.finish(ctx, req, BestEffortDNI(req.Raw), "",
			nil, Decision{Allowed: false, Reason: err.Error()})
	}

	participant, err := o.participants.GetByKey(ctx, res.DNI, req.EventID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return o.finish(ctx, req, res.DNI.String(), res.NameHint,
			nil, Decision{Allowed: false, Reason: o.notFoundMessage(ctx)})
	}
	if err != nil {
		// A lookup-stage store failure aborts before any decision is made.
		o.logger.ErrorContext(ctx, "participant lookup failed", "dni", res.DNI.String(), "error", err)
		return o.finish(ctx, req, res.DNI.String(), res.NameHint,
			nil, Decision{Allowed: false, Reason: fmt.Sprintf("participant lookup failed: %v", err)})
	}

	decision := Validate(participant, req.Mode, req.Direction, res.NameHint)
	if !decision.Allowed {
		return o.finish(ctx, req, res.DNI.String(), participant.Nombre, participant, decision)
	}

	// Past the validator the pipeline runs to completion even if the
	// operator navigates away; cancelling between the state write and the
	// log write would leave them inconsistent.
	writeCtx := context.WithoutCancel(ctx)
	updated, applyErr := o.applier.Apply(writeCtx, res.DNI, req.EventID, req.Mode, req.Direction)
	var denied *DeniedError
	switch {
	case errors.As(applyErr, &denied):
		// Another scanner won the race; the locked re-check speaks with
		// the validator's voice.
		return o.finish(writeCtx, req, res.DNI.String(), participant.Nombre, participant,
			Decision{Allowed: false, Reason: denied.Reason, Warnings: decision.Warnings})
	case applyErr != nil:
		// The decision already happened and cannot be un-communicated;
		// persistence failure rides along as a warning.
		o.logger.ErrorContext(writeCtx, "estado update failed",
			"dni", res.DNI.String(), "modo", req.Mode.String(), "error", applyErr)
		decision.Warnings = append(decision.Warnings,
			fmt.Sprintf("state update failed: %v", applyErr))
	default:
		participant = updated
	}

	return o.finish(writeCtx, req, res.DNI.String(), participant.Nombre, participant, decision)
}

// checkEvent gates the scan on the event's lifecycle and enabled modes.
// Returns a denial decision for anything that should stop the scan before
// participant lookup.
func (o *Orchestrator) checkEvent(ctx context.Context, req ScanRequest) *Decision {
	event, err := o.events.FindByID(ctx, req.EventID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &Decision{Allowed: false, Reason: "event not found"}
	}
	if err != nil {
		o.logger.ErrorContext(ctx, "event lookup failed", "event_id", req.EventID, "error", err)
		return &Decision{Allowed: false, Reason: fmt.Sprintf("event lookup failed: %v", err)}
	}
	if event.Status != eventmodels.StatusActive {
		return &Decision{Allowed: false, Reason: "event is not active"}
	}
	if !event.ModeEnabled(req.Mode) {
		return &Decision{Allowed: false, Reason: fmt.Sprintf("mode %s not enabled for event", req.Mode)}
	}
	return nil
}

// finish records the audit entry and shapes the terminal result. Called
// exactly once per orchestrated scan.
func (o *Orchestrator) finish(ctx context.Context, req ScanRequest, dni, nombre string, participant *models.Participant, decision Decision) *ScanResult {
	warnings := decision.Warnings
	logErr := o.logs.Record(ctx, accesslog.Entry{
		EventID:   req.EventID,
		DNI:       dni,
		Nombre:    nombre,
		Modo:      req.Mode,
		Direccion: req.Direction,
		Exitoso:   decision.Allowed,
		Mensaje:   decision.Reason,
	})
	if logErr != nil {
		warnings = append(warnings, fmt.Sprintf("audit log write failed: %v", logErr))
	}

	dismissal := DismissManual
	if decision.Allowed {
		dismissal = DismissAuto
	}
	return &ScanResult{
		Allowed:            decision.Allowed,
		Message:            decision.Reason,
		Participant:        participant,
		Warnings:           warnings,
		SuggestedDismissal: dismissal,
	}
}

// notFoundMessage tailors the hint to the actor's role: admins can enroll the
// participant themselves, controllers have to escalate.
func (o *Orchestrator) notFoundMessage(ctx context.Context) string {
	if requestcontext.Actor(ctx).Role.IsAdmin() {
		return "participant not found; they are not enrolled in this event, add them from the participants panel"
	}
	return "participant not found; ask your event admin to enroll them"
}
