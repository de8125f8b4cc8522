// Package service orchestrates participant administration: CRUD, CSV
// import/export, and estado resets. Scan-driven mutations live in
// internal/checkin; this service is the admin side.
package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"acredita/internal/event/models"
	pmodels "acredita/internal/participant/models"
	"acredita/internal/participant/store"
	"acredita/internal/platform/metrics"
	"acredita/internal/policy"
	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/platform/sentinel"
	"acredita/pkg/requestcontext"
)

// EventGetter scopes participant operations to an event the actor may manage.
type EventGetter interface {
	FindByID(ctx context.Context, eventID string) (*models.Event, error)
}

// Service manages participants on behalf of org-scoped admins.
type Service struct {
	participants store.Store
	events       EventGetter
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

// New constructs a Service.
func New(participants store.Store, events EventGetter, opts ...Option) *Service {
	s := &Service{participants: participants, events: events, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpsertRequest carries the admin-editable participant fields.
type UpsertRequest struct {
	DNI      string           `json:"dni"`
	Nombre   string           `json:"nombre"`
	Email    string           `json:"email"`
	Telefono string           `json:"telefono"`
	Escuela  string           `json:"escuela"`
	Cargo    string           `json:"cargo"`
	Entitat  string           `json:"entitat"`
	HaPagado bool             `json:"haPagado"`
	Permisos pmodels.Permisos `json:"permisos"`
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

// Upsert creates or updates a participant. Estado is never touched here: it
// belongs to the scan pipeline and to Reset.
func (s *Service) Upsert(ctx context.Context, eventID string, req UpsertRequest) (*pmodels.Participant, error) {
	if err := s.authorize(ctx, eventID); err != nil {
		return nil, err
	}

	p, err := pmodels.New(req.DNI, eventID, req.Nombre, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	p.Email = req.Email
	p.Telefono = req.Telefono
	p.Escuela = req.Escuela
	p.Cargo = req.Cargo
	p.Entitat = req.Entitat
	p.HaPagado = req.HaPagado
	p.Permisos = req.Permisos

	// An admin edit must not clear scan state already accumulated.
	if existing, err := s.participants.GetByKey(ctx, p.DNI, eventID); err == nil {
		p.Estado = existing.Estado
	}

	if err := s.participants.Upsert(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save participant")
	}
	return p, nil
}

// Get returns one participant.
func (s *Service) Get(ctx context.Context, eventID, dni string) (*pmodels.Participant, error) {
	if err := s.authorize(ctx, eventID); err != nil {
		return nil, err
	}
	key, err := id.ParseDNI(dni)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid dni")
	}
	p, err := s.participants.GetByKey(ctx, key, eventID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "participant not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load participant")
	}
	return p, nil
}

// List returns every participant of an event.
func (s *Service) List(ctx context.Context, eventID string) ([]*pmodels.Participant, error) {
	if err := s.authorize(ctx, eventID); err != nil {
		return nil, err
	}
	out, err := s.participants.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list participants")
	}
	return out, nil
}

// Delete removes a participant.
func (s *Service) Delete(ctx context.Context, eventID, dni string) error {
	if err := s.authorize(ctx, eventID); err != nil {
		return err
	}
	key, err := id.ParseDNI(dni)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid dni")
	}
	if err := s.participants.Delete(ctx, key, eventID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "participant not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete participant")
	}
	s.logger.InfoContext(ctx, "participant deleted", "event_id", eventID, "dni", key.String())
	return nil
}

// Reset clears a participant's estado so they can be re-processed after a
// data error, using the store's guarded update.
func (s *Service) Reset(ctx context.Context, eventID, dni string) (*pmodels.Participant, error) {
	if err := s.authorize(ctx, eventID); err != nil {
		return nil, err
	}
	key, err := id.ParseDNI(dni)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid dni")
	}
	p, err := s.participants.Execute(ctx, key, eventID,
		func(*pmodels.Participant) error { return nil },
		func(p *pmodels.Participant) { p.Estado = pmodels.Estado{} },
	)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "participant not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset participant")
	}
	s.logger.InfoContext(ctx, "participant estado reset", "event_id", eventID, "dni", key.String())
	return p, nil
}

// csvHeader is the import/export column layout. Import requires at least
// dni and nombre; permission columns accept true/false/1/0 and default false.
var csvHeader = []string{
	"dni", "nombre", "email", "telefono", "escuela", "cargo", "entitat",
	"ha_pagado", "aula_magna", "master_class", "cena",
}

// ImportReport summarizes a CSV import: rows that failed keep their line
// number and reason so the admin can fix the file.
type ImportReport struct {
	Imported int      `json:"imported"`
	Failed   []string `json:"failed,omitempty"`
}

// ImportCSV bulk-upserts participants from a CSV stream. Bad rows are
// skipped and reported, never aborting the whole import.
func (s *Service) ImportCSV(ctx context.Context, eventID string, r io.Reader) (*ImportReport, error) {
	if err := s.authorize(ctx, eventID); err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "empty or unreadable CSV")
	}
	cols := columnIndex(header)
	if _, ok := cols["dni"]; !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "CSV must have a dni column")
	}

	report := &ImportReport{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.Failed = append(report.Failed, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		req := rowToRequest(record, cols)
		if _, err := s.Upsert(ctx, eventID, req); err != nil {
			report.Failed = append(report.Failed, fmt.Sprintf("line %d: %s", line, dErrors.MessageOf(err)))
			continue
		}
		report.Imported++
	}
	s.metrics.AddParticipantsImported(report.Imported)
	s.logger.InfoContext(ctx, "participants imported",
		"event_id", eventID, "imported", report.Imported, "failed", len(report.Failed))
	return report, nil
}

// ExportCSV streams every participant of an event in the import layout.
func (s *Service) ExportCSV(ctx context.Context, eventID string, w io.Writer) error {
	participants, err := s.List(ctx, eventID)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write CSV")
	}
	for _, p := range participants {
		row := []string{
			p.DNI.String(), p.Nombre, p.Email, p.Telefono, p.Escuela, p.Cargo, p.Entitat,
			strconv.FormatBool(p.HaPagado),
			strconv.FormatBool(p.Permisos.AulaMagna),
			strconv.FormatBool(p.Permisos.MasterClass),
			strconv.FormatBool(p.Permisos.Cena),
		}
		if err := writer.Write(row); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write CSV")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to flush CSV")
	}
	return nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	return cols
}

func rowToRequest(record []string, cols map[string]int) UpsertRequest {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}
	boolField := func(name string) bool {
		v, _ := strconv.ParseBool(field(name))
		return v
	}
	return UpsertRequest{
		DNI:      field("dni"),
		Nombre:   field("nombre"),
		Email:    field("email"),
		Telefono: field("telefono"),
		Escuela:  field("escuela"),
		Cargo:    field("cargo"),
		Entitat:  field("entitat"),
		HaPagado: boolField("ha_pagado"),
		Permisos: pmodels.Permisos{
			AulaMagna:   boolField("aula_magna"),
			MasterClass: boolField("master_class"),
			Cena:        boolField("cena"),
		},
	}
}
