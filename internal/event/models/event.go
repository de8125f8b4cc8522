package models

import (
	"strings"
	"time"

	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
)

// Status is the lifecycle state of an event.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// statusTransitions lists the allowed lifecycle moves.
var statusTransitions = map[Status][]Status{
	StatusDraft:     {StatusActive},
	StatusActive:    {StatusCompleted},
	StatusCompleted: {StatusArchived},
	StatusArchived:  {},
}

// ParseStatus constructs a Status from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "status cannot be empty")
	}
	st := Status(s)
	if _, ok := statusTransitions[st]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid event status")
	}
	return st, nil
}

// Event is the scoping container for participants and access logs. Scans are
// only valid against an active event and for modes the event has enabled.
type Event struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organizationId"`
	Nombre         string          `json:"nombre"`
	Status         Status          `json:"status"`
	Modos          []id.AccessMode `json:"modos"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// New validates invariants and constructs a draft Event.
func New(eventID, organizationID, nombre string, modos []id.AccessMode, now time.Time) (*Event, error) {
	nombre = strings.TrimSpace(nombre)
	if nombre == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event requires a name")
	}
	if organizationID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event requires an organization")
	}
	for _, m := range modos {
		if !m.IsValid() {
			return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown access mode %q", m)
		}
	}
	if len(modos) == 0 {
		modos = []id.AccessMode{id.ModeRegistro}
	}
	return &Event{
		ID:             eventID,
		OrganizationID: organizationID,
		Nombre:         nombre,
		Status:         StatusDraft,
		Modos:          modos,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ModeEnabled reports whether scans for the given mode are accepted.
func (e *Event) ModeEnabled(mode id.AccessMode) bool {
	for _, m := range e.Modos {
		if m == mode {
			return true
		}
	}
	return false
}

// CanTransition checks a lifecycle move without applying it.
//
// Errors: CodeInvariantViolation when the move is not in the lifecycle graph.
func (e *Event) CanTransition(next Status) error {
	for _, allowed := range statusTransitions[e.Status] {
		if allowed == next {
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot move event from %s to %s", e.Status, next)
}

// ApplyTransition moves the event to the next lifecycle state. Callers must
// have validated via CanTransition.
func (e *Event) ApplyTransition(next Status, now time.Time) {
	e.Status = next
	e.UpdatedAt = now
}

// Clone returns a deep copy so memory stores never hand out shared pointers.
func (e *Event) Clone() *Event {
	cp := *e
	cp.Modos = append([]id.AccessMode(nil), e.Modos...)
	return &cp
}
