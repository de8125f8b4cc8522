package models

import (
	"strings"
	"time"

	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
)

// Permisos holds the per-mode grants for a participant. Registro has no
// permission gate, so it carries no flag here.
type Permisos struct {
	AulaMagna   bool `json:"aula_magna"`
	MasterClass bool `json:"master_class"`
	Cena        bool `json:"cena"`
}

// Allows reports whether the grant for a gated mode is present. Ungated modes
// are always allowed.
func (p Permisos) Allows(mode id.AccessMode) bool {
	switch mode {
	case id.ModeAulaMagna:
		return p.AulaMagna
	case id.ModeMasterClass:
		return p.MasterClass
	case id.ModeCena:
		return p.Cena
	default:
		return true
	}
}

// Estado holds the participant's current registration and presence flags.
// Each en_* flag means "currently inside" for the corresponding zone.
//
// Invariant: an en_* flag is true only when a successful entrada scan for that
// mode is newer than any salida scan; the applier is the only writer.
type Estado struct {
	Registrado    bool `json:"registrado"`
	EnAulaMagna   bool `json:"en_aula_magna"`
	EnMasterClass bool `json:"en_master_class"`
	EnCena        bool `json:"en_cena"`
}

// Inside reports whether the participant is currently inside the given zone.
func (e Estado) Inside(mode id.AccessMode) bool {
	switch mode {
	case id.ModeAulaMagna:
		return e.EnAulaMagna
	case id.ModeMasterClass:
		return e.EnMasterClass
	case id.ModeCena:
		return e.EnCena
	default:
		return false
	}
}

// SetInside flips the presence flag for a gated mode.
func (e *Estado) SetInside(mode id.AccessMode, inside bool) {
	switch mode {
	case id.ModeAulaMagna:
		e.EnAulaMagna = inside
	case id.ModeMasterClass:
		e.EnMasterClass = inside
	case id.ModeCena:
		e.EnCena = inside
	}
}

// Participant is one attendee of an event. DNI is the natural key, unique per
// event; the same DNI may exist independently under different events.
//
// Version increments on every estado write and serves as the compare-and-swap
// precondition in the postgres store, closing the two-scanners race window.
type Participant struct {
	DNI      id.DNI   `json:"dni"`
	EventID  string   `json:"eventId"`
	Nombre   string   `json:"nombre"`
	Email    string   `json:"email,omitempty"`
	Telefono string   `json:"telefono,omitempty"`
	Escuela  string   `json:"escuela,omitempty"`
	Cargo    string   `json:"cargo,omitempty"`
	Entitat  string   `json:"entitat,omitempty"`
	HaPagado bool     `json:"haPagado"`
	Permisos Permisos `json:"permisos"`
	Estado   Estado   `json:"estado"`

	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// New validates invariants and constructs a Participant.
//
// Errors: CodeInvariantViolation when the natural key or event scope is
// missing or malformed.
func New(dni string, eventID string, nombre string, now time.Time) (*Participant, error) {
	key, err := id.ParseDNI(dni)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "participant requires a valid dni")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "participant requires an event scope")
	}
	return &Participant{
		DNI:       key,
		EventID:   eventID,
		Nombre:    strings.TrimSpace(nombre),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone returns a deep copy so memory stores never hand out shared pointers.
func (p *Participant) Clone() *Participant {
	cp := *p
	return &cp
}
