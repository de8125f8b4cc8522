package domain

import dErrors "acredita/pkg/domain-errors"

// AccessMode identifies the zone a scan is validating access for.
// Invariant: the value must be one of the supported modes.
//
// Usage: construct via ParseAccessMode at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type AccessMode string

// Supported access modes. Registro is the one-shot registration desk; the
// remaining modes are enter/exit zones gated by participant permissions.
const (
	ModeRegistro    AccessMode = "registro"
	ModeAulaMagna   AccessMode = "aula_magna"
	ModeMasterClass AccessMode = "master_class"
	ModeCena        AccessMode = "cena"
)

// validAccessModes is the single source of truth for valid modes.
var validAccessModes = map[AccessMode]bool{
	ModeRegistro:    true,
	ModeAulaMagna:   true,
	ModeMasterClass: true,
	ModeCena:        true,
}

// ParseAccessMode constructs an AccessMode from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseAccessMode(s string) (AccessMode, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "mode cannot be empty")
	}
	m := AccessMode(s)
	if !m.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid access mode")
	}
	return m, nil
}

// IsValid checks if the mode is one of the supported enum values.
func (m AccessMode) IsValid() bool {
	return validAccessModes[m]
}

// Gated reports whether the mode requires an explicit participant permission.
// Registro is open to every participant exactly once.
func (m AccessMode) Gated() bool {
	return m != ModeRegistro
}

// String returns the string representation of the mode.
func (m AccessMode) String() string {
	return string(m)
}
