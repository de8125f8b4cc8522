// Package accesslog holds the append-only scan audit trail.
//
// Entries are written exactly once per scan attempt and never read back
// during validation: current state lives on the participant, the log is
// evidence. Keep the entry transport-agnostic so stores and sinks can fan out.
package accesslog

import (
	"time"

	"github.com/google/uuid"

	id "acredita/pkg/domain"
)

// Entry records one scan attempt, success or failure. Immutable once written.
type Entry struct {
	ID        uuid.UUID     `json:"id"`
	EventID   string        `json:"eventId"`
	DNI       string        `json:"dni"`
	Nombre    string        `json:"nombre,omitempty"`
	Modo      id.AccessMode `json:"modo"`
	Direccion id.Direction  `json:"direccion"`
	Exitoso   bool          `json:"exitoso"`
	Mensaje   string        `json:"mensaje"`
	Operador  string        `json:"operador,omitempty"`
	DeviceID  string        `json:"deviceId,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
