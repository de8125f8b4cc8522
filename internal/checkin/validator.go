package checkin

import (
	"fmt"

	"acredita/internal/participant/models"
	id "acredita/pkg/domain"
)

// Decision is the validator's verdict on one scan. Warnings annotate an allow
// without blocking it.
type Decision struct {
	Allowed  bool
	Reason   string
	Warnings []string
}

// Validate is the pure access decision: no I/O, no clock. The caller has
// already looked the participant up; nil is handled defensively.
//
// Each gated mode is an independent inside/outside automaton; registro is
// one-shot. Permission gating precedes state gating, so a missing grant is
// always reported as "no permission" even when the state check would also
// fail.
func Validate(p *models.Participant, mode id.AccessMode, direction id.Direction, nameHint string) Decision {
	if p == nil {
		return Decision{Allowed: false, Reason: "participant not found"}
	}

	decision := decideTransition(p, mode, direction)
	if !decision.Allowed {
		return decision
	}

	// Soft name cross-check. OCR and hand-typed QR sources mangle accents
	// and casing, so a mismatch warns the operator instead of denying.
	if nameHint != "" && !NamesMatch(nameHint, p.Nombre) {
		decision.Warnings = append(decision.Warnings,
			fmt.Sprintf("name on code %q does not match record %q", nameHint, p.Nombre))
	}
	return decision
}

// decideTransition applies the decision table for the requested transition
// against the participant's current state. It is also used as the re-check
// inside the store's locked Execute, so a race between two scanners resolves
// to exactly one allow.
func decideTransition(p *models.Participant, mode id.AccessMode, direction id.Direction) Decision {
	if mode == id.ModeRegistro {
		if p.Estado.Registrado {
			return Decision{Allowed: false, Reason: "already registered"}
		}
		return Decision{Allowed: true, Reason: "registration granted"}
	}

	if !p.Permisos.Allows(mode) {
		return Decision{Allowed: false, Reason: fmt.Sprintf("no permission for %s", mode)}
	}

	inside := p.Estado.Inside(mode)
	if direction == id.DirectionSalida {
		if !inside {
			return Decision{Allowed: false, Reason: fmt.Sprintf("not currently inside %s, cannot exit", mode)}
		}
		return Decision{Allowed: true, Reason: fmt.Sprintf("exit granted from %s", mode)}
	}

	if inside {
		return Decision{Allowed: false, Reason: fmt.Sprintf("already inside %s", mode)}
	}
	return Decision{Allowed: true, Reason: fmt.Sprintf("entry granted to %s", mode)}
}
