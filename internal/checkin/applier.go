package checkin

import (
	"context"

	"acredita/internal/participant/models"
	"acredita/internal/participant/store"
	id "acredita/pkg/domain"
)

// DeniedError reports that the transition re-check under the store lock
// denied a scan the validator had approved on a now-stale snapshot. The
// reason string comes from the same decision table, verbatim.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string { return e.Reason }

// Applier turns an allow decision into the persisted state change. It only
// touches the flag the transition names; concurrent updates to unrelated
// fields survive because the store's Execute holds the row across the
// re-check and the mutation.
type Applier struct {
	participants store.Store
}

func NewApplier(participants store.Store) *Applier {
	return &Applier{participants: participants}
}

// Apply computes and persists the next estado for an allowed transition:
// registro sets registrado; entrada/salida flip the mode's presence flag.
//
// Errors: *DeniedError when the locked re-check no longer allows the
// transition (another scanner won the race); sentinel/store errors on
// persistence failure, which are a distinct failure domain from denial.
func (a *Applier) Apply(ctx context.Context, dni id.DNI, eventID string, mode id.AccessMode, direction id.Direction) (*models.Participant, error) {
	return a.participants.Execute(ctx, dni, eventID,
		func(p *models.Participant) error {
			if d := decideTransition(p, mode, direction); !d.Allowed {
				return &DeniedError{Reason: d.Reason}
			}
			return nil
		},
		func(p *models.Participant) {
			if mode == id.ModeRegistro {
				p.Estado.Registrado = true
				return
			}
			p.Estado.SetInside(mode, direction == id.DirectionEntrada)
		},
	)
}
