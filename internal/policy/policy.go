// Package policy centralizes role and organization authorization checks.
//
// Every admin-facing service call receives the acting user as an explicit
// ActorContext (never ambient global state) and consults this package before
// touching a store.
package policy

import (
	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
	"acredita/pkg/requestcontext"
)

// RequireAdmin allows actors at admin rank or above.
func RequireAdmin(actor requestcontext.ActorContext) error {
	if actor.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !actor.Role.IsAdmin() {
		return dErrors.New(dErrors.CodeForbidden, "admin role required")
	}
	return nil
}

// RequireOrgAccess scopes an actor to their own organization. Super admins
// cross organization boundaries.
func RequireOrgAccess(actor requestcontext.ActorContext, organizationID string) error {
	if actor.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if actor.Role == id.RoleSuperAdmin {
		return nil
	}
	if actor.OrganizationID != organizationID {
		return dErrors.New(dErrors.CodeForbidden, "resource belongs to another organization")
	}
	return nil
}

// RequireOrgAdmin combines the admin rank and organization scope checks.
func RequireOrgAdmin(actor requestcontext.ActorContext, organizationID string) error {
	if err := RequireAdmin(actor); err != nil {
		return err
	}
	return RequireOrgAccess(actor, organizationID)
}

// RequireCanManageRole enforces the hierarchy: an actor may only create,
// modify, or delete users whose role ranks strictly below their own.
func RequireCanManageRole(actor requestcontext.ActorContext, target id.Role) error {
	if actor.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !actor.Role.Outranks(target) {
		return dErrors.Newf(dErrors.CodeForbidden, "role %s cannot manage role %s", actor.Role, target)
	}
	return nil
}
