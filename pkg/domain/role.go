package domain

import dErrors "acredita/pkg/domain-errors"

// Role places an operator in the management hierarchy. Ranks are strictly
// ordered; an actor may only manage roles ranked below their own.
type Role string

const (
	RoleSuperAdmin       Role = "super_admin"
	RoleAdminResponsable Role = "admin_responsable"
	RoleAdmin            Role = "admin"
	RoleControlador      Role = "controlador"
)

// roleRanks is the single source of truth for the hierarchy ordering.
var roleRanks = map[Role]int{
	RoleSuperAdmin:       4,
	RoleAdminResponsable: 3,
	RoleAdmin:            2,
	RoleControlador:      1,
}

// ParseRole constructs a Role from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the numeric position in the hierarchy; unknown roles rank 0.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Outranks reports whether r sits strictly above other in the hierarchy.
func (r Role) Outranks(other Role) bool {
	return r.Rank() > other.Rank()
}

// IsAdmin reports whether the role carries any administrative capability.
func (r Role) IsAdmin() bool {
	return r.Rank() >= roleRanks[RoleAdmin]
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}
