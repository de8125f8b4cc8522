package models

import (
	"strings"
	"time"

	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
)

// User is an operator account somewhere in the management hierarchy.
type User struct {
	UID            string    `json:"uid"`
	Email          string    `json:"email"`
	Nombre         string    `json:"nombre"`
	PasswordHash   string    `json:"-"`
	Role           id.Role   `json:"role"`
	OrganizationID string    `json:"organizationId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// New validates invariants and constructs a User. The password hash is set
// separately by the service.
func New(uid, email, nombre string, role id.Role, organizationID string, now time.Time) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user requires a valid email")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user requires a valid role")
	}
	if organizationID == "" && role != id.RoleSuperAdmin {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user requires an organization")
	}
	return &User{
		UID:            uid,
		Email:          email,
		Nombre:         strings.TrimSpace(nombre),
		Role:           role,
		OrganizationID: organizationID,
		CreatedAt:      now,
	}, nil
}

// Clone returns a deep copy so memory stores never hand out shared pointers.
func (u *User) Clone() *User {
	cp := *u
	return &cp
}
