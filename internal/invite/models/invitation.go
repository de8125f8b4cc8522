package models

import (
	"strings"
	"time"

	id "acredita/pkg/domain"
	dErrors "acredita/pkg/domain-errors"
)

// Invitation lets an admin pre-authorize an account below their own rank.
// The recipient redeems the token to set a password and become a User.
type Invitation struct {
	ID             string     `json:"id"`
	Token          string     `json:"-"`
	Email          string     `json:"email"`
	Role           id.Role    `json:"role"`
	OrganizationID string     `json:"organizationId"`
	InvitedBy      string     `json:"invitedBy"`
	CreatedAt      time.Time  `json:"createdAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	AcceptedAt     *time.Time `json:"acceptedAt,omitempty"`
}

// New validates invariants and constructs a pending Invitation.
func New(invID, token, email string, role id.Role, organizationID, invitedBy string, now time.Time, ttl time.Duration) (*Invitation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invitation requires a valid email")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invitation requires a valid role")
	}
	if organizationID == "" && role != id.RoleSuperAdmin {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invitation requires an organization")
	}
	return &Invitation{
		ID:             invID,
		Token:          token,
		Email:          email,
		Role:           role,
		OrganizationID: organizationID,
		InvitedBy:      invitedBy,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}, nil
}

// Expired reports whether the invitation can no longer be redeemed.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Accepted reports whether the invitation has already been redeemed.
func (i *Invitation) Accepted() bool {
	return i.AcceptedAt != nil
}

// Clone returns a deep copy so memory stores never hand out shared pointers.
func (i *Invitation) Clone() *Invitation {
	cp := *i
	if i.AcceptedAt != nil {
		t := *i.AcceptedAt
		cp.AcceptedAt = &t
	}
	return &cp
}
