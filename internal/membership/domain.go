// internal/membership/domain.go

package membership

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the approval state of a membership request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Role is the permission tier a member holds inside a planet.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// Assignable reports whether r may be granted through a role change. The
// owner role is only reachable through planet creation or ownership
// transfer.
func (r Role) Assignable() bool {
	return r == RoleAdmin || r == RoleMember
}

// Membership binds one user to one planet. At most one record exists per
// (planet, user) pair; the composite primary key enforces that.
type Membership struct {
	PlanetID  uuid.UUID `json:"planet_id"`
	UserID    int64     `json:"user_id"`
	Status    Status    `json:"status"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate rejects combinations the lifecycle never produces. Every write
// path validates before touching the store, so an invalid pairing such as a
// pending owner cannot be persisted.
func (m *Membership) Validate() error {
	if !m.Status.Valid() {
		return fmt.Errorf("invalid membership status %q", m.Status)
	}
	if !m.Role.Valid() {
		return fmt.Errorf("invalid membership role %q", m.Role)
	}
	if m.Role == RoleOwner && m.Status != StatusApproved {
		return fmt.Errorf("owner membership must be approved, got status %q", m.Status)
	}
	return nil
}
