// Package authz implements role based authorization over a static grant
// table. The grant table is the single source of truth; the role hierarchy
// is derived from it by folding every lower role's grants into the higher
// role's effective set.
package authz

import (
	"fmt"
	"strings"
	"time"
)

// Role is a closed enumeration of account roles, ordered from least to most
// privileged.
type Role string

const (
	RoleCandidate  Role = "CANDIDATE"
	RoleRH         Role = "RH"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// roleOrder fixes the hierarchy CANDIDATE < RH < ADMIN < SUPER_ADMIN.
var roleOrder = []Role{RoleCandidate, RoleRH, RoleAdmin, RoleSuperAdmin}

// ParseRole converts a stored role string into a Role, rejecting unknown
// values so they cannot travel further into the system.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range roleOrder {
		if role == known {
			return role, nil
		}
	}
	return "", fmt.Errorf("authz: unknown role %q", s)
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) rank() int {
	for i, known := range roleOrder {
		if r == known {
			return i
		}
	}
	return -1
}

// Action is an atomic capability verb. Manage subsumes every other action on
// its resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// ResourceAny matches any resource. Only the super admin grant uses it.
const ResourceAny = "*"

// Grant is a (resource, action) pair a role is permitted to perform.
type Grant struct {
	Resource string
	Action   Action
}

// Subject is the authorization-relevant view of a user profile.
type Subject struct {
	ID          string
	Role        Role
	Active      bool
	LockedUntil time.Time
}

// Usable reports whether the subject may act at the given instant: it must
// be active and any lock must have expired.
func (s Subject) Usable(now time.Time) bool {
	if !s.Active {
		return false
	}
	if !s.LockedUntil.IsZero() && s.LockedUntil.After(now) {
		return false
	}
	return true
}
