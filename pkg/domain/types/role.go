package types

import "fmt"

// Role represents a clinical role assigned to a principal
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAttending Role = "attending"
	RoleResident  Role = "resident"
	RoleNurse     Role = "nurse"
)

// GrantAny is the sentinel grant meaning "all patients"
const GrantAny PatientID = "any"

// AllRoles returns all valid roles
func AllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleAttending,
		RoleResident,
		RoleNurse,
	}
}

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin,
		RoleAttending,
		RoleResident,
		RoleNurse:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a string into a Role
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid role: %s", s)
	}
	return role, nil
}

// Capability describes what a role is allowed to do regardless of
// explicit per-patient grants.
type Capability struct {
	CanAccessAnyPatient bool
}

// roleCapabilities is the closed capability table evaluated by the access
// gate. Attendings and admins may query any patient, reflecting that
// attendings need cross-patient visibility in practice.
var roleCapabilities = map[Role]Capability{
	RoleAdmin:     {CanAccessAnyPatient: true},
	RoleAttending: {CanAccessAnyPatient: true},
	RoleResident:  {CanAccessAnyPatient: false},
	RoleNurse:     {CanAccessAnyPatient: false},
}

// Capability returns the default capability set for the role. Unknown roles
// get the zero capability so access evaluation fails closed.
func (r Role) Capability() Capability {
	return roleCapabilities[r]
}

// DefaultCapabilities returns a copy of the capability table, so callers that
// apply policy overrides never touch the shared default.
func DefaultCapabilities() map[Role]Capability {
	caps := make(map[Role]Capability, len(roleCapabilities))
	for role, c := range roleCapabilities {
		caps[role] = c
	}
	return caps
}
