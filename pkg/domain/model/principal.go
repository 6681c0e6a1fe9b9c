package model

import (
	"time"

	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

// Principal is an authenticated caller. It is resolved once per request from
// a verified token plus the principal store, and is immutable for the
// lifetime of that query.
type Principal struct {
	ID        types.PrincipalID
	Name      string
	Roles     []types.Role
	Grants    []types.PatientID // may contain types.GrantAny
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasRole reports whether the principal holds the given role.
func (p *Principal) HasRole(role types.Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the principal.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	copied := &Principal{
		ID:        p.ID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Roles != nil {
		copied.Roles = make([]types.Role, len(p.Roles))
		copy(copied.Roles, p.Roles)
	}
	if p.Grants != nil {
		copied.Grants = make([]types.PatientID, len(p.Grants))
		copy(copied.Grants, p.Grants)
	}
	return copied
}
