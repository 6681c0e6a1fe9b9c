package usecase

import (
	"time"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

// AccessGate decides whether a caller may query a patient's records. It is
// pure: no I/O, no side effects, bounded time, so it can sit in front of
// every request. Any doubt about the principal resolves to denial. The
// capability table is fixed at construction; there is no way to mutate it
// once requests are flowing.
type AccessGate struct {
	capabilities map[types.Role]types.Capability
}

// NewAccessGate creates an access gate with the default capability table
func NewAccessGate() *AccessGate {
	return NewAccessGateWithCapabilities(types.DefaultCapabilities())
}

// NewAccessGateWithCapabilities creates an access gate with a policy-supplied
// capability table, such as one loaded from the access policy file
func NewAccessGateWithCapabilities(caps map[types.Role]types.Capability) *AccessGate {
	return &AccessGate{capabilities: caps}
}

// Authorize evaluates rules in order, first match wins:
//  1. a role with the CanAccessAnyPatient capability grants any patient
//  2. an explicit grant for this patient (or the "any" sentinel) grants
//  3. otherwise denied
func (g *AccessGate) Authorize(principal *model.Principal, patientID types.PatientID) model.AccessDecision {
	decision := model.AccessDecision{
		Granted:   false,
		Reason:    types.ReasonNoGrant,
		PatientID: patientID,
		DecidedAt: time.Now().UTC(),
	}

	if principal == nil || patientID == "" {
		return decision
	}
	decision.PrincipalID = principal.ID

	for _, role := range principal.Roles {
		if g.capabilities[role].CanAccessAnyPatient {
			decision.Granted = true
			decision.Reason = types.ReasonRoleWildcard
			return decision
		}
	}

	for _, grant := range principal.Grants {
		if grant == types.GrantAny || grant == patientID {
			decision.Granted = true
			decision.Reason = types.ReasonExplicitGrant
			return decision
		}
	}

	return decision
}
