package usecase_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
	"github.com/clinsec-lab/asklepios/pkg/usecase"
)

func TestAccessGateWildcardRoles(t *testing.T) {
	gate := usecase.NewAccessGate()

	// Any patient ID must be granted for roles with the wildcard capability.
	rng := rand.New(rand.NewSource(1))
	for _, role := range []types.Role{types.RoleAdmin, types.RoleAttending} {
		principal := &model.Principal{
			ID:    "p-wildcard",
			Name:  "Wildcard",
			Roles: []types.Role{role},
		}
		for i := 0; i < 100; i++ {
			patientID := types.PatientID(fmt.Sprintf("patient-%d", rng.Intn(1_000_000)))
			decision := gate.Authorize(principal, patientID)
			gt.Bool(t, decision.Granted).True()
			gt.Value(t, decision.Reason).Equal(types.ReasonRoleWildcard)
			gt.Value(t, decision.PatientID).Equal(patientID)
		}
	}
}

func TestAccessGateExplicitGrant(t *testing.T) {
	gate := usecase.NewAccessGate()

	principal := &model.Principal{
		ID:     "p-resident",
		Name:   "Resident",
		Roles:  []types.Role{types.RoleResident},
		Grants: []types.PatientID{"patient-a", "patient-b"},
	}

	t.Run("granted patient", func(t *testing.T) {
		decision := gate.Authorize(principal, "patient-a")
		gt.Bool(t, decision.Granted).True()
		gt.Value(t, decision.Reason).Equal(types.ReasonExplicitGrant)
	})

	t.Run("ungranted patient", func(t *testing.T) {
		decision := gate.Authorize(principal, "patient-c")
		gt.Bool(t, decision.Granted).False()
		gt.Value(t, decision.Reason).Equal(types.ReasonNoGrant)
	})
}

func TestAccessGateAnyGrant(t *testing.T) {
	gate := usecase.NewAccessGate()

	principal := &model.Principal{
		ID:     "p-nurse",
		Name:   "Float Nurse",
		Roles:  []types.Role{types.RoleNurse},
		Grants: []types.PatientID{types.GrantAny},
	}

	decision := gate.Authorize(principal, "patient-anything")
	gt.Bool(t, decision.Granted).True()
	gt.Value(t, decision.Reason).Equal(types.ReasonExplicitGrant)
}

func TestAccessGateFailsClosed(t *testing.T) {
	gate := usecase.NewAccessGate()

	t.Run("nil principal", func(t *testing.T) {
		decision := gate.Authorize(nil, "patient-a")
		gt.Bool(t, decision.Granted).False()
		gt.Value(t, decision.Reason).Equal(types.ReasonNoGrant)
	})

	t.Run("empty patient ID", func(t *testing.T) {
		principal := &model.Principal{
			ID:    "p-admin",
			Roles: []types.Role{types.RoleAdmin},
		}
		decision := gate.Authorize(principal, "")
		gt.Bool(t, decision.Granted).False()
	})

	t.Run("unknown role", func(t *testing.T) {
		principal := &model.Principal{
			ID:    "p-unknown",
			Roles: []types.Role{types.Role("superuser")},
		}
		decision := gate.Authorize(principal, "patient-a")
		gt.Bool(t, decision.Granted).False()
	})

	t.Run("no roles no grants", func(t *testing.T) {
		principal := &model.Principal{ID: "p-bare"}
		decision := gate.Authorize(principal, "patient-a")
		gt.Bool(t, decision.Granted).False()
	})
}

func TestAccessGateCapabilityOverride(t *testing.T) {
	caps := types.DefaultCapabilities()
	caps[types.RoleAttending] = types.Capability{CanAccessAnyPatient: false}
	gate := usecase.NewAccessGateWithCapabilities(caps)

	principal := &model.Principal{
		ID:    "p-attending",
		Roles: []types.Role{types.RoleAttending},
	}
	decision := gate.Authorize(principal, "patient-a")
	gt.Bool(t, decision.Granted).False()

	// The default table stays untouched.
	gt.Bool(t, types.RoleAttending.Capability().CanAccessAnyPatient).True()
}
