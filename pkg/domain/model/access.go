package model

import (
	"time"

	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

// AccessDecision is the result of evaluating a principal against a patient.
// It is created once per query attempt and never mutated; the orchestrator
// and the audit entry both consume the same decision.
type AccessDecision struct {
	Granted     bool
	Reason      types.DecisionReason
	PrincipalID types.PrincipalID
	PatientID   types.PatientID
	DecidedAt   time.Time
}
