package types

import "fmt"

// DecisionReason explains why an access decision was granted or denied
type DecisionReason string

const (
	// ReasonRoleWildcard means the principal's role may access any patient
	ReasonRoleWildcard DecisionReason = "ROLE_WILDCARD"
	// ReasonExplicitGrant means the principal holds a grant for this patient
	ReasonExplicitGrant DecisionReason = "EXPLICIT_GRANT"
	// ReasonNoGrant means no rule matched and access is denied
	ReasonNoGrant DecisionReason = "NO_GRANT"
)

// AllDecisionReasons returns all valid decision reasons
func AllDecisionReasons() []DecisionReason {
	return []DecisionReason{
		ReasonRoleWildcard,
		ReasonExplicitGrant,
		ReasonNoGrant,
	}
}

// IsValid checks if the decision reason is valid
func (r DecisionReason) IsValid() bool {
	switch r {
	case ReasonRoleWildcard,
		ReasonExplicitGrant,
		ReasonNoGrant:
		return true
	default:
		return false
	}
}

// String returns the string representation of the decision reason
func (r DecisionReason) String() string {
	return string(r)
}

// ParseDecisionReason parses a string into a DecisionReason
func ParseDecisionReason(s string) (DecisionReason, error) {
	reason := DecisionReason(s)
	if !reason.IsValid() {
		return "", fmt.Errorf("invalid decision reason: %s", s)
	}
	return reason, nil
}
