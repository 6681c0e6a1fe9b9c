package types

import "fmt"

// QueryOutcome is the audit classification of one query attempt
type QueryOutcome string

const (
	// OutcomeSuccess means a grounded answer was synthesized and returned
	OutcomeSuccess QueryOutcome = "SUCCESS"
	// OutcomeDenied means the access gate refused the query
	OutcomeDenied QueryOutcome = "DENIED"
	// OutcomeDegraded means the caller got a partial payload (no relevant
	// context, or sources without a generated narrative)
	OutcomeDegraded QueryOutcome = "DEGRADED"
	// OutcomeFailed means an infrastructure fault ended the query
	OutcomeFailed QueryOutcome = "FAILED"
)

// AllQueryOutcomes returns all valid query outcomes
func AllQueryOutcomes() []QueryOutcome {
	return []QueryOutcome{
		OutcomeSuccess,
		OutcomeDenied,
		OutcomeDegraded,
		OutcomeFailed,
	}
}

// IsValid checks if the query outcome is valid
func (o QueryOutcome) IsValid() bool {
	switch o {
	case OutcomeSuccess,
		OutcomeDenied,
		OutcomeDegraded,
		OutcomeFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the query outcome
func (o QueryOutcome) String() string {
	return string(o)
}

// ParseQueryOutcome parses a string into a QueryOutcome
func ParseQueryOutcome(s string) (QueryOutcome, error) {
	outcome := QueryOutcome(s)
	if !outcome.IsValid() {
		return "", fmt.Errorf("invalid query outcome: %s", s)
	}
	return outcome, nil
}
