package model

import (
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

// DefaultRetrieveK is the number of records retrieved when the caller does
// not specify one.
const DefaultRetrieveK = 3

// NoContextAnswer is the deterministic text returned when no record in the
// patient's namespace clears the similarity threshold.
const NoContextAnswer = "No sufficiently relevant clinical records were found to answer this question."

// DegradedAnswer replaces the narrative when answer synthesis fails after
// retries; retrieved sources are still returned.
const DegradedAnswer = "Answer generation is temporarily unavailable. The retrieved source records are listed below."

// DeniedAnswer is the generic message for refused queries. It deliberately
// reveals nothing about the patient or the index.
const DeniedAnswer = "You are not authorized to query this patient's records."

// QueryRequest is one clinician question about one patient. Question text is
// assumed to be already de-identified by the upstream collaborator.
type QueryRequest struct {
	QueryID   types.QueryID
	Principal *Principal
	PatientID types.PatientID
	Question  string `masq:"secret"`
	RetrieveK int
}

// QueryResponse is the terminal result of the query state machine.
type QueryResponse struct {
	QueryID       types.QueryID
	State         types.QueryState
	AccessGranted bool
	Answer        string `masq:"secret"`
	Sources       []*RetrievedMatch
	Confidence    float64
}
