package usecase

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for use case layer
var (
	// ErrAccessDenied is an expected outcome, not a system fault
	ErrAccessDenied = goerr.New("access denied to patient records")

	// Infrastructure faults, surfaced after local retries are exhausted
	ErrEmbeddingFailed = goerr.New("query embedding failed")
	ErrRetrievalFailed = goerr.New("record retrieval failed")
	ErrSynthesisFailed = goerr.New("answer synthesis failed")

	ErrPrincipalNotFound = goerr.New("principal not found")
	ErrInvalidTransition = goerr.New("invalid query state transition")
)

// Context keys for error values
const (
	QueryIDKey   = "query_id"
	PatientIDKey = "patient_id"
)
