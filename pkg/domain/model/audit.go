package model

import (
	"time"

	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

// AuditEntry is the immutable record of one query attempt. Exactly one entry
// is written per attempt, whatever the outcome; the store exposes no update
// or delete operations.
type AuditEntry struct {
	ID            types.AuditID
	QueryID       types.QueryID
	PrincipalID   types.PrincipalID
	PatientID     types.PatientID
	AccessGranted bool
	RecordIDs     []types.RecordID
	Confidence    float64
	Latency       time.Duration
	Outcome       types.QueryOutcome
	CreatedAt     time.Time
}

// Clone returns a deep copy of the audit entry.
func (e *AuditEntry) Clone() *AuditEntry {
	if e == nil {
		return nil
	}
	copied := *e
	if e.RecordIDs != nil {
		copied.RecordIDs = make([]types.RecordID, len(e.RecordIDs))
		copy(copied.RecordIDs, e.RecordIDs)
	}
	return &copied
}
