package interfaces

import (
	"context"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

// AuditRepository is the append-only audit store. The interface deliberately
// exposes no update or delete operations.
type AuditRepository interface {
	// Put appends one audit entry.
	Put(ctx context.Context, entry *model.AuditEntry) error

	// ListByPatient returns entries for a patient ordered by creation time
	// descending, newest first, up to limit.
	ListByPatient(ctx context.Context, patientID types.PatientID, limit int) ([]*model.AuditEntry, error)
}
