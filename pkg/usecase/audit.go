package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
	"github.com/clinsec-lab/asklepios/pkg/utils/logging"
)

// writeAudit appends the one audit entry for this query attempt. It runs on
// a context detached from the caller's cancellation so a client disconnect
// cannot suppress the entry. A persistence failure is logged and reported to
// the operational channel but never fails the query: audit failure must not
// block clinical use, and must not be invisible.
func (uc *QueryUseCase) writeAudit(ctx context.Context, entry *model.AuditEntry) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := uc.repo.Audit().Put(writeCtx, entry); err != nil {
		wrapped := goerr.Wrap(err, "failed to persist audit entry",
			goerr.V(QueryIDKey, entry.QueryID),
			goerr.V(PatientIDKey, entry.PatientID),
			goerr.V("outcome", entry.Outcome),
		)
		logging.From(ctx).Error("audit write failed",
			"error", wrapped.Error(),
			"queryID", entry.QueryID,
		)
		if uc.opsReport != nil {
			uc.opsReport(wrapped)
		}
	}
}

// buildAuditEntry assembles the audit record for a terminal state.
func buildAuditEntry(req *model.QueryRequest, decision model.AccessDecision, state types.QueryState, recordIDs []types.RecordID, confidence float64, start time.Time) *model.AuditEntry {
	return &model.AuditEntry{
		ID:            types.NewAuditID(),
		QueryID:       req.QueryID,
		PrincipalID:   decision.PrincipalID,
		PatientID:     req.PatientID,
		AccessGranted: decision.Granted,
		RecordIDs:     recordIDs,
		Confidence:    confidence,
		Latency:       time.Since(start),
		Outcome:       state.Outcome(),
		CreatedAt:     time.Now().UTC(),
	}
}
