package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/clinsec-lab/asklepios/pkg/domain/types"
	"github.com/clinsec-lab/asklepios/pkg/usecase"
	"github.com/clinsec-lab/asklepios/pkg/utils/errutil"
)

const defaultAuditLimit = 50

type auditEntryResponse struct {
	ID            string    `json:"id"`
	QueryID       string    `json:"query_id"`
	PrincipalID   string    `json:"principal_id"`
	PatientID     string    `json:"patient_id"`
	AccessGranted bool      `json:"access_granted"`
	RecordIDs     []string  `json:"record_ids"`
	Confidence    float64   `json:"confidence"`
	LatencyMillis int64     `json:"latency_ms"`
	Outcome       string    `json:"outcome"`
	CreatedAt     time.Time `json:"created_at"`
}

type auditListResponse struct {
	Entries []auditEntryResponse `json:"entries"`
}

// auditListHandler serves the audit trail for one patient, newest first.
// Only administrators may read it: the trail names who asked what about
// whom, which is itself sensitive.
func auditListHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal := principalFrom(ctx)
		if principal == nil {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		if !principal.HasRole(types.RoleAdmin) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		patientID := types.PatientID(chi.URLParam(r, "patientID"))
		if patientID == "" {
			http.Error(w, "patientID is required", http.StatusBadRequest)
			return
		}

		limit := defaultAuditLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = n
		}

		entries, err := uc.Repository().Audit().ListByPatient(ctx, patientID, limit)
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to list audit entries"), "Internal error", http.StatusInternalServerError)
			return
		}

		resp := auditListResponse{
			Entries: make([]auditEntryResponse, len(entries)),
		}
		for i, entry := range entries {
			recordIDs := make([]string, len(entry.RecordIDs))
			for j, id := range entry.RecordIDs {
				recordIDs[j] = string(id)
			}
			resp.Entries[i] = auditEntryResponse{
				ID:            string(entry.ID),
				QueryID:       string(entry.QueryID),
				PrincipalID:   string(entry.PrincipalID),
				PatientID:     string(entry.PatientID),
				AccessGranted: entry.AccessGranted,
				RecordIDs:     recordIDs,
				Confidence:    entry.Confidence,
				LatencyMillis: entry.Latency.Milliseconds(),
				Outcome:       string(entry.Outcome),
				CreatedAt:     entry.CreatedAt,
			}
		}

		data, err := json.Marshal(resp)
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal audit response"), "Internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data) //nolint:errcheck // header already committed
	}
}
