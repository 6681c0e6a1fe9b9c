package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
	"github.com/clinsec-lab/asklepios/pkg/usecase"
	"github.com/clinsec-lab/asklepios/pkg/utils/errutil"
)

type queryRequest struct {
	PatientID string `json:"patient_id"`
	Question  string `json:"question"`
	K         int    `json:"k,omitempty"`
}

type sourceResponse struct {
	RecordID      string    `json:"record_id"`
	RecordType    string    `json:"record_type"`
	EffectiveDate time.Time `json:"effective_date"`
	Provenance    string    `json:"provenance"`
	Similarity    float64   `json:"similarity"`
	Snippet       string    `json:"snippet"`
}

type queryResponse struct {
	QueryID       string           `json:"query_id"`
	State         string           `json:"state"`
	AccessGranted bool             `json:"access_granted"`
	Answer        string           `json:"answer"`
	Sources       []sourceResponse `json:"sources"`
	Confidence    float64          `json:"confidence"`
}

// queryHandler accepts one clinician question about one patient and maps
// terminal states to HTTP statuses: Denied is 403, degraded outcomes
// (NoContext, SynthesisFailed) stay 200 with their deterministic answers,
// and infrastructure faults (EmbedFailed, RetrieveFailed) are 502 or 504
// with no internals in the body.
func queryHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal := principalFrom(ctx)
		if principal == nil {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to decode query request"), "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.PatientID == "" || req.Question == "" {
			http.Error(w, "patient_id and question are required", http.StatusBadRequest)
			return
		}

		resp, err := uc.Query.Execute(ctx, &model.QueryRequest{
			Principal: principal,
			PatientID: types.PatientID(req.PatientID),
			Question:  req.Question,
			RetrieveK: req.K,
		})
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, "Query temporarily unavailable, retry later", upstreamStatus(ctx, err))
			return
		}

		writeQueryResponse(ctx, w, resp)
	}
}

func upstreamStatus(ctx context.Context, err error) int {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func writeQueryResponse(ctx context.Context, w http.ResponseWriter, resp *model.QueryResponse) {
	out := queryResponse{
		QueryID:       string(resp.QueryID),
		State:         string(resp.State),
		AccessGranted: resp.AccessGranted,
		Answer:        resp.Answer,
		Sources:       make([]sourceResponse, len(resp.Sources)),
		Confidence:    resp.Confidence,
	}
	for i, src := range resp.Sources {
		out.Sources[i] = sourceResponse{
			RecordID:      string(src.RecordID),
			RecordType:    string(src.RecordType),
			EffectiveDate: src.EffectiveDate,
			Provenance:    src.Provenance,
			Similarity:    src.Similarity,
			Snippet:       src.Snippet,
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal query response"), "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.State == types.StateDenied {
		w.WriteHeader(http.StatusForbidden)
	}
	w.Write(data) //nolint:errcheck // header already committed
}
