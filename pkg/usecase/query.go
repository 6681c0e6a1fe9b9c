package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/clinsec-lab/asklepios/pkg/domain/interfaces"
	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
	"github.com/clinsec-lab/asklepios/pkg/service/crypto"
	"github.com/clinsec-lab/asklepios/pkg/service/embedding"
	"github.com/clinsec-lab/asklepios/pkg/service/synthesis"
	"github.com/clinsec-lab/asklepios/pkg/utils/logging"
)

// QueryUseCase runs the query lifecycle state machine:
//
//	Received → Authorizing → (Denied | Embedding) → (EmbedFailed | Retrieving)
//	→ (RetrieveFailed | Ranking) → (NoContext | Synthesizing)
//	→ (SynthesisFailed | Completed)
//
// Every terminal state writes exactly one audit entry before the response is
// returned. A denied request schedules no embedding or retrieval work.
type QueryUseCase struct {
	repo        interfaces.Repository
	embedder    embedding.Service
	synthesizer synthesis.Service
	cipher      *crypto.Cipher
	gate        *AccessGate
	limits      QueryLimits
	opsReport   func(error)
}

// NewQueryUseCase creates a new QueryUseCase
func NewQueryUseCase(repo interfaces.Repository, gate *AccessGate, embedder embedding.Service, synthesizer synthesis.Service, cipher *crypto.Cipher, limits QueryLimits, opsReport func(error)) *QueryUseCase {
	if gate == nil {
		gate = NewAccessGate()
	}
	return &QueryUseCase{
		repo:        repo,
		embedder:    embedder,
		synthesizer: synthesizer,
		cipher:      cipher,
		gate:        gate,
		limits:      limits,
		opsReport:   opsReport,
	}
}

// queryMachine tracks the lifecycle state and rejects illegal transitions.
type queryMachine struct {
	state types.QueryState
}

func (m *queryMachine) advance(next types.QueryState) error {
	if !m.state.CanTransitionTo(next) {
		return goerr.Wrap(ErrInvalidTransition, "illegal state transition",
			goerr.V("from", m.state),
			goerr.V("to", next),
		)
	}
	m.state = next
	return nil
}

// Execute answers one clinician question about one patient.
//
// Denied, NoContext, SynthesisFailed, and Completed resolve locally into a
// well-formed response with a nil error. EmbedFailed and RetrieveFailed
// return the infrastructure fault alongside a response carrying the terminal
// state, so the caller can map it to a retry-later answer without internals.
func (uc *QueryUseCase) Execute(ctx context.Context, req *model.QueryRequest) (*model.QueryResponse, error) {
	logger := logging.From(ctx)
	start := time.Now()

	if req.QueryID == "" {
		req.QueryID = types.NewQueryID()
	}

	sm := &queryMachine{state: types.StateReceived}
	var decision model.AccessDecision
	var retrievedIDs []types.RecordID
	confidence := NoContextConfidence

	// One audit entry per attempt, whatever happens below.
	defer func() {
		uc.writeAudit(ctx, buildAuditEntry(req, decision, sm.state, retrievedIDs, confidence, start))
	}()

	if err := sm.advance(types.StateAuthorizing); err != nil {
		return nil, err
	}
	decision = uc.gate.Authorize(req.Principal, req.PatientID)

	if !decision.Granted {
		if err := sm.advance(types.StateDenied); err != nil {
			return nil, err
		}
		logger.Info("query denied",
			"queryID", req.QueryID,
			"principalID", decision.PrincipalID,
			"patientID", req.PatientID,
			"reason", decision.Reason,
		)
		return &model.QueryResponse{
			QueryID:       req.QueryID,
			State:         sm.state,
			AccessGranted: false,
			Answer:        model.DeniedAnswer,
		}, nil
	}

	if err := sm.advance(types.StateEmbedding); err != nil {
		return nil, err
	}
	vector, err := uc.embedder.Embed(ctx, req.Question)
	if err != nil {
		if terr := sm.advance(types.StateEmbedFailed); terr != nil {
			return nil, terr
		}
		return &model.QueryResponse{
				QueryID:       req.QueryID,
				State:         sm.state,
				AccessGranted: true,
			}, goerr.Wrap(ErrEmbeddingFailed, "embedding stage failed",
				goerr.V(QueryIDKey, req.QueryID),
				goerr.V("cause", err.Error()),
			)
	}

	if err := sm.advance(types.StateRetrieving); err != nil {
		return nil, err
	}
	k := uc.clampK(req.RetrieveK)
	retrieveCtx, cancel := context.WithTimeout(ctx, uc.limits.RetrieveTimeout)
	records, scores, err := uc.repo.Record().Search(retrieveCtx, req.PatientID, vector, k)
	cancel()
	if err != nil {
		if terr := sm.advance(types.StateRetrieveFailed); terr != nil {
			return nil, terr
		}
		return &model.QueryResponse{
				QueryID:       req.QueryID,
				State:         sm.state,
				AccessGranted: true,
			}, goerr.Wrap(ErrRetrievalFailed, "retrieval stage failed",
				goerr.V(QueryIDKey, req.QueryID),
				goerr.V("cause", err.Error()),
			)
	}

	// Decrypt the top-k snippets. Only records the index returned are ever
	// decrypted; everything else stays ciphertext.
	matches := make([]*model.RetrievedMatch, len(records))
	retrievedIDs = make([]types.RecordID, len(records))
	for i, rec := range records {
		snippet, err := uc.cipher.Open(req.PatientID, rec.Ciphertext)
		if err != nil {
			if terr := sm.advance(types.StateRetrieveFailed); terr != nil {
				return nil, terr
			}
			return &model.QueryResponse{
					QueryID:       req.QueryID,
					State:         sm.state,
					AccessGranted: true,
				}, goerr.Wrap(ErrRetrievalFailed, "failed to decrypt retrieved snippet",
					goerr.V(QueryIDKey, req.QueryID),
					goerr.V("recordID", rec.ID),
				)
		}
		matches[i] = &model.RetrievedMatch{
			RecordID:      rec.ID,
			Similarity:    scores[i],
			Snippet:       snippet,
			RecordType:    rec.RecordType,
			EffectiveDate: rec.EffectiveDate,
			Provenance:    rec.Provenance,
		}
		retrievedIDs[i] = rec.ID
	}

	if err := sm.advance(types.StateRanking); err != nil {
		return nil, err
	}
	kept, conf, ok := rankMatches(matches, uc.limits.MinSimilarity)
	confidence = conf
	if !ok {
		if terr := sm.advance(types.StateNoContext); terr != nil {
			return nil, terr
		}
		logger.Info("no relevant context",
			"queryID", req.QueryID,
			"patientID", req.PatientID,
			"retrieved", len(records),
		)
		return &model.QueryResponse{
			QueryID:       req.QueryID,
			State:         sm.state,
			AccessGranted: true,
			Answer:        model.NoContextAnswer,
			Sources:       []*model.RetrievedMatch{},
			Confidence:    NoContextConfidence,
		}, nil
	}

	if err := sm.advance(types.StateSynthesizing); err != nil {
		return nil, err
	}
	result, err := uc.synthesizer.Synthesize(ctx, req.Question, kept)
	if err != nil {
		if terr := sm.advance(types.StateSynthesisFailed); terr != nil {
			return nil, terr
		}
		logger.Warn("synthesis failed, returning degraded response",
			"queryID", req.QueryID,
			"error", err.Error(),
		)
		return &model.QueryResponse{
			QueryID:       req.QueryID,
			State:         sm.state,
			AccessGranted: true,
			Answer:        model.DegradedAnswer,
			Sources:       kept,
			Confidence:    confidence,
		}, nil
	}

	if err := sm.advance(types.StateCompleted); err != nil {
		return nil, err
	}
	logger.Info("query completed",
		"queryID", req.QueryID,
		"patientID", req.PatientID,
		"sources", len(result.Sources),
		"confidence", confidence,
		"latency", time.Since(start),
	)
	return &model.QueryResponse{
		QueryID:       req.QueryID,
		State:         sm.state,
		AccessGranted: true,
		Answer:        result.Text,
		Sources:       result.Sources,
		Confidence:    confidence,
	}, nil
}

func (uc *QueryUseCase) clampK(k int) int {
	if k <= 0 {
		return model.DefaultRetrieveK
	}
	if k > uc.limits.MaxRetrieveK {
		return uc.limits.MaxRetrieveK
	}
	return k
}
