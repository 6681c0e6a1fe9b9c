package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

// namespace holds one patient's records as an immutable snapshot. Put builds
// a fresh snapshot and swaps the pointer under the write lock, so a
// concurrent Search observes either the old or the new set, never a partial
// update.
type namespace struct {
	records []*model.ClinicalRecordVector
}

type recordRepository struct {
	mu         sync.RWMutex
	namespaces map[types.PatientID]*namespace
}

func newRecordRepository() *recordRepository {
	return &recordRepository{
		namespaces: make(map[types.PatientID]*namespace),
	}
}

func (r *recordRepository) Put(ctx context.Context, patientID types.PatientID, records []*model.ClinicalRecordVector) error {
	for _, rec := range records {
		if rec.PatientID != patientID {
			return goerr.New("record does not belong to namespace",
				goerr.V("recordID", rec.ID),
				goerr.V("namespace", patientID),
			)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var base []*model.ClinicalRecordVector
	if ns, exists := r.namespaces[patientID]; exists {
		base = ns.records
	}

	merged := make(map[types.RecordID]*model.ClinicalRecordVector, len(base)+len(records))
	for _, rec := range base {
		merged[rec.ID] = rec
	}
	for _, rec := range records {
		stored := rec.Clone()
		if stored.ID == "" {
			stored.ID = types.NewRecordID()
		}
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		merged[stored.ID] = stored
	}

	next := make([]*model.ClinicalRecordVector, 0, len(merged))
	for _, rec := range merged {
		next = append(next, rec)
	}

	r.namespaces[patientID] = &namespace{records: next}
	return nil
}

func (r *recordRepository) Search(ctx context.Context, patientID types.PatientID, vector []float32, k int) ([]*model.ClinicalRecordVector, []float64, error) {
	if k <= 0 {
		return []*model.ClinicalRecordVector{}, []float64{}, nil
	}

	r.mu.RLock()
	ns, exists := r.namespaces[patientID]
	r.mu.RUnlock()

	// An absent or empty namespace is a legitimate no-context result.
	if !exists || len(ns.records) == 0 {
		return []*model.ClinicalRecordVector{}, []float64{}, nil
	}

	type scored struct {
		record *model.ClinicalRecordVector
		score  float64
	}

	candidates := make([]scored, 0, len(ns.records))
	for _, rec := range ns.records {
		if len(rec.Embedding) == 0 {
			continue
		}
		s := cosineSimilarity(vector, rec.Embedding)
		candidates = append(candidates, scored{record: rec, score: s})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		// Equal similarity: favor clinically current records, then fall
		// back to record ID so identical queries order identically.
		if !candidates[i].record.EffectiveDate.Equal(candidates[j].record.EffectiveDate) {
			return candidates[i].record.EffectiveDate.After(candidates[j].record.EffectiveDate)
		}
		return candidates[i].record.ID < candidates[j].record.ID
	})

	if k > len(candidates) {
		k = len(candidates)
	}

	records := make([]*model.ClinicalRecordVector, k)
	scores := make([]float64, k)
	for i := 0; i < k; i++ {
		records[i] = candidates[i].record.Clone()
		scores[i] = candidates[i].score
	}

	return records, scores, nil
}

// cosineSimilarity returns cosine similarity shifted into [0,1].
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	return (dot/denom + 1) / 2
}
