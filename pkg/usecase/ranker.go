package usecase

import (
	"github.com/clinsec-lab/asklepios/pkg/domain/model"
)

// NoContextConfidence is the sentinel confidence reported when no match
// clears the threshold. It is exactly 0, never an arbitrary low float.
const NoContextConfidence = 0.0

// rankMatches drops matches below minSimilarity and aggregates confidence.
//
// Confidence policy: the MEAN of the retained matches' similarity scores.
// This is the single number shown to clinicians, so the same policy must be
// applied everywhere; do not substitute best-match or any other aggregate.
//
// ok is false when nothing clears the threshold, so the orchestrator can
// short-circuit to a deterministic "insufficient information" answer instead
// of invoking the generative model on irrelevant snippets.
func rankMatches(matches []*model.RetrievedMatch, minSimilarity float64) (kept []*model.RetrievedMatch, confidence float64, ok bool) {
	kept = make([]*model.RetrievedMatch, 0, len(matches))
	var sum float64
	for _, m := range matches {
		if m.Similarity < minSimilarity {
			continue
		}
		kept = append(kept, m)
		sum += m.Similarity
	}

	if len(kept) == 0 {
		return nil, NoContextConfidence, false
	}

	confidence = sum / float64(len(kept))
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return kept, confidence, true
}
