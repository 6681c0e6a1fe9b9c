package usecase_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/usecase"
)

func matchesWithSimilarities(sims ...float64) []*model.RetrievedMatch {
	matches := make([]*model.RetrievedMatch, len(sims))
	for i, s := range sims {
		matches[i] = &model.RetrievedMatch{Similarity: s}
	}
	return matches
}

func TestRankMatchesThreshold(t *testing.T) {
	kept, confidence, ok := usecase.RankMatches(matchesWithSimilarities(1.0, 0.75, 0.25), 0.5)
	gt.Bool(t, ok).True()
	gt.Array(t, kept).Length(2)
	gt.Value(t, confidence).Equal(0.875)
}

func TestRankMatchesMeanPolicy(t *testing.T) {
	// The mean of the retained scores, not the best match.
	kept, confidence, ok := usecase.RankMatches(matchesWithSimilarities(1.0, 0.5), 0.5)
	gt.Bool(t, ok).True()
	gt.Array(t, kept).Length(2)
	gt.Value(t, confidence).Equal(0.75)
}

func TestRankMatchesNoContext(t *testing.T) {
	t.Run("all below threshold", func(t *testing.T) {
		kept, confidence, ok := usecase.RankMatches(matchesWithSimilarities(0.5, 0.25), 0.55)
		gt.Bool(t, ok).False()
		gt.Array(t, kept).Length(0)
		gt.Value(t, confidence).Equal(0.0)
	})

	t.Run("no matches", func(t *testing.T) {
		kept, confidence, ok := usecase.RankMatches(nil, 0.55)
		gt.Bool(t, ok).False()
		gt.Array(t, kept).Length(0)
		gt.Value(t, confidence).Equal(0.0)
	})
}

func TestRankMatchesBounds(t *testing.T) {
	// Confidence stays within [0,1] even for out-of-range inputs.
	_, confidence, ok := usecase.RankMatches(matchesWithSimilarities(1.25, 1.5), 0.5)
	gt.Bool(t, ok).True()
	gt.Bool(t, confidence <= 1.0).True()
	gt.Bool(t, confidence >= 0.0).True()
}

func TestRankMatchesExactThreshold(t *testing.T) {
	// A match exactly at the threshold is retained.
	kept, _, ok := usecase.RankMatches(matchesWithSimilarities(0.5), 0.5)
	gt.Bool(t, ok).True()
	gt.Array(t, kept).Length(1)
}
