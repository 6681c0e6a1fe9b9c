package synthesis_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/m-mizutani/gt"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
	"github.com/clinsec-lab/asklepios/pkg/service/synthesis"
)

func sampleMatches() []*model.RetrievedMatch {
	return []*model.RetrievedMatch{
		{
			RecordID:      "rec-1",
			Similarity:    0.9,
			Snippet:       "Metformin 500mg twice daily.",
			RecordType:    types.RecordTypeMedication,
			EffectiveDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			RecordID:      "rec-2",
			Similarity:    0.8,
			Snippet:       "HbA1c 7.2% on last draw.",
			RecordType:    types.RecordTypeLabResult,
			EffectiveDate: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := synthesis.BuildUserPrompt("What diabetes medication is the patient on?", sampleMatches())

	gt.Bool(t, strings.Contains(prompt, "What diabetes medication is the patient on?")).True()
	gt.Bool(t, strings.Contains(prompt, "[S1] type=medication date=2025-06-01")).True()
	gt.Bool(t, strings.Contains(prompt, "[S2] type=lab_result date=2025-05-01")).True()
	gt.Bool(t, strings.Contains(prompt, "Metformin 500mg twice daily.")).True()
	gt.Bool(t, strings.Contains(prompt, "HbA1c 7.2% on last draw.")).True()
}

func TestBuildUserPromptTruncatesLongSnippets(t *testing.T) {
	matches := sampleMatches()
	matches[0].Snippet = strings.Repeat("x", synthesis.SnippetCharLimit+500)

	prompt := synthesis.BuildUserPrompt("question", matches)
	gt.Bool(t, strings.Contains(prompt, strings.Repeat("x", synthesis.SnippetCharLimit+1))).False()
	gt.Bool(t, strings.Contains(prompt, strings.Repeat("x", synthesis.SnippetCharLimit))).True()
}

func TestCitedSubset(t *testing.T) {
	matches := sampleMatches()

	t.Run("keeps cited order", func(t *testing.T) {
		subset := synthesis.CitedSubset(matches, []int{2, 1})
		gt.Array(t, subset).Length(2)
		gt.Value(t, subset[0].RecordID).Equal(types.RecordID("rec-2"))
		gt.Value(t, subset[1].RecordID).Equal(types.RecordID("rec-1"))
	})

	t.Run("drops invalid positions", func(t *testing.T) {
		subset := synthesis.CitedSubset(matches, []int{0, 1, 5, -2})
		gt.Array(t, subset).Length(1)
		gt.Value(t, subset[0].RecordID).Equal(types.RecordID("rec-1"))
	})

	t.Run("drops duplicates", func(t *testing.T) {
		subset := synthesis.CitedSubset(matches, []int{1, 1, 1})
		gt.Array(t, subset).Length(1)
	})

	t.Run("falls back to all matches", func(t *testing.T) {
		subset := synthesis.CitedSubset(matches, []int{7, 8})
		gt.Array(t, subset).Length(2)
	})
}

func TestClassify(t *testing.T) {
	isPermanent := func(err error) bool {
		var perm *backoff.PermanentError
		return errors.As(err, &perm)
	}

	t.Run("cancelled context is permanent", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		gt.Bool(t, isPermanent(synthesis.Classify(ctx, errors.New("boom")))).True()
	})

	t.Run("transient codes are retried", func(t *testing.T) {
		ctx := context.Background()
		for _, code := range []codes.Code{codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded} {
			err := status.Error(code, "upstream")
			gt.Bool(t, isPermanent(synthesis.Classify(ctx, err))).False()
		}
	})

	t.Run("auth and malformed are permanent", func(t *testing.T) {
		ctx := context.Background()
		for _, code := range []codes.Code{codes.Unauthenticated, codes.PermissionDenied, codes.InvalidArgument} {
			err := status.Error(code, "rejected")
			gt.Bool(t, isPermanent(synthesis.Classify(ctx, err))).True()
		}
	})
}

func TestNewRequiresClient(t *testing.T) {
	_, err := synthesis.New(nil)
	gt.Error(t, err)
}
