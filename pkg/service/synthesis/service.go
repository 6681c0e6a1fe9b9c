package synthesis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"golang.org/x/sync/semaphore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
)

// ErrSynthesisFailed signals that the generative collaborator failed after
// the timeout and retry budget. The orchestrator maps it to a degraded
// response that still carries the retrieved sources.
var ErrSynthesisFailed = goerr.New("answer synthesis failed")

// Service produces a cited answer from the question and the filtered
// matches. Confidence is carried through from the retrieval ranker by the
// caller, never recomputed from the model.
type Service interface {
	Synthesize(ctx context.Context, question string, matches []*model.RetrievedMatch) (*model.AnswerResult, error)
}

// client implements Service interface
type client struct {
	llmClient  gollem.LLMClient
	timeout    time.Duration
	maxRetries uint64
	sem        *semaphore.Weighted
}

// Option is a functional option for client configuration
type Option func(*client)

// WithTimeout sets the hard per-attempt timeout for model calls
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.timeout = d
	}
}

// WithMaxRetries sets how many times a transient failure is retried
func WithMaxRetries(n uint64) Option {
	return func(c *client) {
		c.maxRetries = n
	}
}

// WithSemaphore bounds concurrent outbound calls; the semaphore may be
// shared with other external-model services.
func WithSemaphore(sem *semaphore.Weighted) Option {
	return func(c *client) {
		c.sem = sem
	}
}

// New creates a new synthesis service with the provided LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &client{
		llmClient:  llmClient,
		timeout:    20 * time.Second,
		maxRetries: 2,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// llmAnswer is the structured output from the LLM
type llmAnswer struct {
	Answer string `json:"answer"`
	// CitedSources holds 1-based positions into the prompt's [S1]..[Sn] tags
	CitedSources []int `json:"cited_sources"`
}

func (c *client) Synthesize(ctx context.Context, question string, matches []*model.RetrievedMatch) (*model.AnswerResult, error) {
	if len(matches) == 0 {
		return nil, goerr.Wrap(ErrSynthesisFailed, "no context to synthesize from")
	}

	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, goerr.Wrap(err, "synthesis concurrency slot unavailable")
		}
		defer c.sem.Release(1)
	}

	userPrompt := buildUserPrompt(question, matches)

	var parsed llmAnswer
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		session, err := c.llmClient.NewSession(callCtx,
			gollem.WithSessionContentType(gollem.ContentTypeJSON),
			gollem.WithSessionResponseSchema(buildResponseSchema()),
			gollem.WithSessionSystemPrompt(systemPrompt),
		)
		if err != nil {
			return classify(ctx, err)
		}

		resp, err := session.GenerateContent(callCtx, gollem.Text(userPrompt))
		if err != nil {
			return classify(ctx, err)
		}
		if len(resp.Texts) == 0 {
			return goerr.New("empty response from model")
		}

		if err := json.Unmarshal([]byte(resp.Texts[0]), &parsed); err != nil {
			// A malformed payload will not improve on retry.
			return backoff.Permanent(goerr.Wrap(err, "failed to parse model response"))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, goerr.Wrap(ErrSynthesisFailed, "generative model call failed", goerr.V("cause", err.Error()))
	}

	return &model.AnswerResult{
		Text:    parsed.Answer,
		Sources: citedSubset(matches, parsed.CitedSources),
	}, nil
}

// classify decides whether a model failure is worth retrying. Network-level
// and quota failures are transient; auth failures and malformed requests are
// not.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(err)
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
		return err
	case codes.Unauthenticated, codes.PermissionDenied, codes.InvalidArgument:
		return backoff.Permanent(err)
	}
	return err
}

// citedSubset returns the matches the model actually cited, in citation
// order. Invalid positions are dropped; if nothing valid remains, all
// matches are returned so the caller never loses its sources.
func citedSubset(matches []*model.RetrievedMatch, cited []int) []*model.RetrievedMatch {
	result := make([]*model.RetrievedMatch, 0, len(cited))
	seen := make(map[int]bool, len(cited))
	for _, pos := range cited {
		idx := pos - 1
		if idx < 0 || idx >= len(matches) || seen[idx] {
			continue
		}
		seen[idx] = true
		result = append(result, matches[idx])
	}
	if len(result) == 0 {
		return matches
	}
	return result
}

func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 4 * time.Second
	return bo
}
