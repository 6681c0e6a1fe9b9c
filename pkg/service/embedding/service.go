package embedding

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"golang.org/x/sync/semaphore"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
)

// ErrEmbeddingFailed signals that the embedding collaborator was unavailable
// or returned an unusable vector after retries were exhausted.
var ErrEmbeddingFailed = goerr.New("embedding failed")

// Service turns sanitized question text into a fixed-length vector. Input is
// assumed to be free of direct identifiers; de-identification happens
// upstream.
type Service interface {
	Embed(ctx context.Context, sanitizedText string) ([]float32, error)
}

// client implements Service interface
type client struct {
	llmClient  gollem.LLMClient
	dimension  int
	timeout    time.Duration
	maxRetries uint64
	sem        *semaphore.Weighted
}

// Option is a functional option for client configuration
type Option func(*client)

// WithTimeout sets the per-attempt timeout for embedding calls
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.timeout = d
	}
}

// WithMaxRetries sets how many times a failed call is retried
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

// New creates a new embedding service with the provided LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &client{
		llmClient:  llmClient,
		dimension:  model.EmbeddingDimension,
		timeout:    10 * time.Second,
		maxRetries: 2,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *client) Embed(ctx context.Context, sanitizedText string) ([]float32, error) {
	if sanitizedText == "" {
		return nil, goerr.Wrap(ErrEmbeddingFailed, "empty question text")
	}

	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, goerr.Wrap(err, "embedding concurrency slot unavailable")
		}
		defer c.sem.Release(1)
	}

	var vector []float32
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		embeddings, err := c.llmClient.GenerateEmbedding(callCtx, c.dimension, []string{sanitizedText})
		if err != nil {
			if ctx.Err() != nil {
				// Caller cancelled or timed out: do not retry.
				return backoff.Permanent(err)
			}
			return err
		}
		if len(embeddings) == 0 {
			return goerr.New("no embedding returned")
		}
		if len(embeddings[0]) != c.dimension {
			return backoff.Permanent(goerr.New("embedding dimension mismatch",
				goerr.V("expected", c.dimension),
				goerr.V("actual", len(embeddings[0])),
			))
		}

		vector = make([]float32, len(embeddings[0]))
		for i, v := range embeddings[0] {
			vector[i] = float32(v)
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, goerr.Wrap(ErrEmbeddingFailed, "failed to generate query embedding", goerr.V("cause", err.Error()))
	}

	return vector, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	return bo
}
