package config

import (
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/semaphore"

	"github.com/clinsec-lab/asklepios/pkg/usecase"
)

// Query holds CLI flags for query pipeline limits and timeouts
type Query struct {
	maxRetrieveK      int
	minSimilarity     float64
	embedTimeout      time.Duration
	retrieveTimeout   time.Duration
	synthesizeTimeout time.Duration
	llmMaxConcurrency int
}

// Flags returns CLI flags for query pipeline configuration
func (q *Query) Flags() []cli.Flag {
	defaults := usecase.DefaultQueryLimits()
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "max-retrieve-k",
			Usage:       "Maximum number of records retrieved per query",
			Value:       defaults.MaxRetrieveK,
			Sources:     cli.EnvVars("ASKLEPIOS_MAX_RETRIEVE_K"),
			Destination: &q.maxRetrieveK,
		},
		&cli.FloatFlag{
			Name:        "min-similarity",
			Usage:       "Similarity threshold below which matches are dropped",
			Value:       defaults.MinSimilarity,
			Sources:     cli.EnvVars("ASKLEPIOS_MIN_SIMILARITY"),
			Destination: &q.minSimilarity,
		},
		&cli.DurationFlag{
			Name:        "embed-timeout",
			Usage:       "Timeout for one embedding call",
			Value:       10 * time.Second,
			Sources:     cli.EnvVars("ASKLEPIOS_EMBED_TIMEOUT"),
			Destination: &q.embedTimeout,
		},
		&cli.DurationFlag{
			Name:        "retrieve-timeout",
			Usage:       "Timeout for one index search",
			Value:       defaults.RetrieveTimeout,
			Sources:     cli.EnvVars("ASKLEPIOS_RETRIEVE_TIMEOUT"),
			Destination: &q.retrieveTimeout,
		},
		&cli.DurationFlag{
			Name:        "synthesize-timeout",
			Usage:       "Timeout for one answer synthesis call",
			Value:       20 * time.Second,
			Sources:     cli.EnvVars("ASKLEPIOS_SYNTHESIZE_TIMEOUT"),
			Destination: &q.synthesizeTimeout,
		},
		&cli.IntFlag{
			Name:        "llm-max-concurrency",
			Usage:       "Maximum concurrent LLM calls across embedding and synthesis",
			Value:       8,
			Sources:     cli.EnvVars("ASKLEPIOS_LLM_MAX_CONCURRENCY"),
			Destination: &q.llmMaxConcurrency,
		},
	}
}

// Limits returns the retrieval bounds for the orchestrator
func (q *Query) Limits() usecase.QueryLimits {
	return usecase.QueryLimits{
		MaxRetrieveK:    q.maxRetrieveK,
		MinSimilarity:   q.minSimilarity,
		RetrieveTimeout: q.retrieveTimeout,
	}
}

// EmbedTimeout returns the per-call embedding timeout
func (q *Query) EmbedTimeout() time.Duration {
	return q.embedTimeout
}

// SynthesizeTimeout returns the per-call synthesis timeout
func (q *Query) SynthesizeTimeout() time.Duration {
	return q.synthesizeTimeout
}

// Semaphore returns the weighted semaphore shared by all outbound LLM calls
func (q *Query) Semaphore() *semaphore.Weighted {
	n := q.llmMaxConcurrency
	if n <= 0 {
		n = 8
	}
	return semaphore.NewWeighted(int64(n))
}
