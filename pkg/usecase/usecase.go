package usecase

import (
	"time"

	"github.com/clinsec-lab/asklepios/pkg/domain/interfaces"
	"github.com/clinsec-lab/asklepios/pkg/service/crypto"
	"github.com/clinsec-lab/asklepios/pkg/service/embedding"
	"github.com/clinsec-lab/asklepios/pkg/service/synthesis"
)

// QueryLimits bounds retrieval and ranking for every query.
type QueryLimits struct {
	// MaxRetrieveK caps k to bound synthesis-stage cost
	MaxRetrieveK int
	// MinSimilarity is the relevance threshold below which matches are
	// dropped rather than passed to the generative model
	MinSimilarity float64
	// RetrieveTimeout bounds one index search
	RetrieveTimeout time.Duration
}

// DefaultQueryLimits returns the default retrieval bounds
func DefaultQueryLimits() QueryLimits {
	return QueryLimits{
		MaxRetrieveK:    10,
		MinSimilarity:   0.55,
		RetrieveTimeout: 5 * time.Second,
	}
}

type UseCases struct {
	repo        interfaces.Repository
	embedder    embedding.Service
	synthesizer synthesis.Service
	cipher      *crypto.Cipher
	gate        *AccessGate
	limits      QueryLimits
	opsReport   func(error)

	Query *QueryUseCase
}

type Option func(*UseCases)

// WithEmbedder sets the query embedding service
func WithEmbedder(svc embedding.Service) Option {
	return func(uc *UseCases) {
		uc.embedder = svc
	}
}

// WithSynthesizer sets the answer synthesis service
func WithSynthesizer(svc synthesis.Service) Option {
	return func(uc *UseCases) {
		uc.synthesizer = svc
	}
}

// WithCipher sets the snippet cipher for the encrypted record index
func WithCipher(cipher *crypto.Cipher) Option {
	return func(uc *UseCases) {
		uc.cipher = cipher
	}
}

// WithAccessGate replaces the default access gate, typically with one built
// from the access policy file
func WithAccessGate(gate *AccessGate) Option {
	return func(uc *UseCases) {
		uc.gate = gate
	}
}

// WithQueryLimits overrides the default retrieval bounds
func WithQueryLimits(limits QueryLimits) Option {
	return func(uc *UseCases) {
		uc.limits = limits
	}
}

// WithOpsReport sets the operational channel for failures that must never
// block a clinical response but must never be invisible, such as audit
// persistence errors.
func WithOpsReport(report func(error)) Option {
	return func(uc *UseCases) {
		uc.opsReport = report
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:   repo,
		gate:   NewAccessGate(),
		limits: DefaultQueryLimits(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Query = NewQueryUseCase(repo, uc.gate, uc.embedder, uc.synthesizer, uc.cipher, uc.limits, uc.opsReport)

	return uc
}

// Repository exposes the underlying repository for controllers that need
// read access, such as audit listing.
func (uc *UseCases) Repository() interfaces.Repository {
	return uc.repo
}
