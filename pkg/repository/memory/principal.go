package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

type principalRepository struct {
	mu         sync.RWMutex
	principals map[types.PrincipalID]*model.Principal
}

func newPrincipalRepository() *principalRepository {
	return &principalRepository{
		principals: make(map[types.PrincipalID]*model.Principal),
	}
}

func (r *principalRepository) Get(ctx context.Context, id types.PrincipalID) (*model.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.principals[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "principal not found", goerr.V("principalID", id))
	}

	return p.Clone(), nil
}

func (r *principalRepository) Put(ctx context.Context, principal *model.Principal) error {
	if principal.ID == "" {
		return goerr.New("principal ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	stored := principal.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	r.principals[stored.ID] = stored
	return nil
}
