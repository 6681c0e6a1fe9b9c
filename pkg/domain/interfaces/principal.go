package interfaces

import (
	"context"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

// PrincipalRepository resolves authenticated callers from a durable store.
type PrincipalRepository interface {
	// Get retrieves a principal by ID. Returns ErrNotFound of the backing
	// repository when the principal does not exist.
	Get(ctx context.Context, id types.PrincipalID) (*model.Principal, error)

	// Put creates or replaces a principal.
	Put(ctx context.Context, principal *model.Principal) error
}
