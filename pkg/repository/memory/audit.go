package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

type auditRepository struct {
	mu      sync.RWMutex
	entries []*model.AuditEntry
	seen    map[types.AuditID]struct{}
}

func newAuditRepository() *auditRepository {
	return &auditRepository{
		seen: make(map[types.AuditID]struct{}),
	}
}

func (r *auditRepository) Put(ctx context.Context, entry *model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := entry.Clone()
	if stored.ID == "" {
		stored.ID = types.NewAuditID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	// Entries are immutable once written.
	if _, exists := r.seen[stored.ID]; exists {
		return goerr.New("audit entry already exists", goerr.V("auditID", stored.ID))
	}

	r.seen[stored.ID] = struct{}{}
	r.entries = append(r.entries, stored)
	return nil
}

func (r *auditRepository) ListByPatient(ctx context.Context, patientID types.PatientID, limit int) ([]*model.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.AuditEntry, 0)
	for _, e := range r.entries {
		if e.PatientID == patientID {
			result = append(result, e.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}

	return result, nil
}
