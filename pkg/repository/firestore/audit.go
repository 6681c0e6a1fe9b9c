package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

type auditDoc struct {
	ID            types.AuditID      `firestore:"ID"`
	QueryID       types.QueryID      `firestore:"QueryID"`
	PrincipalID   types.PrincipalID  `firestore:"PrincipalID"`
	PatientID     types.PatientID    `firestore:"PatientID"`
	AccessGranted bool               `firestore:"AccessGranted"`
	RecordIDs     []types.RecordID   `firestore:"RecordIDs"`
	Confidence    float64            `firestore:"Confidence"`
	LatencyMillis int64              `firestore:"LatencyMillis"`
	Outcome       types.QueryOutcome `firestore:"Outcome"`
	CreatedAt     time.Time          `firestore:"CreatedAt"`
}

func toAuditDoc(e *model.AuditEntry) *auditDoc {
	return &auditDoc{
		ID:            e.ID,
		QueryID:       e.QueryID,
		PrincipalID:   e.PrincipalID,
		PatientID:     e.PatientID,
		AccessGranted: e.AccessGranted,
		RecordIDs:     e.RecordIDs,
		Confidence:    e.Confidence,
		LatencyMillis: e.Latency.Milliseconds(),
		Outcome:       e.Outcome,
		CreatedAt:     e.CreatedAt,
	}
}

func fromAuditDoc(d *auditDoc) *model.AuditEntry {
	return &model.AuditEntry{
		ID:            d.ID,
		QueryID:       d.QueryID,
		PrincipalID:   d.PrincipalID,
		PatientID:     d.PatientID,
		AccessGranted: d.AccessGranted,
		RecordIDs:     d.RecordIDs,
		Confidence:    d.Confidence,
		Latency:       time.Duration(d.LatencyMillis) * time.Millisecond,
		Outcome:       d.Outcome,
		CreatedAt:     d.CreatedAt,
	}
}

type auditRepository struct {
	client *firestore.Client
}

func newAuditRepository(client *firestore.Client) *auditRepository {
	return &auditRepository{
		client: client,
	}
}

func (r *auditRepository) auditsCollection() *firestore.CollectionRef {
	return r.client.Collection("audits")
}

func (r *auditRepository) Put(ctx context.Context, entry *model.AuditEntry) error {
	stored := entry.Clone()
	if stored.ID == "" {
		stored.ID = types.NewAuditID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	// Create, not Set: an existing entry must never be overwritten.
	docRef := r.auditsCollection().Doc(string(stored.ID))
	if _, err := docRef.Create(ctx, toAuditDoc(stored)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return goerr.New("audit entry already exists", goerr.V("auditID", stored.ID))
		}
		return goerr.Wrap(err, "failed to put audit entry", goerr.V("auditID", stored.ID))
	}

	return nil
}

func (r *auditRepository) ListByPatient(ctx context.Context, patientID types.PatientID, limit int) ([]*model.AuditEntry, error) {
	q := r.auditsCollection().
		Where("PatientID", "==", string(patientID)).
		OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	entries := make([]*model.AuditEntry, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate audit entries", goerr.V("patientID", patientID))
		}

		var d auditDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal audit entry")
		}

		entries = append(entries, fromAuditDoc(&d))
	}

	return entries, nil
}
