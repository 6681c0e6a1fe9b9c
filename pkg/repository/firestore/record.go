package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

// distanceField receives the cosine distance computed by FindNearest.
const distanceField = "VectorDistance"

// recordDoc is the Firestore document representation of
// model.ClinicalRecordVector. Embedding is stored as firestore.Vector32 so
// that FindNearest vector search works. The snippet is ciphertext; plaintext
// never reaches Firestore.
type recordDoc struct {
	ID            types.RecordID     `firestore:"ID"`
	PatientID     types.PatientID    `firestore:"PatientID"`
	Embedding     firestore.Vector32 `firestore:"Embedding,omitempty"`
	Ciphertext    []byte             `firestore:"Ciphertext"`
	RecordType    types.RecordType   `firestore:"RecordType"`
	EffectiveDate time.Time          `firestore:"EffectiveDate"`
	Provenance    string             `firestore:"Provenance"`
	CreatedAt     time.Time          `firestore:"CreatedAt"`
}

func toRecordDoc(r *model.ClinicalRecordVector) *recordDoc {
	doc := &recordDoc{
		ID:            r.ID,
		PatientID:     r.PatientID,
		Ciphertext:    r.Ciphertext,
		RecordType:    r.RecordType,
		EffectiveDate: r.EffectiveDate,
		Provenance:    r.Provenance,
		CreatedAt:     r.CreatedAt,
	}
	if len(r.Embedding) > 0 {
		doc.Embedding = firestore.Vector32(r.Embedding)
	}
	return doc
}

func fromRecordDoc(d *recordDoc) *model.ClinicalRecordVector {
	r := &model.ClinicalRecordVector{
		ID:            d.ID,
		PatientID:     d.PatientID,
		Ciphertext:    d.Ciphertext,
		RecordType:    d.RecordType,
		EffectiveDate: d.EffectiveDate,
		Provenance:    d.Provenance,
		CreatedAt:     d.CreatedAt,
	}
	if len(d.Embedding) > 0 {
		r.Embedding = []float32(d.Embedding)
	}
	return r
}

type recordRepository struct {
	client *firestore.Client
}

func newRecordRepository(client *firestore.Client) *recordRepository {
	return &recordRepository{
		client: client,
	}
}

// recordsCollection scopes every operation to one patient's subcollection.
// Namespace isolation holds even if the access gate above has a bug: a query
// against this collection cannot address another patient's documents.
func (r *recordRepository) recordsCollection(patientID types.PatientID) *firestore.CollectionRef {
	return r.client.Collection("patients").Doc(string(patientID)).Collection("records")
}

func (r *recordRepository) Put(ctx context.Context, patientID types.PatientID, records []*model.ClinicalRecordVector) error {
	for _, rec := range records {
		if rec.PatientID != patientID {
			return goerr.New("record does not belong to namespace",
				goerr.V("recordID", rec.ID),
				goerr.V("namespace", patientID),
			)
		}
	}

	now := time.Now().UTC()
	coll := r.recordsCollection(patientID)

	// A transaction commits the namespace update atomically; concurrent
	// readers see the previous or the new snapshot.
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, rec := range records {
			stored := rec.Clone()
			if stored.ID == "" {
				stored.ID = types.NewRecordID()
			}
			if stored.CreatedAt.IsZero() {
				stored.CreatedAt = now
			}
			if err := tx.Set(coll.Doc(string(stored.ID)), toRecordDoc(stored)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to put records", goerr.V("patientID", patientID))
	}

	return nil
}

func (r *recordRepository) Search(ctx context.Context, patientID types.PatientID, vector []float32, k int) ([]*model.ClinicalRecordVector, []float64, error) {
	if k <= 0 {
		return []*model.ClinicalRecordVector{}, []float64{}, nil
	}

	vq := r.recordsCollection(patientID).FindNearest(
		"Embedding",
		firestore.Vector32(vector),
		k,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{
			DistanceResultField: distanceField,
		},
	)

	iter := vq.Documents(ctx)
	defer iter.Stop()

	records := make([]*model.ClinicalRecordVector, 0, k)
	scores := make([]float64, 0, k)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to search records", goerr.V("patientID", patientID))
		}

		var d recordDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, nil, goerr.Wrap(err, "failed to unmarshal record")
		}

		records = append(records, fromRecordDoc(&d))
		scores = append(scores, similarityFromDistance(doc.Data()[distanceField]))
	}

	return records, scores, nil
}

// similarityFromDistance converts a Firestore cosine distance (range [0,2])
// into the [0,1] similarity scale used across the pipeline.
func similarityFromDistance(v any) float64 {
	d, ok := v.(float64)
	if !ok {
		return 0
	}
	s := 1 - d/2
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
