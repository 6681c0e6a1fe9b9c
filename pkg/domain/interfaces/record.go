package interfaces

import (
	"context"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

// RecordRepository is the encrypted record index. Records are partitioned by
// patient so a search scoped to one patient can never observe another
// patient's records, independent of the access gate above it.
type RecordRepository interface {
	// Put stores records into the patient's namespace. Writes to one
	// namespace are serialized; a concurrent Search of the same namespace
	// sees either the previous or the new snapshot, never a partial update.
	Put(ctx context.Context, patientID types.PatientID, records []*model.ClinicalRecordVector) error

	// Search returns up to k records from the patient's namespace ordered by
	// descending cosine similarity to the query vector, ties broken by most
	// recent effective date, then record ID. Similarity is normalized to
	// [0,1]. A missing or empty namespace returns an empty slice, not an
	// error. Snippets in the result are still ciphertext; decryption is the
	// caller's concern.
	Search(ctx context.Context, patientID types.PatientID, vector []float32, k int) ([]*model.ClinicalRecordVector, []float64, error)
}
