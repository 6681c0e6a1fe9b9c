package model

import (
	"time"

	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

// EmbeddingDimension is the fixed dimensionality shared by the query embedder
// and the record index. A mismatch is a configuration error and is rejected
// at startup, not at query time.
const EmbeddingDimension = 768

// ClinicalRecordVector is one embedded clinical snippet owned by the record
// index, partitioned by patient. The snippet itself is stored only as
// ciphertext; plaintext exists transiently inside RetrievedMatch for records
// actually returned to a granted query.
type ClinicalRecordVector struct {
	ID            types.RecordID
	PatientID     types.PatientID
	Embedding     []float32
	Ciphertext    []byte
	RecordType    types.RecordType
	EffectiveDate time.Time
	Provenance    string
	CreatedAt     time.Time
}

// Clone returns a deep copy of the record.
func (r *ClinicalRecordVector) Clone() *ClinicalRecordVector {
	if r == nil {
		return nil
	}
	copied := &ClinicalRecordVector{
		ID:            r.ID,
		PatientID:     r.PatientID,
		RecordType:    r.RecordType,
		EffectiveDate: r.EffectiveDate,
		Provenance:    r.Provenance,
		CreatedAt:     r.CreatedAt,
	}
	if r.Embedding != nil {
		copied.Embedding = make([]float32, len(r.Embedding))
		copy(copied.Embedding, r.Embedding)
	}
	if r.Ciphertext != nil {
		copied.Ciphertext = make([]byte, len(r.Ciphertext))
		copy(copied.Ciphertext, r.Ciphertext)
	}
	return copied
}
