package model

import (
	"time"

	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

// RetrievedMatch is a decrypted top-k hit from the record index. It exists
// only for the duration of one query and is never persisted. The audit entry
// references record IDs, not snippets.
type RetrievedMatch struct {
	RecordID      types.RecordID
	Similarity    float64 `masq:"secret"`
	Snippet       string  `masq:"secret"`
	RecordType    types.RecordType
	EffectiveDate time.Time
	Provenance    string
}
