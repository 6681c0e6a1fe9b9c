package types

import "github.com/google/uuid"

// PrincipalID identifies an authenticated caller
type PrincipalID string

// String returns the string representation of the principal ID
func (id PrincipalID) String() string {
	return string(id)
}

// PatientID identifies a patient namespace in the record index
type PatientID string

// String returns the string representation of the patient ID
func (id PatientID) String() string {
	return string(id)
}

// RecordID identifies a single clinical record vector
type RecordID string

// NewRecordID generates a new random RecordID
func NewRecordID() RecordID {
	return RecordID(uuid.NewString())
}

// String returns the string representation of the record ID
func (id RecordID) String() string {
	return string(id)
}

// QueryID identifies one query attempt, shared by the response and its audit entry
type QueryID string

// NewQueryID generates a new random QueryID
func NewQueryID() QueryID {
	return QueryID(uuid.NewString())
}

// String returns the string representation of the query ID
func (id QueryID) String() string {
	return string(id)
}

// AuditID identifies an audit entry
type AuditID string

// NewAuditID generates a new random AuditID
func NewAuditID() AuditID {
	return AuditID(uuid.NewString())
}

// String returns the string representation of the audit ID
func (id AuditID) String() string {
	return string(id)
}
