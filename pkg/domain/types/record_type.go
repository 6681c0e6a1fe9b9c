package types

import "fmt"

// RecordType classifies the clinical origin of a record snippet
type RecordType string

const (
	RecordTypeMedication RecordType = "medication"
	RecordTypeLabResult  RecordType = "lab_result"
	RecordTypeDiagnosis  RecordType = "diagnosis"
	RecordTypeProcedure  RecordType = "procedure"
	RecordTypeNote       RecordType = "note"
)

// AllRecordTypes returns all valid record types
func AllRecordTypes() []RecordType {
	return []RecordType{
		RecordTypeMedication,
		RecordTypeLabResult,
		RecordTypeDiagnosis,
		RecordTypeProcedure,
		RecordTypeNote,
	}
}

// IsValid checks if the record type is valid
func (t RecordType) IsValid() bool {
	switch t {
	case RecordTypeMedication,
		RecordTypeLabResult,
		RecordTypeDiagnosis,
		RecordTypeProcedure,
		RecordTypeNote:
		return true
	default:
		return false
	}
}

// String returns the string representation of the record type
func (t RecordType) String() string {
	return string(t)
}

// ParseRecordType parses a string into a RecordType
func ParseRecordType(s string) (RecordType, error) {
	rt := RecordType(s)
	if !rt.IsValid() {
		return "", fmt.Errorf("invalid record type: %s", s)
	}
	return rt, nil
}
