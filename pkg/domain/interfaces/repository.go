package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Record() RecordRepository
	Audit() AuditRepository
	Principal() PrincipalRepository

	Close() error
}
