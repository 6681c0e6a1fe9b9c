package memory

import (
	"github.com/clinsec-lab/asklepios/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	record    *recordRepository
	audit     *auditRepository
	principal *principalRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		record:    newRecordRepository(),
		audit:     newAuditRepository(),
		principal: newPrincipalRepository(),
	}
}

func (m *Memory) Record() interfaces.RecordRepository {
	return m.record
}

func (m *Memory) Audit() interfaces.AuditRepository {
	return m.audit
}

func (m *Memory) Principal() interfaces.PrincipalRepository {
	return m.principal
}

func (m *Memory) Close() error {
	return nil
}
