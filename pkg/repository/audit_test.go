package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/clinsec-lab/asklepios/pkg/domain/interfaces"
	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
	"github.com/clinsec-lab/asklepios/pkg/repository/memory"
)

func testAuditEntry(id types.AuditID, patientID types.PatientID, createdAt time.Time) *model.AuditEntry {
	return &model.AuditEntry{
		ID:            id,
		QueryID:       types.NewQueryID(),
		PrincipalID:   "principal-test",
		PatientID:     patientID,
		AccessGranted: true,
		RecordIDs:     []types.RecordID{"rec-1"},
		Confidence:    0.75,
		Latency:       120 * time.Millisecond,
		Outcome:       types.OutcomeSuccess,
		CreatedAt:     createdAt,
	}
}

func runAuditRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Put and ListByPatient roundtrip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		patientID := types.PatientID(fmt.Sprintf("patient-%d", time.Now().UnixNano()))

		entry := testAuditEntry(types.NewAuditID(), patientID, time.Now().UTC().Truncate(time.Millisecond))
		if err := repo.Audit().Put(ctx, entry); err != nil {
			t.Fatalf("failed to put audit entry: %v", err)
		}

		entries, err := repo.Audit().ListByPatient(ctx, patientID, 0)
		if err != nil {
			t.Fatalf("failed to list audit entries: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}

		got := entries[0]
		if got.ID != entry.ID {
			t.Errorf("expected ID=%s, got %s", entry.ID, got.ID)
		}
		if got.QueryID != entry.QueryID {
			t.Errorf("expected QueryID=%s, got %s", entry.QueryID, got.QueryID)
		}
		if !got.AccessGranted {
			t.Error("expected AccessGranted=true")
		}
		if got.Outcome != types.OutcomeSuccess {
			t.Errorf("expected outcome SUCCESS, got %s", got.Outcome)
		}
		if got.Latency != entry.Latency {
			t.Errorf("expected latency %v, got %v", entry.Latency, got.Latency)
		}
	})

	t.Run("Put rejects duplicate IDs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		patientID := types.PatientID(fmt.Sprintf("patient-%d", time.Now().UnixNano()))

		id := types.NewAuditID()
		if err := repo.Audit().Put(ctx, testAuditEntry(id, patientID, time.Now().UTC())); err != nil {
			t.Fatalf("failed to put audit entry: %v", err)
		}
		if err := repo.Audit().Put(ctx, testAuditEntry(id, patientID, time.Now().UTC())); err == nil {
			t.Error("expected error on duplicate audit ID, entries must be immutable")
		}
	})

	t.Run("ListByPatient orders newest first and honors limit", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		patientID := types.PatientID(fmt.Sprintf("patient-%d", time.Now().UnixNano()))

		base := time.Now().UTC().Truncate(time.Second)
		for i := 0; i < 3; i++ {
			entry := testAuditEntry(types.NewAuditID(), patientID, base.Add(time.Duration(i)*time.Minute))
			if err := repo.Audit().Put(ctx, entry); err != nil {
				t.Fatalf("failed to put audit entry: %v", err)
			}
		}

		entries, err := repo.Audit().ListByPatient(ctx, patientID, 2)
		if err != nil {
			t.Fatalf("failed to list audit entries: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if !entries[0].CreatedAt.After(entries[1].CreatedAt) {
			t.Errorf("expected newest first, got %v then %v", entries[0].CreatedAt, entries[1].CreatedAt)
		}
	})

	t.Run("ListByPatient filters by patient", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		patientA := types.PatientID(fmt.Sprintf("patient-a-%d", time.Now().UnixNano()))
		patientB := types.PatientID(fmt.Sprintf("patient-b-%d", time.Now().UnixNano()))

		if err := repo.Audit().Put(ctx, testAuditEntry(types.NewAuditID(), patientA, time.Now().UTC())); err != nil {
			t.Fatalf("failed to put audit entry: %v", err)
		}

		entries, err := repo.Audit().ListByPatient(ctx, patientB, 0)
		if err != nil {
			t.Fatalf("failed to list audit entries: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected no entries for other patient, got %d", len(entries))
		}
	})
}

func runPrincipalRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Put and Get roundtrip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id := types.PrincipalID(fmt.Sprintf("principal-%d", time.Now().UnixNano()))
		principal := &model.Principal{
			ID:     id,
			Name:   "Test Clinician",
			Roles:  []types.Role{types.RoleResident},
			Grants: []types.PatientID{"patient-a"},
		}
		if err := repo.Principal().Put(ctx, principal); err != nil {
			t.Fatalf("failed to put principal: %v", err)
		}

		got, err := repo.Principal().Get(ctx, id)
		if err != nil {
			t.Fatalf("failed to get principal: %v", err)
		}
		if got.Name != principal.Name {
			t.Errorf("expected name %s, got %s", principal.Name, got.Name)
		}
		if len(got.Roles) != 1 || got.Roles[0] != types.RoleResident {
			t.Errorf("unexpected roles: %v", got.Roles)
		}
		if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
			t.Error("expected timestamps to be set")
		}
	})

	t.Run("Get unknown principal fails", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Principal().Get(ctx, "no-such-principal")
		if err == nil {
			t.Error("expected error for unknown principal")
		}
	})

	t.Run("Put without ID fails", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		err := repo.Principal().Put(ctx, &model.Principal{Name: "No ID"})
		if err == nil {
			t.Error("expected error for principal without ID")
		}
	})
}

func TestMemoryNotFound(t *testing.T) {
	repo := memory.New()
	_, err := repo.Principal().Get(context.Background(), "missing")
	if !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryAuditRepository(t *testing.T) {
	runAuditRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestFirestoreAuditRepository(t *testing.T) {
	runAuditRepositoryTest(t, newFirestoreRepository)
}

func TestMemoryPrincipalRepository(t *testing.T) {
	runPrincipalRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestFirestorePrincipalRepository(t *testing.T) {
	runPrincipalRepositoryTest(t, newFirestoreRepository)
}
