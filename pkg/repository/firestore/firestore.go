package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"

	"github.com/clinsec-lab/asklepios/pkg/domain/interfaces"
)

type Firestore struct {
	client    *firestore.Client
	record    *recordRepository
	audit     *auditRepository
	principal *principalRepository
}

var _ interfaces.Repository = &Firestore{}

func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client", goerr.V("projectID", projectID))
	}

	return &Firestore{
		client:    client,
		record:    newRecordRepository(client),
		audit:     newAuditRepository(client),
		principal: newPrincipalRepository(client),
	}, nil
}

func (f *Firestore) Record() interfaces.RecordRepository {
	return f.record
}

func (f *Firestore) Audit() interfaces.AuditRepository {
	return f.audit
}

func (f *Firestore) Principal() interfaces.PrincipalRepository {
	return f.principal
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
