package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

type principalDoc struct {
	ID        types.PrincipalID `firestore:"ID"`
	Name      string            `firestore:"Name"`
	Roles     []types.Role      `firestore:"Roles"`
	Grants    []types.PatientID `firestore:"Grants"`
	CreatedAt time.Time         `firestore:"CreatedAt"`
	UpdatedAt time.Time         `firestore:"UpdatedAt"`
}

func toPrincipalDoc(p *model.Principal) *principalDoc {
	return &principalDoc{
		ID:        p.ID,
		Name:      p.Name,
		Roles:     p.Roles,
		Grants:    p.Grants,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromPrincipalDoc(d *principalDoc) *model.Principal {
	return &model.Principal{
		ID:        d.ID,
		Name:      d.Name,
		Roles:     d.Roles,
		Grants:    d.Grants,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type principalRepository struct {
	client *firestore.Client
}

func newPrincipalRepository(client *firestore.Client) *principalRepository {
	return &principalRepository{
		client: client,
	}
}

func (r *principalRepository) principalsCollection() *firestore.CollectionRef {
	return r.client.Collection("principals")
}

func (r *principalRepository) Get(ctx context.Context, id types.PrincipalID) (*model.Principal, error) {
	doc, err := r.principalsCollection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "principal not found", goerr.V("principalID", id))
		}
		return nil, goerr.Wrap(err, "failed to get principal", goerr.V("principalID", id))
	}

	var d principalDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal principal", goerr.V("principalID", id))
	}

	return fromPrincipalDoc(&d), nil
}

func (r *principalRepository) Put(ctx context.Context, principal *model.Principal) error {
	if principal.ID == "" {
		return goerr.New("principal ID is required")
	}

	now := time.Now().UTC()
	stored := principal.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	docRef := r.principalsCollection().Doc(string(stored.ID))
	if _, err := docRef.Set(ctx, toPrincipalDoc(stored)); err != nil {
		return goerr.Wrap(err, "failed to put principal", goerr.V("principalID", stored.ID))
	}

	return nil
}
