package suppliers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/internal/audit"
	"github.com/rentworks/rentworks-backend/pkg/db/models"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
)

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubAudit struct {
	entries []audit.Entry
}

func (a *stubAudit) Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

type stubRepo struct {
	byID      map[uuid.UUID]*models.Supplier
	purchases int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{byID: make(map[uuid.UUID]*models.Supplier)}
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) Create(ctx context.Context, supplier *models.Supplier) error {
	r.byID[supplier.ID] = supplier
	return nil
}

func (r *stubRepo) Update(ctx context.Context, supplier *models.Supplier) error {
	r.byID[supplier.ID] = supplier
	return nil
}

func (r *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func (r *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	supplier, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return supplier, nil
}

func (r *stubRepo) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Supplier, error) {
	return nil, nil
}

func (r *stubRepo) CountPurchases(ctx context.Context, id uuid.UUID) (int64, error) {
	return r.purchases, nil
}

func TestCreateSupplier(t *testing.T) {
	repo := newStubRepo()
	recorder := &stubAudit{}
	svc, err := NewService(repo, stubTx{}, recorder)
	require.NoError(t, err)

	supplier, err := svc.Create(context.Background(), CreateInput{
		Name:             "Acme Supply Co",
		PaymentTermsDays: 30,
		ActorID:          uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, 30, supplier.PaymentTermsDays)
	assert.True(t, supplier.IsActive)
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, audit.EntitySupplier, recorder.entries[0].EntityType)
}

func TestCreateSupplierRejectsNegativeTerms(t *testing.T) {
	svc, err := NewService(newStubRepo(), stubTx{}, &stubAudit{})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Name: "Acme", PaymentTermsDays: -1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDeleteSupplierWithPurchasesBlocked(t *testing.T) {
	repo := newStubRepo()
	svc, err := NewService(repo, stubTx{}, &stubAudit{})
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), CreateInput{Name: "Acme"})
	require.NoError(t, err)

	repo.purchases = 1
	err = svc.Delete(context.Background(), created.ID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}
