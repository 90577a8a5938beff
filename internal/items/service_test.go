package items

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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
	byID  map[uuid.UUID]*models.Item
	units int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{byID: make(map[uuid.UUID]*models.Item)}
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) Create(ctx context.Context, item *models.Item) error {
	r.byID[item.ID] = item
	return nil
}

func (r *stubRepo) Update(ctx context.Context, item *models.Item) error {
	r.byID[item.ID] = item
	return nil
}

func (r *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func (r *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (r *stubRepo) FindBySKU(ctx context.Context, sku string) (*models.Item, error) {
	for _, item := range r.byID {
		if item.SKU == sku {
			return item, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Item, error) {
	return nil, nil
}

func (r *stubRepo) CountUnits(ctx context.Context, id uuid.UUID) (int64, error) {
	return r.units, nil
}

func TestCreateItemNormalizesSKUAndTags(t *testing.T) {
	repo := newStubRepo()
	svc, err := NewService(repo, stubTx{}, &stubAudit{})
	require.NoError(t, err)

	item, err := svc.Create(context.Background(), CreateInput{
		SKU:        " drill-01 ",
		Name:       "Power Drill",
		Tags:       []string{" Tools ", "tools", "POWER"},
		SalePrice:  decimal.NewFromInt(250),
		RentalRate: decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	assert.Equal(t, "DRILL-01", item.SKU)
	assert.Equal(t, []string{"tools", "power"}, []string(item.Tags))
	assert.True(t, item.IsActive)
}

func TestCreateItemRejectsNegativePrice(t *testing.T) {
	svc, err := NewService(newStubRepo(), stubTx{}, &stubAudit{})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{
		SKU:       "X-1",
		Name:      "Thing",
		SalePrice: decimal.NewFromInt(-5),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDeleteItemWithUnitsBlocked(t *testing.T) {
	repo := newStubRepo()
	svc, err := NewService(repo, stubTx{}, &stubAudit{})
	require.NoError(t, err)

	item, err := svc.Create(context.Background(), CreateInput{SKU: "X-1", Name: "Thing"})
	require.NoError(t, err)

	repo.units = 2
	err = svc.Delete(context.Background(), item.ID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestUpdateItemValidatesCombinedPricing(t *testing.T) {
	repo := newStubRepo()
	svc, err := NewService(repo, stubTx{}, &stubAudit{})
	require.NoError(t, err)

	item, err := svc.Create(context.Background(), CreateInput{SKU: "X-1", Name: "Thing"})
	require.NoError(t, err)

	bad := decimal.NewFromInt(-1)
	_, err = svc.Update(context.Background(), item.ID, UpdateInput{RentalRate: &bad})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
