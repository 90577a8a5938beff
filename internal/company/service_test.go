package company

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
	company *models.Company
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) Get(ctx context.Context) (*models.Company, error) {
	if r.company == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *r.company
	return &copied, nil
}

func (r *stubRepo) Update(ctx context.Context, company *models.Company) error {
	copied := *company
	r.company = &copied
	return nil
}

func newTestService(t *testing.T) (Service, *stubRepo, *stubAudit) {
	t.Helper()
	repo := &stubRepo{company: &models.Company{
		ID:                      uuid.New(),
		LegalName:               "My Company",
		CurrencyCode:            "USD",
		DefaultRentalPeriodDays: 7,
	}}
	recorder := &stubAudit{}
	svc, err := NewService(repo, stubTx{}, recorder)
	require.NoError(t, err)
	return svc, repo, recorder
}

func TestUpdateAppliesPartialChanges(t *testing.T) {
	svc, repo, recorder := newTestService(t)

	name := "RentWorks GmbH"
	currency := "eur"
	fee := decimal.NewFromInt(3)
	updated, err := svc.Update(context.Background(), UpdateInput{
		LegalName:     &name,
		CurrencyCode:  &currency,
		LateFeePerDay: &fee,
		ActorID:       uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, "RentWorks GmbH", updated.LegalName)
	assert.Equal(t, "EUR", updated.CurrencyCode)
	assert.Equal(t, 7, updated.DefaultRentalPeriodDays)
	assert.Equal(t, "RentWorks GmbH", repo.company.LegalName)
	require.Len(t, recorder.entries, 1)
}

func TestUpdateRejectsBadCurrencyCode(t *testing.T) {
	svc, _, _ := newTestService(t)

	currency := "EURO"
	_, err := svc.Update(context.Background(), UpdateInput{CurrencyCode: &currency})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateRejectsOutOfRangeTaxRate(t *testing.T) {
	svc, _, _ := newTestService(t)

	rate := decimal.NewFromInt(120)
	_, err := svc.Update(context.Background(), UpdateInput{DefaultTaxRate: &rate})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestGetSurfacesMissingProfile(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.company = nil

	_, err := svc.Get(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}
