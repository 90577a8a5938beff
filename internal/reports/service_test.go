package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentworks/rentworks-backend/pkg/enums"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
)

type stubRepo struct {
	stock   []StatusCount
	reorder []ItemStock
	overdue []OverdueRental
	revenue *RevenueSummary
	asOf    time.Time
}

func (r *stubRepo) StockByStatus(ctx context.Context) ([]StatusCount, error) {
	return r.stock, nil
}

func (r *stubRepo) ItemsBelowReorder(ctx context.Context) ([]ItemStock, error) {
	return r.reorder, nil
}

func (r *stubRepo) OverdueRentals(ctx context.Context, asOf time.Time) ([]OverdueRental, error) {
	r.asOf = asOf
	return r.overdue, nil
}

func (r *stubRepo) Revenue(ctx context.Context, from, to time.Time) (*RevenueSummary, error) {
	return r.revenue, nil
}

func TestStockSummaryPassesThrough(t *testing.T) {
	repo := &stubRepo{stock: []StatusCount{{Status: enums.UnitStatusAvailable, Units: 3, Quantity: 40}}}
	svc, err := NewService(repo)
	require.NoError(t, err)

	rows, err := svc.StockSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(40), rows[0].Quantity)
}

func TestOverdueRentalsDefaultsAsOf(t *testing.T) {
	repo := &stubRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	_, err = svc.OverdueRentals(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.False(t, repo.asOf.IsZero())
}

func TestRevenueValidatesRange(t *testing.T) {
	repo := &stubRepo{revenue: &RevenueSummary{SalesRevenue: decimal.NewFromInt(100)}}
	svc, err := NewService(repo)
	require.NoError(t, err)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	summary, err := svc.Revenue(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, "100", summary.SalesRevenue.String())

	_, err = svc.Revenue(context.Background(), to, from)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Revenue(context.Background(), time.Time{}, to)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDaysBetweenRoundsUp(t *testing.T) {
	due := time.Date(2025, 2, 8, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, daysBetween(due, due))
	assert.Equal(t, 1, daysBetween(due, due.Add(6*time.Hour)))
	assert.Equal(t, 3, daysBetween(due, due.Add(54*time.Hour)))
}
