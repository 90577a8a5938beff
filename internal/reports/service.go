package reports

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
)

// Service exposes operational reports.
type Service interface {
	StockSummary(ctx context.Context) ([]StatusCount, error)
	ReorderAlerts(ctx context.Context) ([]ItemStock, error)
	OverdueRentals(ctx context.Context, asOf time.Time) ([]OverdueRental, error)
	Revenue(ctx context.Context, from, to time.Time) (*RevenueSummary, error)
}

type service struct {
	repo Repository
}

// NewService builds a reports service over the aggregate repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) StockSummary(ctx context.Context) ([]StatusCount, error) {
	rows, err := s.repo.StockByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stock summary")
	}
	return rows, nil
}

func (s *service) ReorderAlerts(ctx context.Context) ([]ItemStock, error) {
	rows, err := s.repo.ItemsBelowReorder(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reorder alerts")
	}
	return rows, nil
}

func (s *service) OverdueRentals(ctx context.Context, asOf time.Time) ([]OverdueRental, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	rows, err := s.repo.OverdueRentals(ctx, asOf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "overdue rentals")
	}
	return rows, nil
}

func (s *service) Revenue(ctx context.Context, from, to time.Time) (*RevenueSummary, error) {
	if from.IsZero() || to.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "revenue range required")
	}
	if to.Before(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "revenue range end precedes start")
	}
	summary, err := s.repo.Revenue(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revenue summary")
	}
	return summary, nil
}
