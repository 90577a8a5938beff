package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/rentworks/rentworks-backend/pkg/logger"
)

// OverdueRentalsJobParams configure the rental sweep.
type OverdueRentalsJobParams struct {
	Logger  *logger.Logger
	Rentals overdueMarker
}

type overdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
}

// NewOverdueRentalsJob builds the job that flips active rentals past
// their due date to overdue.
func NewOverdueRentalsJob(params OverdueRentalsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Rentals == nil {
		return nil, fmt.Errorf("rentals service required")
	}
	return &overdueRentalsJob{
		logg:    params.Logger,
		rentals: params.Rentals,
		now:     time.Now,
	}, nil
}

type overdueRentalsJob struct {
	logg    *logger.Logger
	rentals overdueMarker
	now     func() time.Time
}

func (j *overdueRentalsJob) Name() string { return "overdue-rentals" }

func (j *overdueRentalsJob) Run(ctx context.Context) error {
	asOf := j.now().UTC()
	flipped, err := j.rentals.MarkOverdue(ctx, asOf)
	if err != nil {
		return fmt.Errorf("mark overdue rentals: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":   asOf,
		"flipped": flipped,
	})
	j.logg.Info(logCtx, "overdue rental sweep complete")
	return nil
}
