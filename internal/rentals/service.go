package rentals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/internal/audit"
	"github.com/rentworks/rentworks-backend/internal/inventory"
	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// customerDirectory is the slice of the customer service rentals need.
type customerDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// settingsSource supplies the company defaults applied when a rental
// does not specify its own.
type settingsSource interface {
	Get(ctx context.Context) (*models.Company, error)
}

// unitGateway moves inventory units through their lifecycle inside the
// rental transaction.
type unitGateway interface {
	Get(ctx context.Context, id uuid.UUID) (*models.InventoryUnit, error)
	TransitionTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, next enums.UnitStatus) (*models.InventoryUnit, error)
}

// Service defines rental agreement operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Rental, error)
	Return(ctx context.Context, id uuid.UUID, input ReturnInput) (*models.Rental, error)
	Cancel(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.Rental, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Rental, error)
}

// LineInput requests one inventory unit on a rental. Nil overrides fall
// back to the resolved unit or item pricing.
type LineInput struct {
	InventoryUnitID uuid.UUID        `json:"inventory_unit_id" validate:"required"`
	Periods         int              `json:"periods"`
	RateOverride    *decimal.Decimal `json:"rate_override"`
	DepositOverride *decimal.Decimal `json:"deposit_override"`
}

// CreateInput opens a new rental agreement.
type CreateInput struct {
	CustomerID uuid.UUID   `json:"customer_id" validate:"required"`
	StartDate  time.Time   `json:"start_date"`
	DueDate    time.Time   `json:"due_date"`
	Notes      *string     `json:"notes"`
	Lines      []LineInput `json:"lines" validate:"required,min=1"`
	ActorID    uuid.UUID   `json:"-"`
}

// ReturnLineInput records the comeback of one rented unit.
type ReturnLineInput struct {
	LineID    uuid.UUID           `json:"line_id" validate:"required"`
	Condition enums.UnitCondition `json:"condition" validate:"required"`
}

// ReturnInput processes a full or partial return.
type ReturnInput struct {
	Lines      []ReturnLineInput `json:"lines" validate:"required,min=1"`
	ReturnedAt *time.Time        `json:"returned_at"`
	ActorID    uuid.UUID         `json:"-"`
}

type service struct {
	repo      Repository
	tx        txRunner
	customers customerDirectory
	settings  settingsSource
	units     unitGateway
	audit     audit.Recorder
}

// NewService builds a rentals service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	customers customerDirectory,
	settings settingsSource,
	units unitGateway,
	recorder audit.Recorder,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rental repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer directory required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings source required")
	}
	if units == nil {
		return nil, fmt.Errorf("unit gateway required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		customers: customers,
		settings:  settings,
		units:     units,
		audit:     recorder,
	}, nil
}

// Create opens a rental and moves every requested unit to rented in the
// same transaction. A unit that is not available fails the whole call.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Rental, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rental requires at least one line")
	}

	customer, err := s.customers.Get(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if !customer.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "customer is inactive")
	}

	company, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	startDate := input.StartDate
	if startDate.IsZero() {
		startDate = time.Now().UTC()
	}
	dueDate := input.DueDate
	if dueDate.IsZero() {
		dueDate = startDate.AddDate(0, 0, company.DefaultRentalPeriodDays)
	}
	if dueDate.Before(startDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "due date cannot precede start date")
	}

	var created *models.Rental
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		lines := make([]models.RentalLine, 0, len(input.Lines))
		chargeTotal := decimal.Zero
		depositTotal := decimal.Zero
		seen := make(map[uuid.UUID]struct{}, len(input.Lines))

		for i, lineInput := range input.Lines {
			if lineInput.InventoryUnitID == uuid.Nil {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: inventory unit id required", i))
			}
			if _, dup := seen[lineInput.InventoryUnitID]; dup {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: unit listed twice", i))
			}
			seen[lineInput.InventoryUnitID] = struct{}{}

			unit, err := s.units.Get(ctx, lineInput.InventoryUnitID)
			if err != nil {
				return err
			}
			if !unit.IsSerialized() {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: batch stock cannot be rented", i))
			}
			if unit.Item == nil {
				return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("item missing on unit %s", unit.ID))
			}

			if _, err := s.units.TransitionTx(ctx, tx, unit.ID, enums.UnitStatusRented); err != nil {
				return err
			}

			pricing := inventory.ResolvePricing(unit.Item, unit, company.DefaultRentalPeriodDays)
			rate := pricing.RentalRate
			if lineInput.RateOverride != nil {
				if lineInput.RateOverride.IsNegative() {
					return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: rate cannot be negative", i))
				}
				rate = *lineInput.RateOverride
			}
			deposit := pricing.SecurityDeposit
			if lineInput.DepositOverride != nil {
				if lineInput.DepositOverride.IsNegative() {
					return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: deposit cannot be negative", i))
				}
				deposit = *lineInput.DepositOverride
			}
			periods := lineInput.Periods
			if periods <= 0 {
				periods = 1
			}

			lineTotal := rate.Mul(decimal.NewFromInt(int64(periods))).Round(2)
			chargeTotal = chargeTotal.Add(lineTotal)
			depositTotal = depositTotal.Add(deposit)

			lines = append(lines, models.RentalLine{
				ID:              uuid.New(),
				InventoryUnitID: unit.ID,
				RatePerPeriod:   rate,
				Periods:         periods,
				Deposit:         deposit,
				LineTotal:       lineTotal,
			})
		}

		number, err := s.allocateNumber(ctx, repo, startDate)
		if err != nil {
			return err
		}

		rental := &models.Rental{
			ID:           uuid.New(),
			Number:       number,
			CustomerID:   customer.ID,
			StartDate:    startDate,
			DueDate:      dueDate,
			Status:       enums.RentalStatusActive,
			ChargeTotal:  chargeTotal.Round(2),
			DepositTotal: depositTotal.Round(2),
			LateFeeTotal: decimal.Zero,
			Notes:        input.Notes,
			CreatedBy:    input.ActorID,
			Lines:        lines,
		}
		for i := range rental.Lines {
			rental.Lines[i].RentalID = rental.ID
		}

		if err := repo.Create(ctx, rental); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rental")
		}

		created = rental
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionCreate,
			EntityType:  audit.EntityRental,
			EntityID:    &rental.ID,
			Summary:     fmt.Sprintf("rental %s opened for %s with %d units", rental.Number, customer.Name, len(rental.Lines)),
			Metadata:    map[string]any{"charge_total": rental.ChargeTotal, "due_date": rental.DueDate},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Return processes a full or partial return. Returned units move back
// to available unless they come back damaged or needing repair, in
// which case they stay in returned for inspection. When the last open
// line closes, the rental itself closes and any late fee is assessed.
func (s *service) Return(ctx context.Context, id uuid.UUID, input ReturnInput) (*models.Rental, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return requires at least one line")
	}
	for i, line := range input.Lines {
		if !line.Condition.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: invalid condition %q", i, line.Condition))
		}
	}

	returnedAt := time.Now().UTC()
	if input.ReturnedAt != nil {
		returnedAt = *input.ReturnedAt
	}

	var result *models.Rental
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rental, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}
		if !rental.Status.IsOpen() {
			return pkgerrors.New(
				pkgerrors.CodeStateConflict,
				fmt.Sprintf("rental %s is %s and cannot accept returns", rental.Number, rental.Status),
			)
		}

		byLine := make(map[uuid.UUID]*models.RentalLine, len(rental.Lines))
		for i := range rental.Lines {
			byLine[rental.Lines[i].ID] = &rental.Lines[i]
		}

		returnedNames := make([]string, 0, len(input.Lines))
		for _, lineInput := range input.Lines {
			line, ok := byLine[lineInput.LineID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %s not on this rental", lineInput.LineID))
			}
			if line.ReturnedAt != nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("line %s already returned", line.ID))
			}

			unit, err := s.units.TransitionTx(ctx, tx, line.InventoryUnitID, enums.UnitStatusReturned)
			if err != nil {
				return err
			}
			next := enums.UnitStatusAvailable
			if lineInput.Condition == enums.UnitConditionDamaged || lineInput.Condition == enums.UnitConditionUnderRepair {
				next = enums.UnitStatusReturned
			}
			if next != enums.UnitStatusReturned {
				if _, err := s.units.TransitionTx(ctx, tx, line.InventoryUnitID, next); err != nil {
					return err
				}
			}

			at := returnedAt
			condition := lineInput.Condition
			line.ReturnedAt = &at
			line.ReturnCondition = &condition
			if err := repo.UpdateLine(ctx, line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rental line")
			}
			returnedNames = append(returnedNames, unitName(unit))
		}

		allReturned := true
		for i := range rental.Lines {
			if rental.Lines[i].ReturnedAt == nil {
				allReturned = false
				break
			}
		}
		if allReturned {
			rental.Status = enums.RentalStatusReturned
			closedAt := returnedAt
			rental.ClosedAt = &closedAt
			fee, err := s.lateFee(ctx, rental, returnedAt)
			if err != nil {
				return err
			}
			rental.LateFeeTotal = fee
		}
		if err := repo.Update(ctx, rental); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rental")
		}

		result = rental
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionStatus,
			EntityType:  audit.EntityRental,
			EntityID:    &rental.ID,
			Summary:     fmt.Sprintf("rental %s: %d units returned", rental.Number, len(input.Lines)),
			Metadata: map[string]any{
				"units":       returnedNames,
				"closed":      allReturned,
				"late_fee":    rental.LateFeeTotal,
				"returned_at": returnedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel voids a rental before anything came back. Units return
// straight to available. A rental with partial returns must be closed
// through Return instead.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.Rental, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
	}

	var cancelled *models.Rental
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rental, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}
		if !rental.Status.IsOpen() {
			return pkgerrors.New(
				pkgerrors.CodeStateConflict,
				fmt.Sprintf("rental %s is %s and cannot be cancelled", rental.Number, rental.Status),
			)
		}
		for i := range rental.Lines {
			if rental.Lines[i].ReturnedAt != nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "rental has returned units, close it via return")
			}
		}

		for i := range rental.Lines {
			line := &rental.Lines[i]
			if _, err := s.units.TransitionTx(ctx, tx, line.InventoryUnitID, enums.UnitStatusReturned); err != nil {
				return err
			}
			if _, err := s.units.TransitionTx(ctx, tx, line.InventoryUnitID, enums.UnitStatusAvailable); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		rental.Status = enums.RentalStatusCancelled
		rental.ClosedAt = &now
		if err := repo.Update(ctx, rental); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel rental")
		}

		cancelled = rental
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(actorID),
			Action:      enums.AuditActionStatus,
			EntityType:  audit.EntityRental,
			EntityID:    &rental.ID,
			Summary:     fmt.Sprintf("rental %s cancelled", rental.Number),
		})
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// MarkOverdue flips active rentals past their due date to overdue and
// reports how many changed. Run from the scheduler.
func (s *service) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	rentals, err := s.repo.ListDueBefore(ctx, asOf)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due rentals")
	}

	flipped := 0
	for i := range rentals {
		rental := rentals[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			rental.Status = enums.RentalStatusOverdue
			if err := repo.Update(ctx, &rental); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark rental overdue")
			}
			return s.audit.Record(ctx, tx, audit.Entry{
				Action:     enums.AuditActionStatus,
				EntityType: audit.EntityRental,
				EntityID:   &rental.ID,
				Summary:    fmt.Sprintf("rental %s marked overdue", rental.Number),
			})
		})
		if err != nil {
			return flipped, err
		}
		flipped++
	}
	return flipped, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rental id required")
	}
	rental, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return rental, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Rental, error) {
	rows, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rentals")
	}
	return rows, nil
}

// lateFee charges the company's configured per-day rate for every
// started day past the due date. A zero rate disables late fees; an
// unreadable settings row fails the return rather than silently
// waiving the charge.
func (s *service) lateFee(ctx context.Context, rental *models.Rental, returnedAt time.Time) (decimal.Decimal, error) {
	if !returnedAt.After(rental.DueDate) {
		return decimal.Zero, nil
	}
	company, err := s.settings.Get(ctx)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load late fee policy")
	}
	if company.LateFeePerDay.IsZero() {
		return decimal.Zero, nil
	}

	daysLate := int64(returnedAt.Sub(rental.DueDate).Hours() / 24)
	if returnedAt.Sub(rental.DueDate)%(24*time.Hour) > 0 {
		daysLate++
	}
	return company.LateFeePerDay.Mul(decimal.NewFromInt(daysLate)).Round(2), nil
}

func (s *service) allocateNumber(ctx context.Context, repo Repository, startDate time.Time) (string, error) {
	seq, err := repo.NextNumberSequence(ctx)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate rental number")
	}
	return fmt.Sprintf("RNT-%s-%d", startDate.UTC().Format("20060102"), seq), nil
}

func unitName(unit *models.InventoryUnit) string {
	if unit.SerialNumber != nil {
		return *unit.SerialNumber
	}
	return unit.ID.String()
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental")
}

func actorRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
