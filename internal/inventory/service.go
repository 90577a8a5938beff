package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/internal/audit"
	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines inventory unit operations.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.InventoryUnit, error)
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.InventoryUnit, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.InventoryUnit, error)
	Transition(ctx context.Context, id uuid.UUID, next enums.UnitStatus, actorID uuid.UUID) (*models.InventoryUnit, error)
	TransitionTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, next enums.UnitStatus) (*models.InventoryUnit, error)
	ConsumeTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (*models.InventoryUnit, error)
	RestockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (*models.InventoryUnit, error)
	MaterializeTx(ctx context.Context, tx *gorm.DB, purchase *models.Purchase, lines []ReceiveLine) ([]models.InventoryUnit, error)
	CheckSerialNumber(ctx context.Context, value string) (*SerialCheckResult, error)
	CheckSerialNumbers(ctx context.Context, values []string) (*BatchCheckResult, error)
	CheckBatchCode(ctx context.Context, value string) (*BatchCodeCheckResult, error)
}

// UpdateInput carries the mutable unit fields. Nil pointers leave the
// current value untouched. ClearPricing drops the unit-level overrides
// so resolution falls back to the item defaults; a stored zero
// override is treated the same way by ResolvePricing.
type UpdateInput struct {
	SalePrice       *decimal.Decimal
	RentalRate      *decimal.Decimal
	SecurityDeposit *decimal.Decimal
	ClearPricing    bool
	Location        *string
	Condition       *enums.UnitCondition
	Remarks         *string
	ActorID         uuid.UUID
}

// SerialCheckResult reports whether a serial number is already in use.
type SerialCheckResult struct {
	SerialNumber string            `json:"serial_number"`
	Exists       bool              `json:"exists"`
	UnitID       *uuid.UUID        `json:"unit_id,omitempty"`
	Status       *enums.UnitStatus `json:"status,omitempty"`
	Message      string            `json:"message"`
}

// BatchCodeCheckResult reports whether a batch code is already in use.
type BatchCodeCheckResult struct {
	BatchCode string            `json:"batch_code"`
	Exists    bool              `json:"exists"`
	UnitID    *uuid.UUID        `json:"unit_id,omitempty"`
	Status    *enums.UnitStatus `json:"status,omitempty"`
	Message   string            `json:"message"`
}

// BatchCheckResult reports availability for a set of serial numbers in
// one pass. Results maps each submitted serial to whether it already
// exists in stock; Duplicates lists the values repeated within the
// submission itself.
type BatchCheckResult struct {
	Results    map[string]bool `json:"results"`
	Duplicates []string        `json:"duplicates"`
	Valid      []string        `json:"valid"`
	Message    string          `json:"message"`
}

type service struct {
	repo  Repository
	tx    txRunner
	audit audit.Recorder
}

// NewService builds an inventory service with the required dependencies.
func NewService(repo Repository, tx txRunner, recorder audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, tx: tx, audit: recorder}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.InventoryUnit, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	unit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return unit, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.InventoryUnit, error) {
	rows, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory units")
	}
	return rows, nil
}

func (s *service) UpdateDetails(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.InventoryUnit, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	if input.Condition != nil && !input.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid condition %q", *input.Condition))
	}
	for _, price := range []*decimal.Decimal{input.SalePrice, input.RentalRate, input.SecurityDeposit} {
		if price != nil && price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
		}
	}

	var updated *models.InventoryUnit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		unit, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}

		if input.ClearPricing {
			unit.SalePrice = nil
			unit.RentalRate = nil
			unit.SecurityDeposit = nil
		}
		if input.SalePrice != nil {
			unit.SalePrice = input.SalePrice
		}
		if input.RentalRate != nil {
			unit.RentalRate = input.RentalRate
		}
		if input.SecurityDeposit != nil {
			unit.SecurityDeposit = input.SecurityDeposit
		}
		if input.Location != nil {
			unit.Location = input.Location
		}
		if input.Condition != nil {
			unit.Condition = *input.Condition
		}
		if input.Remarks != nil {
			unit.Remarks = input.Remarks
		}

		if err := repo.Update(ctx, unit); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory unit")
		}

		updated = unit
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionUpdate,
			EntityType:  audit.EntityInventoryUnit,
			EntityID:    &unit.ID,
			Summary:     fmt.Sprintf("inventory unit %s updated", unitLabel(unit)),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Transition moves a unit along its lifecycle and records the change.
func (s *service) Transition(ctx context.Context, id uuid.UUID, next enums.UnitStatus, actorID uuid.UUID) (*models.InventoryUnit, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit status %q", next))
	}

	var updated *models.InventoryUnit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		unit, err := s.TransitionTx(ctx, tx, id, next)
		if err != nil {
			return err
		}
		updated = unit
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(actorID),
			Action:      enums.AuditActionStatus,
			EntityType:  audit.EntityInventoryUnit,
			EntityID:    &unit.ID,
			Summary:     fmt.Sprintf("inventory unit %s moved to %s", unitLabel(unit), next),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// TransitionTx performs a lifecycle move inside an existing transaction.
// Callers owning a wider mutation (rentals, sales) use this so the unit
// state changes atomically with their own writes.
func (s *service) TransitionTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, next enums.UnitStatus) (*models.InventoryUnit, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}

	repo := s.repo.WithTx(tx)
	unit, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}

	if unit.Status == next {
		return unit, nil
	}
	if !unit.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(
			pkgerrors.CodeStateConflict,
			fmt.Sprintf("unit cannot move from %s to %s", unit.Status, next),
		)
	}

	unit.Status = next
	if err := repo.Update(ctx, unit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update unit status")
	}
	return unit, nil
}

// ConsumeTx decrements quantity on a batch unit. The unit is marked
// sold once its quantity reaches zero.
func (s *service) ConsumeTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (*models.InventoryUnit, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	unit, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	if unit.IsSerialized() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "serialized units are sold whole")
	}
	if unit.Status != enums.UnitStatusAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("unit is %s, not available", unit.Status))
	}
	if qty > unit.Quantity {
		return nil, pkgerrors.New(
			pkgerrors.CodeStateConflict,
			fmt.Sprintf("requested %d exceeds on-hand quantity %d", qty, unit.Quantity),
		)
	}

	unit.Quantity -= qty
	if unit.Quantity == 0 {
		unit.Status = enums.UnitStatusSold
	}
	if err := repo.Update(ctx, unit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume batch quantity")
	}
	return unit, nil
}

// RestockTx returns sold quantity to a unit. Batch units get their
// quantity back and reopen if fully consumed. A serialized unit moves
// from sold back to available, the one deliberate exception to the
// forward-only lifecycle, used when a sale is voided.
func (s *service) RestockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (*models.InventoryUnit, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	unit, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	if unit.IsSerialized() {
		if qty != 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "serialized units restock one at a time")
		}
		if unit.Status != enums.UnitStatusSold {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("unit is %s, not sold", unit.Status))
		}
		unit.Status = enums.UnitStatusAvailable
		if err := repo.Update(ctx, unit); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock serialized unit")
		}
		return unit, nil
	}

	if unit.Status == enums.UnitStatusSold {
		unit.Status = enums.UnitStatusAvailable
	}
	unit.Quantity += qty
	if err := repo.Update(ctx, unit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock batch quantity")
	}
	return unit, nil
}

// CheckSerialNumber reports whether a serial number is free to use.
func (s *service) CheckSerialNumber(ctx context.Context, value string) (*SerialCheckResult, error) {
	serial := normalizeIdentifier(value)
	if serial == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial number required")
	}

	unit, err := s.repo.FindBySerialNumber(ctx, serial)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &SerialCheckResult{SerialNumber: serial, Exists: false, Message: fmt.Sprintf("serial number %q is available", serial)}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check serial number")
	}
	return &SerialCheckResult{
		SerialNumber: serial,
		Exists:       true,
		UnitID:       &unit.ID,
		Status:       &unit.Status,
		Message:      fmt.Sprintf("serial number %q is already in stock", serial),
	}, nil
}

// CheckSerialNumbers validates a whole submission at once so intake
// forms can flag every colliding field before the purchase is posted.
func (s *service) CheckSerialNumbers(ctx context.Context, values []string) (*BatchCheckResult, error) {
	serials := normalizeSerials(values)
	if len(serials) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one serial number required")
	}

	seen := make(map[string]int, len(serials))
	for _, serial := range serials {
		seen[serial]++
	}

	existing, err := s.repo.ExistingSerials(ctx, serials)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check serial numbers")
	}
	inStock := make(map[string]bool, len(existing))
	for _, serial := range existing {
		inStock[serial] = true
	}

	result := &BatchCheckResult{
		Results:    make(map[string]bool, len(seen)),
		Duplicates: []string{},
		Valid:      []string{},
	}
	unavailable := 0
	for _, serial := range serials {
		if _, done := result.Results[serial]; done {
			continue
		}
		result.Results[serial] = inStock[serial]
		repeated := seen[serial] > 1
		if repeated {
			result.Duplicates = append(result.Duplicates, serial)
		}
		switch {
		case inStock[serial] || repeated:
			unavailable++
		default:
			result.Valid = append(result.Valid, serial)
		}
	}
	if unavailable == 0 {
		result.Message = "all serial numbers are available"
	} else {
		result.Message = fmt.Sprintf("%d of %d serial numbers are unavailable", unavailable, len(result.Results))
	}
	return result, nil
}

// CheckBatchCode reports whether a batch code is free to use.
func (s *service) CheckBatchCode(ctx context.Context, value string) (*BatchCodeCheckResult, error) {
	code := normalizeIdentifier(value)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch code required")
	}

	unit, err := s.repo.FindByBatchCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &BatchCodeCheckResult{BatchCode: code, Exists: false, Message: fmt.Sprintf("batch code %q is available", code)}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check batch code")
	}
	return &BatchCodeCheckResult{
		BatchCode: code,
		Exists:    true,
		UnitID:    &unit.ID,
		Status:    &unit.Status,
		Message:   fmt.Sprintf("batch code %q is already in stock", code),
	}, nil
}

func unitLabel(unit *models.InventoryUnit) string {
	if unit.SerialNumber != nil {
		return *unit.SerialNumber
	}
	if unit.BatchCode != nil {
		return *unit.BatchCode
	}
	return unit.ID.String()
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory unit not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory unit")
}

func actorRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
