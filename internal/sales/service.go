package sales

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

var percentDivisor = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// customerDirectory is the slice of the customer service sales need.
type customerDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// settingsSource supplies company defaults for tax and pricing.
type settingsSource interface {
	Get(ctx context.Context) (*models.Company, error)
}

// unitGateway adjusts inventory inside the sale transaction. Serialized
// units sell whole through a status transition; batch units sell by
// quantity.
type unitGateway interface {
	Get(ctx context.Context, id uuid.UUID) (*models.InventoryUnit, error)
	TransitionTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, next enums.UnitStatus) (*models.InventoryUnit, error)
	ConsumeTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (*models.InventoryUnit, error)
	RestockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (*models.InventoryUnit, error)
}

// Service defines sale operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Sale, error)
	Cancel(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.Sale, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Sale, error)
}

// LineInput sells one inventory unit, or a quantity from a batch unit.
// Nil PriceOverride resolves through unit then item pricing; nil
// TaxRate falls back to the company default.
type LineInput struct {
	InventoryUnitID uuid.UUID        `json:"inventory_unit_id" validate:"required"`
	Quantity        int              `json:"quantity"`
	PriceOverride   *decimal.Decimal `json:"price_override"`
	Discount        decimal.Decimal  `json:"discount"`
	TaxRate         *decimal.Decimal `json:"tax_rate"`
}

// CreateInput records a completed sale.
type CreateInput struct {
	CustomerID uuid.UUID   `json:"customer_id" validate:"required"`
	SaleDate   time.Time   `json:"sale_date"`
	Notes      *string     `json:"notes"`
	Lines      []LineInput `json:"lines" validate:"required,min=1"`
	ActorID    uuid.UUID   `json:"-"`
}

type service struct {
	repo      Repository
	tx        txRunner
	customers customerDirectory
	settings  settingsSource
	units     unitGateway
	audit     audit.Recorder
}

// NewService builds a sales service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	customers customerDirectory,
	settings settingsSource,
	units unitGateway,
	recorder audit.Recorder,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
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

// Create records a sale and adjusts stock in one transaction. Any line
// that cannot be fulfilled fails the whole sale.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Sale, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale requires at least one line")
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

	saleDate := input.SaleDate
	if saleDate.IsZero() {
		saleDate = time.Now().UTC()
	}

	var created *models.Sale
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		lines := make([]models.SaleLine, 0, len(input.Lines))
		subtotal := decimal.Zero
		discountTotal := decimal.Zero
		taxTotal := decimal.Zero
		grandTotal := decimal.Zero
		seen := make(map[uuid.UUID]struct{}, len(input.Lines))

		for i, lineInput := range input.Lines {
			if lineInput.InventoryUnitID == uuid.Nil {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: inventory unit id required", i))
			}
			if _, dup := seen[lineInput.InventoryUnitID]; dup {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: unit listed twice", i))
			}
			seen[lineInput.InventoryUnitID] = struct{}{}
			if lineInput.Discount.IsNegative() {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: discount cannot be negative", i))
			}

			unit, err := s.units.Get(ctx, lineInput.InventoryUnitID)
			if err != nil {
				return err
			}
			if unit.Item == nil {
				return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("item missing on unit %s", unit.ID))
			}

			qty := lineInput.Quantity
			if unit.IsSerialized() {
				if qty > 1 {
					return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: serialized units sell whole", i))
				}
				qty = 1
				if _, err := s.units.TransitionTx(ctx, tx, unit.ID, enums.UnitStatusSold); err != nil {
					return err
				}
			} else {
				if qty <= 0 {
					return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: quantity must be positive", i))
				}
				if _, err := s.units.ConsumeTx(ctx, tx, unit.ID, qty); err != nil {
					return err
				}
			}

			price := inventory.ResolvePricing(unit.Item, unit, company.DefaultRentalPeriodDays).SalePrice
			if lineInput.PriceOverride != nil {
				if lineInput.PriceOverride.IsNegative() {
					return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: price cannot be negative", i))
				}
				price = *lineInput.PriceOverride
			}
			taxRate := company.DefaultTaxRate
			if lineInput.TaxRate != nil {
				if lineInput.TaxRate.IsNegative() || lineInput.TaxRate.GreaterThan(percentDivisor) {
					return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: tax rate must be between 0 and 100", i))
				}
				taxRate = *lineInput.TaxRate
			}

			extended := price.Mul(decimal.NewFromInt(int64(qty)))
			if lineInput.Discount.GreaterThan(extended) {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: discount exceeds line amount", i))
			}
			discounted := extended.Sub(lineInput.Discount)
			tax := discounted.Mul(taxRate).Div(percentDivisor).Round(2)
			lineTotal := discounted.Add(tax).Round(2)

			subtotal = subtotal.Add(extended)
			discountTotal = discountTotal.Add(lineInput.Discount)
			taxTotal = taxTotal.Add(tax)
			grandTotal = grandTotal.Add(lineTotal)

			lines = append(lines, models.SaleLine{
				ID:              uuid.New(),
				InventoryUnitID: unit.ID,
				Quantity:        qty,
				UnitPrice:       price,
				Discount:        lineInput.Discount,
				TaxRate:         taxRate,
				LineTotal:       lineTotal,
			})
		}

		number, err := s.allocateNumber(ctx, repo, saleDate)
		if err != nil {
			return err
		}

		sale := &models.Sale{
			ID:            uuid.New(),
			Number:        number,
			CustomerID:    customer.ID,
			SaleDate:      saleDate,
			Status:        enums.SaleStatusCompleted,
			Subtotal:      subtotal.Round(2),
			DiscountTotal: discountTotal.Round(2),
			TaxTotal:      taxTotal.Round(2),
			GrandTotal:    grandTotal.Round(2),
			Notes:         input.Notes,
			CreatedBy:     input.ActorID,
			Lines:         lines,
		}
		for i := range sale.Lines {
			sale.Lines[i].SaleID = sale.ID
		}

		if err := repo.Create(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
		}

		created = sale
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionCreate,
			EntityType:  audit.EntitySale,
			EntityID:    &sale.ID,
			Summary:     fmt.Sprintf("sale %s recorded for %s", sale.Number, customer.Name),
			Metadata:    map[string]any{"grand_total": sale.GrandTotal, "lines": len(sale.Lines)},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Cancel voids a sale and returns its stock. Serialized units move
// back to available; batch quantities are restocked.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.Sale, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}

	var cancelled *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sale, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}
		if sale.Status == enums.SaleStatusCancelled {
			cancelled = sale
			return nil
		}

		for i := range sale.Lines {
			line := &sale.Lines[i]
			if _, err := s.units.RestockTx(ctx, tx, line.InventoryUnitID, line.Quantity); err != nil {
				return err
			}
		}

		sale.Status = enums.SaleStatusCancelled
		if err := repo.Update(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel sale")
		}

		cancelled = sale
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(actorID),
			Action:      enums.AuditActionStatus,
			EntityType:  audit.EntitySale,
			EntityID:    &sale.ID,
			Summary:     fmt.Sprintf("sale %s cancelled, stock returned", sale.Number),
		})
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return sale, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Sale, error) {
	rows, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	return rows, nil
}

func (s *service) allocateNumber(ctx context.Context, repo Repository, saleDate time.Time) (string, error) {
	seq, err := repo.NextNumberSequence(ctx)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate sale number")
	}
	return fmt.Sprintf("SAL-%s-%d", saleDate.UTC().Format("20060102"), seq), nil
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
}

func actorRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
