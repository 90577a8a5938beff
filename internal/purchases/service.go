package purchases

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

// supplierDirectory is the slice of the supplier service purchases need.
type supplierDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
}

// itemDirectory resolves catalog items referenced by purchase lines.
type itemDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Item, error)
}

// unitMaterializer turns received purchase lines into inventory units
// inside the receiving transaction.
type unitMaterializer interface {
	MaterializeTx(ctx context.Context, tx *gorm.DB, purchase *models.Purchase, lines []inventory.ReceiveLine) ([]models.InventoryUnit, error)
}

// Service defines purchase order operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Purchase, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Purchase, error)
	Receive(ctx context.Context, id uuid.UUID, input ReceiveInput) (*models.Purchase, error)
	Cancel(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.Purchase, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Purchase, error)
}

// LineInput is one requested purchase line.
type LineInput struct {
	ItemID   uuid.UUID       `json:"item_id" validate:"required"`
	Quantity int             `json:"quantity" validate:"required,gt=0"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Discount decimal.Decimal `json:"discount"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
}

// CreateInput carries a new draft purchase order.
type CreateInput struct {
	SupplierID   uuid.UUID   `json:"supplier_id" validate:"required"`
	PurchaseDate time.Time   `json:"purchase_date"`
	InvoiceRef   *string     `json:"invoice_ref"`
	Notes        *string     `json:"notes"`
	Lines        []LineInput `json:"lines" validate:"required,min=1"`
	ActorID      uuid.UUID   `json:"-"`
}

// UpdateInput edits a draft purchase. Nil header fields keep their
// current value; a non-nil Lines slice replaces the full line set.
type UpdateInput struct {
	PurchaseDate *time.Time  `json:"purchase_date"`
	InvoiceRef   *string     `json:"invoice_ref"`
	Notes        *string     `json:"notes"`
	Lines        []LineInput `json:"lines"`
	ActorID      uuid.UUID   `json:"-"`
}

// ReceiveLineInput supplies the inventory identity for one purchase line.
type ReceiveLineInput struct {
	LineID        uuid.UUID           `json:"line_id" validate:"required"`
	SerialNumbers []string            `json:"serial_numbers"`
	BatchCode     *string             `json:"batch_code"`
	Location      *string             `json:"location"`
	Condition     enums.UnitCondition `json:"condition"`
}

// ReceiveInput marks a purchase received and materializes its stock.
type ReceiveInput struct {
	Lines   []ReceiveLineInput `json:"lines"`
	ActorID uuid.UUID          `json:"-"`
}

type service struct {
	repo      Repository
	tx        txRunner
	suppliers supplierDirectory
	items     itemDirectory
	units     unitMaterializer
	audit     audit.Recorder
}

// NewService builds a purchases service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	suppliers supplierDirectory,
	items itemDirectory,
	units unitMaterializer,
	recorder audit.Recorder,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if suppliers == nil {
		return nil, fmt.Errorf("supplier directory required")
	}
	if items == nil {
		return nil, fmt.Errorf("item directory required")
	}
	if units == nil {
		return nil, fmt.Errorf("unit materializer required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		suppliers: suppliers,
		items:     items,
		units:     units,
		audit:     recorder,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Purchase, error) {
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}

	supplier, err := s.suppliers.Get(ctx, input.SupplierID)
	if err != nil {
		return nil, err
	}
	if !supplier.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "supplier is inactive")
	}

	lines, err := s.buildLines(ctx, input.Lines)
	if err != nil {
		return nil, err
	}

	purchaseDate := input.PurchaseDate
	if purchaseDate.IsZero() {
		purchaseDate = time.Now().UTC()
	}

	var created *models.Purchase
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		number, err := s.allocateNumber(ctx, repo, purchaseDate)
		if err != nil {
			return err
		}

		totals := computeTotals(lines)
		purchase := &models.Purchase{
			ID:            uuid.New(),
			Number:        number,
			SupplierID:    supplier.ID,
			PurchaseDate:  purchaseDate,
			Status:        enums.PurchaseStatusDraft,
			Subtotal:      totals.Subtotal,
			DiscountTotal: totals.DiscountTotal,
			TaxTotal:      totals.TaxTotal,
			GrandTotal:    totals.GrandTotal,
			InvoiceRef:    input.InvoiceRef,
			Notes:         input.Notes,
			CreatedBy:     input.ActorID,
			Lines:         lines,
		}
		for i := range purchase.Lines {
			purchase.Lines[i].PurchaseID = purchase.ID
		}

		if err := repo.Create(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase")
		}

		created = purchase
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionCreate,
			EntityType:  audit.EntityPurchase,
			EntityID:    &purchase.ID,
			Summary:     fmt.Sprintf("purchase %s created for %s", purchase.Number, supplier.Name),
			Metadata:    map[string]any{"grand_total": purchase.GrandTotal, "lines": len(purchase.Lines)},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Purchase, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}

	var lines []models.PurchaseLine
	if input.Lines != nil {
		built, err := s.buildLines(ctx, input.Lines)
		if err != nil {
			return nil, err
		}
		lines = built
	}

	var updated *models.Purchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		purchase, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}
		if purchase.Status != enums.PurchaseStatusDraft {
			return pkgerrors.New(
				pkgerrors.CodeStateConflict,
				fmt.Sprintf("purchase %s is %s and can no longer be edited", purchase.Number, purchase.Status),
			)
		}

		if input.PurchaseDate != nil {
			purchase.PurchaseDate = *input.PurchaseDate
		}
		if input.InvoiceRef != nil {
			purchase.InvoiceRef = input.InvoiceRef
		}
		if input.Notes != nil {
			purchase.Notes = input.Notes
		}
		if lines != nil {
			for i := range lines {
				lines[i].PurchaseID = purchase.ID
			}
			if err := repo.ReplaceLines(ctx, purchase.ID, lines); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace purchase lines")
			}
			purchase.Lines = lines
		}

		totals := computeTotals(purchase.Lines)
		purchase.Subtotal = totals.Subtotal
		purchase.DiscountTotal = totals.DiscountTotal
		purchase.TaxTotal = totals.TaxTotal
		purchase.GrandTotal = totals.GrandTotal

		if err := repo.Update(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase")
		}

		updated = purchase
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionUpdate,
			EntityType:  audit.EntityPurchase,
			EntityID:    &purchase.ID,
			Summary:     fmt.Sprintf("purchase %s updated", purchase.Number),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Receive marks a draft purchase received and creates its inventory
// units in the same transaction, so stock never appears without the
// purchase flipping state and vice versa.
func (s *service) Receive(ctx context.Context, id uuid.UUID, input ReceiveInput) (*models.Purchase, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}

	byLine := make(map[uuid.UUID]ReceiveLineInput, len(input.Lines))
	for _, line := range input.Lines {
		if line.LineID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id required on every receive line")
		}
		if _, dup := byLine[line.LineID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %s supplied twice", line.LineID))
		}
		byLine[line.LineID] = line
	}

	var received *models.Purchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		purchase, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}
		if purchase.Status != enums.PurchaseStatusDraft {
			return pkgerrors.New(
				pkgerrors.CodeStateConflict,
				fmt.Sprintf("purchase %s is %s and cannot be received", purchase.Number, purchase.Status),
			)
		}

		receiveLines := make([]inventory.ReceiveLine, 0, len(purchase.Lines))
		for i := range purchase.Lines {
			line := &purchase.Lines[i]
			if line.Item == nil {
				return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("item missing on purchase line %s", line.ID))
			}
			payload, ok := byLine[line.ID]
			if !ok && line.Item.IsSerialized {
				return pkgerrors.New(
					pkgerrors.CodeValidation,
					fmt.Sprintf("serial numbers required for item %s", line.Item.SKU),
				)
			}
			delete(byLine, line.ID)
			receiveLines = append(receiveLines, inventory.ReceiveLine{
				Line:          line,
				Item:          line.Item,
				SerialNumbers: payload.SerialNumbers,
				BatchCode:     payload.BatchCode,
				Location:      payload.Location,
				Condition:     payload.Condition,
			})
		}
		if len(byLine) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "receive payload references unknown purchase lines")
		}

		unitsCreated, err := s.units.MaterializeTx(ctx, tx, purchase, receiveLines)
		if err != nil {
			return err
		}

		purchase.Status = enums.PurchaseStatusReceived
		if err := repo.Update(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark purchase received")
		}

		received = purchase
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionStatus,
			EntityType:  audit.EntityPurchase,
			EntityID:    &purchase.ID,
			Summary:     fmt.Sprintf("purchase %s received, %d inventory units created", purchase.Number, len(unitsCreated)),
			Metadata:    map[string]any{"units_created": len(unitsCreated)},
		})
	})
	if err != nil {
		return nil, err
	}
	return received, nil
}

// Cancel voids a draft purchase. Received purchases keep their stock
// and cannot be cancelled.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.Purchase, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}

	var cancelled *models.Purchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		purchase, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}
		if purchase.Status == enums.PurchaseStatusCancelled {
			cancelled = purchase
			return nil
		}
		if purchase.Status != enums.PurchaseStatusDraft {
			return pkgerrors.New(
				pkgerrors.CodeStateConflict,
				fmt.Sprintf("purchase %s is %s and cannot be cancelled", purchase.Number, purchase.Status),
			)
		}

		purchase.Status = enums.PurchaseStatusCancelled
		if err := repo.Update(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel purchase")
		}

		cancelled = purchase
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(actorID),
			Action:      enums.AuditActionStatus,
			EntityType:  audit.EntityPurchase,
			EntityID:    &purchase.ID,
			Summary:     fmt.Sprintf("purchase %s cancelled", purchase.Number),
		})
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}
	purchase, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return purchase, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Purchase, error) {
	rows, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}
	return rows, nil
}

// buildLines validates the requested lines against the catalog and
// prices each one.
func (s *service) buildLines(ctx context.Context, inputs []LineInput) ([]models.PurchaseLine, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase requires at least one line")
	}

	lines := make([]models.PurchaseLine, 0, len(inputs))
	for i, input := range inputs {
		if input.ItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: item id required", i))
		}
		if input.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: quantity must be positive", i))
		}
		if input.UnitCost.IsNegative() || input.Discount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: amounts cannot be negative", i))
		}
		if input.TaxRate.IsNegative() || input.TaxRate.GreaterThan(percentDivisor) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: tax rate must be between 0 and 100", i))
		}

		extended := input.UnitCost.Mul(decimal.NewFromInt(int64(input.Quantity)))
		if input.Discount.GreaterThan(extended) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: discount exceeds line amount", i))
		}

		item, err := s.items.Get(ctx, input.ItemID)
		if err != nil {
			return nil, err
		}

		lines = append(lines, models.PurchaseLine{
			ID:        uuid.New(),
			ItemID:    item.ID,
			Quantity:  input.Quantity,
			UnitCost:  input.UnitCost,
			Discount:  input.Discount,
			TaxRate:   input.TaxRate,
			LineTotal: lineTotal(input.UnitCost, input.Quantity, input.Discount, input.TaxRate),
			Item:      item,
		})
	}
	return lines, nil
}

func (s *service) allocateNumber(ctx context.Context, repo Repository, purchaseDate time.Time) (string, error) {
	seq, err := repo.NextNumberSequence(ctx)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate purchase number")
	}
	return fmt.Sprintf("PO-%s-%d", purchaseDate.UTC().Format("20060102"), seq), nil
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
}

func actorRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
