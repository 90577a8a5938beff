package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/internal/audit"
	"github.com/rentworks/rentworks-backend/pkg/db"
	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines catalog item operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Item, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Item, error)
	Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, actorID uuid.UUID) (*models.Item, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Item, error)
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Item, error)
}

// CreateInput captures the fields accepted when defining an item.
type CreateInput struct {
	SKU                string
	Name               string
	Description        *string
	Category           *string
	Tags               []string
	SalePrice          decimal.Decimal
	RentalRate         decimal.Decimal
	SecurityDeposit    decimal.Decimal
	RentalPeriodDays   *int
	WarrantyPeriodDays int
	ReorderLevel       int
	IsSerialized       bool
	ActorID            uuid.UUID
}

// UpdateInput carries the mutable item fields. Nil pointers leave the
// current value untouched. SKU and IsSerialized are immutable once
// units exist against the item, so they are not updatable here.
type UpdateInput struct {
	Name               *string
	Description        *string
	Category           *string
	Tags               []string
	SalePrice          *decimal.Decimal
	RentalRate         *decimal.Decimal
	SecurityDeposit    *decimal.Decimal
	RentalPeriodDays   *int
	WarrantyPeriodDays *int
	ReorderLevel       *int
	ActorID            uuid.UUID
}

type service struct {
	repo  Repository
	tx    txRunner
	audit audit.Recorder
}

// NewService builds an item service with the required dependencies.
func NewService(repo Repository, tx txRunner, recorder audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("items repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, tx: tx, audit: recorder}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Item, error) {
	sku := strings.ToUpper(strings.TrimSpace(input.SKU))
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item sku required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if err := validatePricing(input.SalePrice, input.RentalRate, input.SecurityDeposit); err != nil {
		return nil, err
	}
	if input.RentalPeriodDays != nil && *input.RentalPeriodDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rental period must be positive")
	}
	if input.WarrantyPeriodDays < 0 || input.ReorderLevel < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warranty period and reorder level cannot be negative")
	}

	item := &models.Item{
		ID:                 uuid.New(),
		SKU:                sku,
		Name:               name,
		Description:        input.Description,
		Category:           input.Category,
		Tags:               normalizeTags(input.Tags),
		SalePrice:          input.SalePrice,
		RentalRate:         input.RentalRate,
		SecurityDeposit:    input.SecurityDeposit,
		RentalPeriodDays:   input.RentalPeriodDays,
		WarrantyPeriodDays: input.WarrantyPeriodDays,
		ReorderLevel:       input.ReorderLevel,
		IsSerialized:       input.IsSerialized,
		IsActive:           true,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "idx_items_sku") {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("sku %q already exists", sku))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionCreate,
			EntityType:  audit.EntityItem,
			EntityID:    &item.ID,
			Summary:     fmt.Sprintf("item %s (%s) created", item.Name, item.SKU),
		})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Item, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	var updated *models.Item
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "item name cannot be empty")
			}
			item.Name = name
		}
		if input.Description != nil {
			item.Description = input.Description
		}
		if input.Category != nil {
			item.Category = input.Category
		}
		if input.Tags != nil {
			item.Tags = normalizeTags(input.Tags)
		}
		if input.SalePrice != nil {
			item.SalePrice = *input.SalePrice
		}
		if input.RentalRate != nil {
			item.RentalRate = *input.RentalRate
		}
		if input.SecurityDeposit != nil {
			item.SecurityDeposit = *input.SecurityDeposit
		}
		if err := validatePricing(item.SalePrice, item.RentalRate, item.SecurityDeposit); err != nil {
			return err
		}
		if input.RentalPeriodDays != nil {
			if *input.RentalPeriodDays <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "rental period must be positive")
			}
			item.RentalPeriodDays = input.RentalPeriodDays
		}
		if input.WarrantyPeriodDays != nil {
			if *input.WarrantyPeriodDays < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "warranty period cannot be negative")
			}
			item.WarrantyPeriodDays = *input.WarrantyPeriodDays
		}
		if input.ReorderLevel != nil {
			if *input.ReorderLevel < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "reorder level cannot be negative")
			}
			item.ReorderLevel = *input.ReorderLevel
		}

		if err := repo.Update(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item")
		}

		updated = item
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionUpdate,
			EntityType:  audit.EntityItem,
			EntityID:    &item.ID,
			Summary:     fmt.Sprintf("item %s (%s) updated", item.Name, item.SKU),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an item that has no inventory units. Items with stock
// history must be deactivated instead.
func (s *service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}

		count, err := repo.CountUnits(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count item units")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item has inventory units; deactivate instead")
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(actorID),
			Action:      enums.AuditActionDelete,
			EntityType:  audit.EntityItem,
			EntityID:    &item.ID,
			Summary:     fmt.Sprintf("item %s (%s) deleted", item.Name, item.SKU),
		})
	})
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool, actorID uuid.UUID) (*models.Item, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	var updated *models.Item
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}
		if item.IsActive == active {
			updated = item
			return nil
		}

		item.IsActive = active
		if err := repo.Update(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item")
		}

		state := "deactivated"
		if active {
			state = "reactivated"
		}
		updated = item
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(actorID),
			Action:      enums.AuditActionUpdate,
			EntityType:  audit.EntityItem,
			EntityID:    &item.ID,
			Summary:     fmt.Sprintf("item %s (%s) %s", item.Name, item.SKU, state),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return item, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Item, error) {
	rows, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	return rows, nil
}

func validatePricing(sale, rental, deposit decimal.Decimal) error {
	if sale.IsNegative() || rental.IsNegative() || deposit.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
	}
	return nil
}

func normalizeTags(tags []string) pq.StringArray {
	cleaned := make(pq.StringArray, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		cleaned = append(cleaned, t)
	}
	return cleaned
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
}

func actorRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
