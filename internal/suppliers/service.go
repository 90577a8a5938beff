package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
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

// Service defines supplier operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Supplier, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Supplier, error)
	Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, actorID uuid.UUID) (*models.Supplier, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Supplier, error)
}

// CreateInput captures the fields accepted when registering a supplier.
type CreateInput struct {
	Name             string
	ContactName      *string
	Email            *string
	Phone            *string
	AddressLine      *string
	City             *string
	Country          *string
	TaxID            *string
	PaymentTermsDays int
	Notes            *string
	ActorID          uuid.UUID
}

// UpdateInput carries the mutable supplier fields. Nil pointers leave
// the current value untouched.
type UpdateInput struct {
	Name             *string
	ContactName      *string
	Email            *string
	Phone            *string
	AddressLine      *string
	City             *string
	Country          *string
	TaxID            *string
	PaymentTermsDays *int
	Notes            *string
	ActorID          uuid.UUID
}

type service struct {
	repo  Repository
	tx    txRunner
	audit audit.Recorder
}

// NewService builds a supplier service with the required dependencies.
func NewService(repo Repository, tx txRunner, recorder audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("suppliers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, tx: tx, audit: recorder}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name required")
	}
	if input.PaymentTermsDays < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment terms cannot be negative")
	}

	supplier := &models.Supplier{
		ID:               uuid.New(),
		Name:             name,
		ContactName:      input.ContactName,
		Email:            normalizeEmail(input.Email),
		Phone:            input.Phone,
		AddressLine:      input.AddressLine,
		City:             input.City,
		Country:          input.Country,
		TaxID:            input.TaxID,
		PaymentTermsDays: input.PaymentTermsDays,
		Notes:            input.Notes,
		IsActive:         true,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, supplier); err != nil {
			if db.IsUniqueViolation(err, "idx_suppliers_email") {
				return pkgerrors.New(pkgerrors.CodeConflict, "supplier email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supplier")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionCreate,
			EntityType:  audit.EntitySupplier,
			EntityID:    &supplier.ID,
			Summary:     fmt.Sprintf("supplier %q created", supplier.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Supplier, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}

	var updated *models.Supplier
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		supplier, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "supplier name cannot be empty")
			}
			supplier.Name = name
		}
		if input.ContactName != nil {
			supplier.ContactName = input.ContactName
		}
		if input.Email != nil {
			supplier.Email = normalizeEmail(input.Email)
		}
		if input.Phone != nil {
			supplier.Phone = input.Phone
		}
		if input.AddressLine != nil {
			supplier.AddressLine = input.AddressLine
		}
		if input.City != nil {
			supplier.City = input.City
		}
		if input.Country != nil {
			supplier.Country = input.Country
		}
		if input.TaxID != nil {
			supplier.TaxID = input.TaxID
		}
		if input.PaymentTermsDays != nil {
			if *input.PaymentTermsDays < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "payment terms cannot be negative")
			}
			supplier.PaymentTermsDays = *input.PaymentTermsDays
		}
		if input.Notes != nil {
			supplier.Notes = input.Notes
		}

		if err := repo.Update(ctx, supplier); err != nil {
			if db.IsUniqueViolation(err, "idx_suppliers_email") {
				return pkgerrors.New(pkgerrors.CodeConflict, "supplier email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier")
		}

		updated = supplier
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionUpdate,
			EntityType:  audit.EntitySupplier,
			EntityID:    &supplier.ID,
			Summary:     fmt.Sprintf("supplier %q updated", supplier.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a supplier with no purchase history. Suppliers that
// appear on purchases must be deactivated instead.
func (s *service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		supplier, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}

		count, err := repo.CountPurchases(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count supplier purchases")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "supplier has purchase history; deactivate instead")
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete supplier")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(actorID),
			Action:      enums.AuditActionDelete,
			EntityType:  audit.EntitySupplier,
			EntityID:    &supplier.ID,
			Summary:     fmt.Sprintf("supplier %q deleted", supplier.Name),
		})
	})
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool, actorID uuid.UUID) (*models.Supplier, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}

	var updated *models.Supplier
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		supplier, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}
		if supplier.IsActive == active {
			updated = supplier
			return nil
		}

		supplier.IsActive = active
		if err := repo.Update(ctx, supplier); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier")
		}

		state := "deactivated"
		if active {
			state = "reactivated"
		}
		updated = supplier
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(actorID),
			Action:      enums.AuditActionUpdate,
			EntityType:  audit.EntitySupplier,
			EntityID:    &supplier.ID,
			Summary:     fmt.Sprintf("supplier %q %s", supplier.Name, state),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return supplier, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Supplier, error) {
	rows, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	return rows, nil
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	cleaned := strings.ToLower(strings.TrimSpace(*email))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func actorRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
