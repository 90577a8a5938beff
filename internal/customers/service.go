package customers

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

// Service defines customer operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Customer, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Customer, error)
	Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, actorID uuid.UUID) (*models.Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Customer, error)
}

// CreateInput captures the fields accepted when registering a customer.
type CreateInput struct {
	Name        string
	Email       *string
	Phone       *string
	AddressLine *string
	City        *string
	Country     *string
	IDNumber    *string
	Notes       *string
	ActorID     uuid.UUID
}

// UpdateInput carries the mutable customer fields. Nil pointers leave
// the current value untouched.
type UpdateInput struct {
	Name        *string
	Email       *string
	Phone       *string
	AddressLine *string
	City        *string
	Country     *string
	IDNumber    *string
	Notes       *string
	ActorID     uuid.UUID
}

type service struct {
	repo  Repository
	tx    txRunner
	audit audit.Recorder
}

// NewService builds a customer service with the required dependencies.
func NewService(repo Repository, tx txRunner, recorder audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, tx: tx, audit: recorder}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}

	customer := &models.Customer{
		ID:          uuid.New(),
		Name:        name,
		Email:       normalizeEmail(input.Email),
		Phone:       input.Phone,
		AddressLine: input.AddressLine,
		City:        input.City,
		Country:     input.Country,
		IDNumber:    input.IDNumber,
		Notes:       input.Notes,
		IsActive:    true,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, customer); err != nil {
			if db.IsUniqueViolation(err, "idx_customers_email") {
				return pkgerrors.New(pkgerrors.CodeConflict, "customer email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionCreate,
			EntityType:  audit.EntityCustomer,
			EntityID:    &customer.ID,
			Summary:     fmt.Sprintf("customer %q created", customer.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Customer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}

	var updated *models.Customer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		customer, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "customer name cannot be empty")
			}
			customer.Name = name
		}
		if input.Email != nil {
			customer.Email = normalizeEmail(input.Email)
		}
		if input.Phone != nil {
			customer.Phone = input.Phone
		}
		if input.AddressLine != nil {
			customer.AddressLine = input.AddressLine
		}
		if input.City != nil {
			customer.City = input.City
		}
		if input.Country != nil {
			customer.Country = input.Country
		}
		if input.IDNumber != nil {
			customer.IDNumber = input.IDNumber
		}
		if input.Notes != nil {
			customer.Notes = input.Notes
		}

		if err := repo.Update(ctx, customer); err != nil {
			if db.IsUniqueViolation(err, "idx_customers_email") {
				return pkgerrors.New(pkgerrors.CodeConflict, "customer email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer")
		}

		updated = customer
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionUpdate,
			EntityType:  audit.EntityCustomer,
			EntityID:    &customer.ID,
			Summary:     fmt.Sprintf("customer %q updated", customer.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a customer with no transaction history. Customers that
// appear on rentals or sales must be deactivated instead.
func (s *service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		customer, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}

		count, err := repo.CountTransactions(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count customer transactions")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "customer has transaction history; deactivate instead")
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete customer")
		}
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(actorID),
			Action:      enums.AuditActionDelete,
			EntityType:  audit.EntityCustomer,
			EntityID:    &customer.ID,
			Summary:     fmt.Sprintf("customer %q deleted", customer.Name),
		})
	})
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool, actorID uuid.UUID) (*models.Customer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}

	var updated *models.Customer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		customer, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}
		if customer.IsActive == active {
			updated = customer
			return nil
		}

		customer.IsActive = active
		if err := repo.Update(ctx, customer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer")
		}

		state := "deactivated"
		if active {
			state = "reactivated"
		}
		updated = customer
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(actorID),
			Action:      enums.AuditActionUpdate,
			EntityType:  audit.EntityCustomer,
			EntityID:    &customer.ID,
			Summary:     fmt.Sprintf("customer %q %s", customer.Name, state),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return customer, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Customer, error) {
	rows, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	return rows, nil
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
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
