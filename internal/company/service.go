package company

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/internal/audit"
	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
)

var maxTaxRate = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the company profile and its operational defaults.
type Service interface {
	Get(ctx context.Context) (*models.Company, error)
	Update(ctx context.Context, input UpdateInput) (*models.Company, error)
}

// UpdateInput edits the company profile. Nil fields keep their current
// value.
type UpdateInput struct {
	LegalName               *string          `json:"legal_name"`
	TaxID                   *string          `json:"tax_id"`
	Email                   *string          `json:"email"`
	Phone                   *string          `json:"phone"`
	AddressLine             *string          `json:"address_line"`
	City                    *string          `json:"city"`
	Country                 *string          `json:"country"`
	CurrencyCode            *string          `json:"currency_code"`
	DefaultTaxRate          *decimal.Decimal `json:"default_tax_rate"`
	DefaultRentalPeriodDays *int             `json:"default_rental_period_days"`
	LateFeePerDay           *decimal.Decimal `json:"late_fee_per_day"`
	ActorID                 uuid.UUID        `json:"-"`
}

type service struct {
	repo  Repository
	tx    txRunner
	audit audit.Recorder
}

// NewService builds a company service with the required dependencies.
func NewService(repo Repository, tx txRunner, recorder audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("company repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, tx: tx, audit: recorder}, nil
}

func (s *service) Get(ctx context.Context) (*models.Company, error) {
	company, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "company profile missing, run migrations")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load company profile")
	}
	return company, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Company, error) {
	if input.LegalName != nil && strings.TrimSpace(*input.LegalName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "legal name cannot be blank")
	}
	if input.CurrencyCode != nil && len(strings.TrimSpace(*input.CurrencyCode)) != 3 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency code must be a 3-letter ISO code")
	}
	if input.DefaultTaxRate != nil &&
		(input.DefaultTaxRate.IsNegative() || input.DefaultTaxRate.GreaterThan(maxTaxRate)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "default tax rate must be between 0 and 100")
	}
	if input.DefaultRentalPeriodDays != nil && *input.DefaultRentalPeriodDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "default rental period must be positive")
	}
	if input.LateFeePerDay != nil && input.LateFeePerDay.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "late fee cannot be negative")
	}

	var updated *models.Company
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		company, err := repo.Get(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load company profile")
		}

		if input.LegalName != nil {
			company.LegalName = strings.TrimSpace(*input.LegalName)
		}
		if input.TaxID != nil {
			company.TaxID = input.TaxID
		}
		if input.Email != nil {
			company.Email = input.Email
		}
		if input.Phone != nil {
			company.Phone = input.Phone
		}
		if input.AddressLine != nil {
			company.AddressLine = input.AddressLine
		}
		if input.City != nil {
			company.City = input.City
		}
		if input.Country != nil {
			company.Country = input.Country
		}
		if input.CurrencyCode != nil {
			company.CurrencyCode = strings.ToUpper(strings.TrimSpace(*input.CurrencyCode))
		}
		if input.DefaultTaxRate != nil {
			company.DefaultTaxRate = *input.DefaultTaxRate
		}
		if input.DefaultRentalPeriodDays != nil {
			company.DefaultRentalPeriodDays = *input.DefaultRentalPeriodDays
		}
		if input.LateFeePerDay != nil {
			company.LateFeePerDay = *input.LateFeePerDay
		}

		if err := repo.Update(ctx, company); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update company profile")
		}

		updated = company
		return s.audit.Record(ctx, tx, audit.Entry{
			ActorUserID: actorRef(input.ActorID),
			Action:      enums.AuditActionUpdate,
			EntityType:  audit.EntityCompany,
			EntityID:    &company.ID,
			Summary:     fmt.Sprintf("company profile %q updated", company.LegalName),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func actorRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
