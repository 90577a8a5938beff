package company

import (
	"context"

	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/pkg/db/models"
)

// Repository manages the single company profile row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context) (*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a company repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Get loads the profile row. Migrations seed exactly one.
func (r *repository) Get(ctx context.Context) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).Order("created_at ASC").First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *repository) Update(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Save(company).Error
}
