package rentals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
)

// Repository manages persistence for rentals and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rental *models.Rental) error
	Update(ctx context.Context, rental *models.Rental) error
	UpdateLine(ctx context.Context, line *models.RentalLine) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Rental, error)
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Rental, error)
	ListDueBefore(ctx context.Context, cutoff time.Time) ([]models.Rental, error)
	NextNumberSequence(ctx context.Context) (int64, error)
}

// ListFilters narrows rental listings.
type ListFilters struct {
	CustomerID *uuid.UUID
	Status     *enums.RentalStatus
	Query      string
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a rental repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, rental *models.Rental) error {
	return r.db.WithContext(ctx).Create(rental).Error
}

func (r *repository) Update(ctx context.Context, rental *models.Rental) error {
	return r.db.WithContext(ctx).Omit("Lines", "Customer").Save(rental).Error
}

func (r *repository) UpdateLine(ctx context.Context, line *models.RentalLine) error {
	return r.db.WithContext(ctx).Omit("Unit").Save(line).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	if err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Lines").
		Preload("Lines.Unit").
		Preload("Lines.Unit.Item").
		First(&rental, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rental, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Rental, error) {
	query := r.db.WithContext(ctx).Model(&models.Rental{}).Preload("Customer")

	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Query != "" {
		query = query.Where("number LIKE ?", "%"+filters.Query+"%")
	}

	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Rental
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(page.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListDueBefore returns active rentals whose due date has passed.
func (r *repository) ListDueBefore(ctx context.Context, cutoff time.Time) ([]models.Rental, error) {
	var rows []models.Rental
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", enums.RentalStatusActive, cutoff).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// NextNumberSequence allocates the next rental number.
func (r *repository) NextNumberSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.db.WithContext(ctx).Raw("SELECT nextval('rental_number_seq')").Scan(&seq).Error; err != nil {
		return 0, err
	}
	return seq, nil
}
