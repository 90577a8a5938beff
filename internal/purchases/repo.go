package purchases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
)

// Repository manages persistence for purchase orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, purchase *models.Purchase) error
	Update(ctx context.Context, purchase *models.Purchase) error
	ReplaceLines(ctx context.Context, purchaseID uuid.UUID, lines []models.PurchaseLine) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Purchase, error)
	NextNumberSequence(ctx context.Context) (int64, error)
}

// ListFilters narrows purchase listings.
type ListFilters struct {
	SupplierID *uuid.UUID
	Status     *enums.PurchaseStatus
	Query      string
	From       *time.Time
	To         *time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a purchase repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *repository) Update(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Omit("Lines", "Supplier").Save(purchase).Error
}

// ReplaceLines swaps the full line set of a draft purchase.
func (r *repository) ReplaceLines(ctx context.Context, purchaseID uuid.UUID, lines []models.PurchaseLine) error {
	db := r.db.WithContext(ctx)
	if err := db.Delete(&models.PurchaseLine{}, "purchase_id = ?", purchaseID).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return db.Create(&lines).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Lines").
		Preload("Lines.Item").
		First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Purchase, error) {
	query := r.db.WithContext(ctx).Model(&models.Purchase{}).Preload("Supplier")

	if filters.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filters.SupplierID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Query != "" {
		query = query.Where("number LIKE ?", "%"+filters.Query+"%")
	}
	if filters.From != nil {
		query = query.Where("purchase_date >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("purchase_date <= ?", *filters.To)
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

	var rows []models.Purchase
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(page.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// NextNumberSequence allocates the next purchase order number.
func (r *repository) NextNumberSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.db.WithContext(ctx).Raw("SELECT nextval('purchase_number_seq')").Scan(&seq).Error; err != nil {
		return 0, err
	}
	return seq, nil
}
