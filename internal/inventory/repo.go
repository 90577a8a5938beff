package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
)

// Repository manages persistence for inventory units.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateUnits(ctx context.Context, units []models.InventoryUnit) error
	Update(ctx context.Context, unit *models.InventoryUnit) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryUnit, error)
	FindBySerialNumber(ctx context.Context, serial string) (*models.InventoryUnit, error)
	FindByBatchCode(ctx context.Context, code string) (*models.InventoryUnit, error)
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.InventoryUnit, error)
	ExistingSerials(ctx context.Context, serials []string) ([]string, error)
	BatchCodeExists(ctx context.Context, code string) (bool, error)
	NextBatchSequence(ctx context.Context) (int64, error)
}

// ListFilters narrows inventory unit listings.
type ListFilters struct {
	ItemID    *uuid.UUID
	Status    *enums.UnitStatus
	Condition *enums.UnitCondition
	Location  string
	Query     string
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateUnits(ctx context.Context, units []models.InventoryUnit) error {
	if len(units) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&units).Error
}

func (r *repository) Update(ctx context.Context, unit *models.InventoryUnit) error {
	return r.db.WithContext(ctx).Save(unit).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryUnit, error) {
	var unit models.InventoryUnit
	if err := r.db.WithContext(ctx).
		Preload("Item").
		First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) FindBySerialNumber(ctx context.Context, serial string) (*models.InventoryUnit, error) {
	var unit models.InventoryUnit
	if err := r.db.WithContext(ctx).
		Preload("Item").
		First(&unit, "serial_number = ?", serial).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) FindByBatchCode(ctx context.Context, code string) (*models.InventoryUnit, error) {
	var unit models.InventoryUnit
	if err := r.db.WithContext(ctx).
		Preload("Item").
		First(&unit, "batch_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.InventoryUnit, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryUnit{})

	if filters.ItemID != nil {
		query = query.Where("item_id = ?", *filters.ItemID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Condition != nil {
		query = query.Where("condition = ?", *filters.Condition)
	}
	if filters.Location != "" {
		query = query.Where("location = ?", filters.Location)
	}
	if filters.Query != "" {
		pattern := "%" + filters.Query + "%"
		query = query.Where("serial_number LIKE ? OR batch_code LIKE ?", pattern, pattern)
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

	var rows []models.InventoryUnit
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(page.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ExistingSerials returns the subset of serials already present.
func (r *repository) ExistingSerials(ctx context.Context, serials []string) ([]string, error) {
	if len(serials) == 0 {
		return nil, nil
	}
	var existing []string
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryUnit{}).
		Where("serial_number IN ?", serials).
		Pluck("serial_number", &existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

func (r *repository) BatchCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryUnit{}).
		Where("batch_code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// NextBatchSequence allocates a value from the batch code sequence. The
// sequence is the allocation authority so concurrent receipts never
// hand out the same code.
func (r *repository) NextBatchSequence(ctx context.Context) (int64, error) {
	var next int64
	if err := r.db.WithContext(ctx).
		Raw("SELECT nextval('batch_code_seq')").
		Scan(&next).Error; err != nil {
		return 0, err
	}
	return next, nil
}
