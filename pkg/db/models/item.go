package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Item represents the catalog definition of a product. Physical stock
// is tracked per InventoryUnit; the pricing fields here are the
// item-level defaults a unit falls back to when it carries none of its
// own.
type Item struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SKU                 string          `gorm:"column:sku;not null;uniqueIndex"`
	Name                string          `gorm:"column:name;not null"`
	Description         *string         `gorm:"column:description"`
	Category            *string         `gorm:"column:category"`
	Tags                pq.StringArray  `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	SalePrice           decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2);not null;default:0"`
	RentalRate          decimal.Decimal `gorm:"column:rental_rate;type:numeric(12,2);not null;default:0"`
	SecurityDeposit     decimal.Decimal `gorm:"column:security_deposit;type:numeric(12,2);not null;default:0"`
	RentalPeriodDays    *int            `gorm:"column:rental_period_days"`
	WarrantyPeriodDays  int             `gorm:"column:warranty_period_days;not null;default:0"`
	ReorderLevel        int             `gorm:"column:reorder_level;not null;default:0"`
	IsSerialized        bool            `gorm:"column:is_serialized;not null;default:false"`
	IsActive            bool            `gorm:"column:is_active;not null;default:true"`
	Units               []InventoryUnit `gorm:"foreignKey:ItemID;constraint:OnDelete:RESTRICT"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
