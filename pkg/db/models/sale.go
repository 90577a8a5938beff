package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentworks/rentworks-backend/pkg/enums"
)

// Sale represents an outright sale of inventory units to a customer.
type Sale struct {
	ID            uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Number        string           `gorm:"column:number;not null;uniqueIndex"`
	CustomerID    uuid.UUID        `gorm:"column:customer_id;type:uuid;not null;index"`
	SaleDate      time.Time        `gorm:"column:sale_date;not null"`
	Status        enums.SaleStatus `gorm:"column:status;not null;default:'completed'"`
	Subtotal      decimal.Decimal  `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	DiscountTotal decimal.Decimal  `gorm:"column:discount_total;type:numeric(12,2);not null;default:0"`
	TaxTotal      decimal.Decimal  `gorm:"column:tax_total;type:numeric(12,2);not null;default:0"`
	GrandTotal    decimal.Decimal  `gorm:"column:grand_total;type:numeric(12,2);not null;default:0"`
	Notes         *string          `gorm:"column:notes"`
	CreatedBy     uuid.UUID        `gorm:"column:created_by;type:uuid;not null"`
	Customer      *Customer        `gorm:"foreignKey:CustomerID"`
	Lines         []SaleLine       `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// SaleLine is one unit position on a sale. For batch units Quantity
// may be less than the unit's on-hand quantity, in which case the
// remainder stays available.
type SaleLine struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID          uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	InventoryUnitID uuid.UUID       `gorm:"column:inventory_unit_id;type:uuid;not null;index"`
	Quantity        int             `gorm:"column:quantity;not null;default:1"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Discount        decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	TaxRate         decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2);not null;default:0"`
	LineTotal       decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	Unit            *InventoryUnit  `gorm:"foreignKey:InventoryUnitID"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
