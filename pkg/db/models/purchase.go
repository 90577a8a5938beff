package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentworks/rentworks-backend/pkg/enums"
)

// Purchase represents a supplier purchase order. Receiving a purchase
// materializes its lines into inventory units in the same transaction.
type Purchase struct {
	ID            uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Number        string               `gorm:"column:number;not null;uniqueIndex"`
	SupplierID    uuid.UUID            `gorm:"column:supplier_id;type:uuid;not null;index"`
	PurchaseDate  time.Time            `gorm:"column:purchase_date;not null"`
	Status        enums.PurchaseStatus `gorm:"column:status;not null;default:'draft'"`
	Subtotal      decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	DiscountTotal decimal.Decimal      `gorm:"column:discount_total;type:numeric(12,2);not null;default:0"`
	TaxTotal      decimal.Decimal      `gorm:"column:tax_total;type:numeric(12,2);not null;default:0"`
	GrandTotal    decimal.Decimal      `gorm:"column:grand_total;type:numeric(12,2);not null;default:0"`
	InvoiceRef    *string              `gorm:"column:invoice_ref"`
	Notes         *string              `gorm:"column:notes"`
	CreatedBy     uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	Supplier      *Supplier            `gorm:"foreignKey:SupplierID"`
	Lines         []PurchaseLine       `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// PurchaseLine is one item position on a purchase order.
type PurchaseLine struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseID uuid.UUID       `gorm:"column:purchase_id;type:uuid;not null;index"`
	ItemID     uuid.UUID       `gorm:"column:item_id;type:uuid;not null"`
	Quantity   int             `gorm:"column:quantity;not null"`
	UnitCost   decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,2);not null"`
	Discount   decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	TaxRate    decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2);not null;default:0"`
	LineTotal  decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	Item       *Item           `gorm:"foreignKey:ItemID"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
