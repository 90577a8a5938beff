package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentworks/rentworks-backend/pkg/enums"
)

// InventoryUnit represents physical stock received against a purchase
// line. A serialized unit carries a serial number and always has
// quantity 1; a batch unit carries a batch code and an arbitrary
// quantity. Exactly one of the two identifiers is set, and the
// database enforces both rules with a partial unique index and a
// check constraint.
type InventoryUnit struct {
	ID                 uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID             uuid.UUID           `gorm:"column:item_id;type:uuid;not null;index"`
	PurchaseID         *uuid.UUID          `gorm:"column:purchase_id;type:uuid;index"`
	PurchaseLineID     *uuid.UUID          `gorm:"column:purchase_line_id;type:uuid"`
	SerialNumber       *string             `gorm:"column:serial_number;uniqueIndex"`
	BatchCode          *string             `gorm:"column:batch_code;uniqueIndex"`
	Quantity           int                 `gorm:"column:quantity;not null;default:1"`
	UnitCost           decimal.Decimal     `gorm:"column:unit_cost;type:numeric(12,2);not null;default:0"`
	SalePrice          *decimal.Decimal    `gorm:"column:sale_price;type:numeric(12,2)"`
	RentalRate         *decimal.Decimal    `gorm:"column:rental_rate;type:numeric(12,2)"`
	SecurityDeposit    *decimal.Decimal    `gorm:"column:security_deposit;type:numeric(12,2)"`
	WarrantyExpiresAt  *time.Time          `gorm:"column:warranty_expires_at"`
	Location           *string             `gorm:"column:location"`
	Condition          enums.UnitCondition `gorm:"column:condition;not null;default:'new'"`
	Status             enums.UnitStatus    `gorm:"column:status;not null;default:'available';index"`
	Remarks            *string             `gorm:"column:remarks"`
	Item               *Item               `gorm:"foreignKey:ItemID"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsSerialized reports whether the unit is identified by serial number.
func (u *InventoryUnit) IsSerialized() bool {
	return u.SerialNumber != nil && *u.SerialNumber != ""
}
