package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentworks/rentworks-backend/pkg/enums"
)

// Rental represents an agreement lending inventory units to a customer
// for a period. Money totals are denormalized from the lines so list
// views never need to join.
type Rental struct {
	ID           uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Number       string             `gorm:"column:number;not null;uniqueIndex"`
	CustomerID   uuid.UUID          `gorm:"column:customer_id;type:uuid;not null;index"`
	StartDate    time.Time          `gorm:"column:start_date;not null"`
	DueDate      time.Time          `gorm:"column:due_date;not null;index"`
	ClosedAt     *time.Time         `gorm:"column:closed_at"`
	Status       enums.RentalStatus `gorm:"column:status;not null;default:'active';index"`
	ChargeTotal  decimal.Decimal    `gorm:"column:charge_total;type:numeric(12,2);not null;default:0"`
	DepositTotal decimal.Decimal    `gorm:"column:deposit_total;type:numeric(12,2);not null;default:0"`
	LateFeeTotal decimal.Decimal    `gorm:"column:late_fee_total;type:numeric(12,2);not null;default:0"`
	Notes        *string            `gorm:"column:notes"`
	CreatedBy    uuid.UUID          `gorm:"column:created_by;type:uuid;not null"`
	Customer     *Customer          `gorm:"foreignKey:CustomerID"`
	Lines        []RentalLine       `gorm:"foreignKey:RentalID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// RentalLine binds one inventory unit to a rental.
type RentalLine struct {
	ID              uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RentalID        uuid.UUID            `gorm:"column:rental_id;type:uuid;not null;index"`
	InventoryUnitID uuid.UUID            `gorm:"column:inventory_unit_id;type:uuid;not null;index"`
	RatePerPeriod   decimal.Decimal      `gorm:"column:rate_per_period;type:numeric(12,2);not null"`
	Periods         int                  `gorm:"column:periods;not null;default:1"`
	Deposit         decimal.Decimal      `gorm:"column:deposit;type:numeric(12,2);not null;default:0"`
	LineTotal       decimal.Decimal      `gorm:"column:line_total;type:numeric(12,2);not null"`
	ReturnedAt      *time.Time           `gorm:"column:returned_at"`
	ReturnCondition *enums.UnitCondition `gorm:"column:return_condition"`
	Unit            *InventoryUnit       `gorm:"foreignKey:InventoryUnitID"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
