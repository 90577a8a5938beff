package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Company holds the single-tenant business profile and operational
// defaults applied when a transaction does not specify its own.
type Company struct {
	ID                      uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	LegalName               string          `gorm:"column:legal_name;not null"`
	TaxID                   *string         `gorm:"column:tax_id"`
	Email                   *string         `gorm:"column:email"`
	Phone                   *string         `gorm:"column:phone"`
	AddressLine             *string         `gorm:"column:address_line"`
	City                    *string         `gorm:"column:city"`
	Country                 *string         `gorm:"column:country"`
	CurrencyCode            string          `gorm:"column:currency_code;not null;default:'USD'"`
	DefaultTaxRate          decimal.Decimal `gorm:"column:default_tax_rate;type:numeric(5,2);not null;default:0"`
	DefaultRentalPeriodDays int             `gorm:"column:default_rental_period_days;not null;default:7"`
	LateFeePerDay           decimal.Decimal `gorm:"column:late_fee_per_day;type:numeric(12,2);not null;default:0"`
	CreatedAt               time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
