package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/rentworks/rentworks-backend/pkg/db/models"
)

// Pricing is the effective price set for a unit after falling back
// from unit-level overrides to the item defaults.
type Pricing struct {
	SalePrice        decimal.Decimal `json:"sale_price"`
	RentalRate       decimal.Decimal `json:"rental_rate"`
	SecurityDeposit  decimal.Decimal `json:"security_deposit"`
	RentalPeriodDays int             `json:"rental_period_days"`
}

// ResolvePricing applies the two-tier price lookup: a unit override
// wins when present and non-zero, the item default applies otherwise.
// The rental period falls back further to defaultPeriodDays from
// company settings when the item does not set one.
func ResolvePricing(item *models.Item, unit *models.InventoryUnit, defaultPeriodDays int) Pricing {
	pricing := Pricing{
		SalePrice:        item.SalePrice,
		RentalRate:       item.RentalRate,
		SecurityDeposit:  item.SecurityDeposit,
		RentalPeriodDays: defaultPeriodDays,
	}
	if item.RentalPeriodDays != nil && *item.RentalPeriodDays > 0 {
		pricing.RentalPeriodDays = *item.RentalPeriodDays
	}
	if unit == nil {
		return pricing
	}
	if unit.SalePrice != nil && !unit.SalePrice.IsZero() {
		pricing.SalePrice = *unit.SalePrice
	}
	if unit.RentalRate != nil && !unit.RentalRate.IsZero() {
		pricing.RentalRate = *unit.RentalRate
	}
	if unit.SecurityDeposit != nil && !unit.SecurityDeposit.IsZero() {
		pricing.SecurityDeposit = *unit.SecurityDeposit
	}
	return pricing
}
