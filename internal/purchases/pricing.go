package purchases

import (
	"github.com/shopspring/decimal"

	"github.com/rentworks/rentworks-backend/pkg/db/models"
)

var percentDivisor = decimal.NewFromInt(100)

// lineTotal prices a single purchase line. The discount applies to the
// extended cost before tax, and tax is charged on the discounted amount.
func lineTotal(unitCost decimal.Decimal, qty int, discount, taxRate decimal.Decimal) decimal.Decimal {
	extended := unitCost.Mul(decimal.NewFromInt(int64(qty)))
	discounted := extended.Sub(discount)
	tax := discounted.Mul(taxRate).Div(percentDivisor)
	return discounted.Add(tax).Round(2)
}

// documentTotals aggregates line amounts into the purchase header fields.
type documentTotals struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	GrandTotal    decimal.Decimal
}

func computeTotals(lines []models.PurchaseLine) documentTotals {
	totals := documentTotals{
		Subtotal:      decimal.Zero,
		DiscountTotal: decimal.Zero,
		TaxTotal:      decimal.Zero,
		GrandTotal:    decimal.Zero,
	}
	for _, line := range lines {
		extended := line.UnitCost.Mul(decimal.NewFromInt(int64(line.Quantity)))
		discounted := extended.Sub(line.Discount)
		tax := discounted.Mul(line.TaxRate).Div(percentDivisor).Round(2)

		totals.Subtotal = totals.Subtotal.Add(extended)
		totals.DiscountTotal = totals.DiscountTotal.Add(line.Discount)
		totals.TaxTotal = totals.TaxTotal.Add(tax)
		totals.GrandTotal = totals.GrandTotal.Add(line.LineTotal)
	}
	totals.Subtotal = totals.Subtotal.Round(2)
	totals.DiscountTotal = totals.DiscountTotal.Round(2)
	totals.TaxTotal = totals.TaxTotal.Round(2)
	totals.GrandTotal = totals.GrandTotal.Round(2)
	return totals
}
