package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
)

// StatusCount aggregates inventory units by lifecycle status.
type StatusCount struct {
	Status   enums.UnitStatus `json:"status"`
	Units    int64            `json:"units"`
	Quantity int64            `json:"quantity"`
}

// ItemStock summarizes on-hand stock for one catalog item.
type ItemStock struct {
	ItemID       uuid.UUID `json:"item_id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	ReorderLevel int       `json:"reorder_level"`
	OnHand       int64     `json:"on_hand"`
}

// OverdueRental is one rental past its due date.
type OverdueRental struct {
	RentalID     uuid.UUID       `json:"rental_id"`
	Number       string          `json:"number"`
	CustomerName string          `json:"customer_name"`
	DueDate      time.Time       `json:"due_date"`
	DaysOverdue  int             `json:"days_overdue"`
	ChargeTotal  decimal.Decimal `json:"charge_total"`
}

// RevenueSummary totals takings over a period.
type RevenueSummary struct {
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	SalesRevenue  decimal.Decimal `json:"sales_revenue"`
	SalesCount    int64           `json:"sales_count"`
	RentalRevenue decimal.Decimal `json:"rental_revenue"`
	RentalCount   int64           `json:"rental_count"`
	LateFees      decimal.Decimal `json:"late_fees"`
}

// Repository runs the read-only aggregate queries behind reports.
type Repository interface {
	StockByStatus(ctx context.Context) ([]StatusCount, error)
	ItemsBelowReorder(ctx context.Context) ([]ItemStock, error)
	OverdueRentals(ctx context.Context, asOf time.Time) ([]OverdueRental, error)
	Revenue(ctx context.Context, from, to time.Time) (*RevenueSummary, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reports repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) StockByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryUnit{}).
		Select("status, COUNT(*) AS units, COALESCE(SUM(quantity), 0) AS quantity").
		Group("status").
		Order("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ItemsBelowReorder lists items whose available stock has fallen to or
// below their reorder level. Items with no reorder level set are
// excluded.
func (r *repository) ItemsBelowReorder(ctx context.Context) ([]ItemStock, error) {
	var rows []ItemStock
	if err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Select(`items.id AS item_id, items.sku, items.name, items.reorder_level,
			COALESCE(SUM(inventory_units.quantity), 0) AS on_hand`).
		Joins(`LEFT JOIN inventory_units ON inventory_units.item_id = items.id
			AND inventory_units.status = ?`, enums.UnitStatusAvailable).
		Where("items.reorder_level > 0").
		Group("items.id, items.sku, items.name, items.reorder_level").
		Having("COALESCE(SUM(inventory_units.quantity), 0) <= items.reorder_level").
		Order("items.sku").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) OverdueRentals(ctx context.Context, asOf time.Time) ([]OverdueRental, error) {
	type row struct {
		RentalID     uuid.UUID
		Number       string
		CustomerName string
		DueDate      time.Time
		ChargeTotal  decimal.Decimal
	}

	var raw []row
	if err := r.db.WithContext(ctx).
		Model(&models.Rental{}).
		Select(`rentals.id AS rental_id, rentals.number, customers.name AS customer_name,
			rentals.due_date, rentals.charge_total`).
		Joins("JOIN customers ON customers.id = rentals.customer_id").
		Where("rentals.status IN ? AND rentals.due_date < ?",
			[]enums.RentalStatus{enums.RentalStatusActive, enums.RentalStatusOverdue}, asOf).
		Order("rentals.due_date ASC").
		Scan(&raw).Error; err != nil {
		return nil, err
	}

	out := make([]OverdueRental, 0, len(raw))
	for _, item := range raw {
		out = append(out, OverdueRental{
			RentalID:     item.RentalID,
			Number:       item.Number,
			CustomerName: item.CustomerName,
			DueDate:      item.DueDate,
			DaysOverdue:  daysBetween(item.DueDate, asOf),
			ChargeTotal:  item.ChargeTotal,
		})
	}
	return out, nil
}

func (r *repository) Revenue(ctx context.Context, from, to time.Time) (*RevenueSummary, error) {
	summary := &RevenueSummary{
		From:          from,
		To:            to,
		SalesRevenue:  decimal.Zero,
		RentalRevenue: decimal.Zero,
		LateFees:      decimal.Zero,
	}

	type moneyRow struct {
		Total decimal.Decimal
		Count int64
	}

	var sales moneyRow
	if err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("COALESCE(SUM(grand_total), 0) AS total, COUNT(*) AS count").
		Where("status = ? AND sale_date >= ? AND sale_date <= ?", enums.SaleStatusCompleted, from, to).
		Scan(&sales).Error; err != nil {
		return nil, err
	}
	summary.SalesRevenue = sales.Total
	summary.SalesCount = sales.Count

	type rentalRow struct {
		Total   decimal.Decimal
		LateFee decimal.Decimal
		Count   int64
	}
	var rentals rentalRow
	if err := r.db.WithContext(ctx).
		Model(&models.Rental{}).
		Select(`COALESCE(SUM(charge_total), 0) AS total,
			COALESCE(SUM(late_fee_total), 0) AS late_fee, COUNT(*) AS count`).
		Where("status = ? AND closed_at >= ? AND closed_at <= ?", enums.RentalStatusReturned, from, to).
		Scan(&rentals).Error; err != nil {
		return nil, err
	}
	summary.RentalRevenue = rentals.Total
	summary.LateFees = rentals.LateFee
	summary.RentalCount = rentals.Count

	return summary, nil
}

func daysBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	days := int(to.Sub(from).Hours() / 24)
	if to.Sub(from)%(24*time.Hour) > 0 {
		days++
	}
	return days
}
