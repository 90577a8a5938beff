package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/pkg/db"
	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
)

// ReceiveLine pairs a purchase line with the stock identifiers supplied
// at receiving time. Serialized items carry one serial per unit ordered;
// everything else lands as a single batch row, with the code generated
// when the caller does not provide one.
type ReceiveLine struct {
	Line          *models.PurchaseLine
	Item          *models.Item
	SerialNumbers []string
	BatchCode     *string
	Location      *string
	Condition     enums.UnitCondition
}

// FieldError locates a validation failure inside a receive payload.
type FieldError struct {
	Line    int    `json:"line"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// MaterializeTx turns received purchase lines into inventory units
// inside the caller's transaction. All lines are validated before any
// row is written; the returned validation error carries every failure
// at once so the client can fix the whole payload in one pass. The
// database constraints remain the final authority on uniqueness; a
// duplicate that slips past the pre-check fails the insert and comes
// back as a conflict.
func (s *service) MaterializeTx(ctx context.Context, tx *gorm.DB, purchase *models.Purchase, lines []ReceiveLine) ([]models.InventoryUnit, error) {
	if purchase == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase required")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line required")
	}

	repo := s.repo.WithTx(tx)

	var fieldErrs []FieldError
	seenSerials := make(map[string]int)
	var allSerials []string

	for i, line := range lines {
		if line.Line == nil || line.Item == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line and item required on every receive line")
		}
		if line.Condition != "" && !line.Condition.IsValid() {
			fieldErrs = append(fieldErrs, FieldError{Line: i, Field: "condition", Message: fmt.Sprintf("invalid condition %q", line.Condition)})
			continue
		}

		if line.Item.IsSerialized {
			if line.BatchCode != nil {
				fieldErrs = append(fieldErrs, FieldError{
					Line:    i,
					Field:   "batch_code",
					Message: "serialized line cannot carry a batch code",
				})
				continue
			}
			serials := normalizeSerials(line.SerialNumbers)
			if len(serials) != line.Line.Quantity {
				fieldErrs = append(fieldErrs, FieldError{
					Line:    i,
					Field:   "serial_numbers",
					Message: fmt.Sprintf("expected %d serial numbers, got %d", line.Line.Quantity, len(serials)),
				})
				continue
			}
			for _, serial := range serials {
				if prev, dup := seenSerials[serial]; dup {
					fieldErrs = append(fieldErrs, FieldError{
						Line:    i,
						Field:   "serial_numbers",
						Message: fmt.Sprintf("serial %q repeated (also on line %d)", serial, prev),
					})
					continue
				}
				seenSerials[serial] = i
				allSerials = append(allSerials, serial)
			}
			continue
		}

		if len(normalizeSerials(line.SerialNumbers)) > 0 {
			fieldErrs = append(fieldErrs, FieldError{
				Line:    i,
				Field:   "serial_numbers",
				Message: "batch-tracked line cannot carry serial numbers",
			})
			continue
		}

		if line.BatchCode != nil {
			code := normalizeIdentifier(*line.BatchCode)
			if code == "" {
				fieldErrs = append(fieldErrs, FieldError{Line: i, Field: "batch_code", Message: "batch code cannot be blank"})
				continue
			}
			exists, err := repo.BatchCodeExists(ctx, code)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check batch code")
			}
			if exists {
				fieldErrs = append(fieldErrs, FieldError{Line: i, Field: "batch_code", Message: fmt.Sprintf("batch code %q already in use", code)})
			}
		}
	}

	if len(allSerials) > 0 {
		existing, err := repo.ExistingSerials(ctx, allSerials)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check serial numbers")
		}
		for _, serial := range existing {
			fieldErrs = append(fieldErrs, FieldError{
				Line:    seenSerials[serial],
				Field:   "serial_numbers",
				Message: fmt.Sprintf("serial %q already in inventory", serial),
			})
		}
	}

	if len(fieldErrs) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receive payload invalid").WithDetails(fieldErrs)
	}

	var units []models.InventoryUnit
	for _, line := range lines {
		condition := line.Condition
		if condition == "" {
			condition = enums.UnitConditionNew
		}
		warranty := warrantyExpiry(purchase.PurchaseDate, line.Item.WarrantyPeriodDays)

		if line.Item.IsSerialized {
			for _, serial := range normalizeSerials(line.SerialNumbers) {
				sn := serial
				units = append(units, models.InventoryUnit{
					ID:                uuid.New(),
					ItemID:            line.Item.ID,
					PurchaseID:        &purchase.ID,
					PurchaseLineID:    &line.Line.ID,
					SerialNumber:      &sn,
					Quantity:          1,
					UnitCost:          line.Line.UnitCost,
					WarrantyExpiresAt: warranty,
					Location:          line.Location,
					Condition:         condition,
					Status:            enums.UnitStatusAvailable,
				})
			}
			continue
		}

		var code string
		if line.BatchCode != nil {
			code = normalizeIdentifier(*line.BatchCode)
		} else {
			generated, err := s.generateBatchCode(ctx, repo, purchase.PurchaseDate)
			if err != nil {
				return nil, err
			}
			code = generated
		}
		units = append(units, models.InventoryUnit{
			ID:                uuid.New(),
			ItemID:            line.Item.ID,
			PurchaseID:        &purchase.ID,
			PurchaseLineID:    &line.Line.ID,
			BatchCode:         &code,
			Quantity:          line.Line.Quantity,
			UnitCost:          line.Line.UnitCost,
			WarrantyExpiresAt: warranty,
			Location:          line.Location,
			Condition:         condition,
			Status:            enums.UnitStatusAvailable,
		})
	}

	if err := repo.CreateUnits(ctx, units); err != nil {
		if db.IsUniqueViolation(err, "idx_inventory_units_serial_number") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "serial number already in inventory")
		}
		if db.IsUniqueViolation(err, "idx_inventory_units_batch_code") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "batch code already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory units")
	}
	return units, nil
}

func (s *service) generateBatchCode(ctx context.Context, repo Repository, receivedAt time.Time) (string, error) {
	seq, err := repo.NextBatchSequence(ctx)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate batch sequence")
	}
	return fmt.Sprintf("BAT-%s-%d", receivedAt.UTC().Format("20060102"), seq), nil
}

func warrantyExpiry(purchaseDate time.Time, periodDays int) *time.Time {
	if periodDays <= 0 {
		return nil
	}
	expires := purchaseDate.AddDate(0, 0, periodDays)
	return &expires
}

func normalizeSerials(serials []string) []string {
	cleaned := make([]string, 0, len(serials))
	for _, serial := range serials {
		if v := normalizeIdentifier(serial); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return cleaned
}

func normalizeIdentifier(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
