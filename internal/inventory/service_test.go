package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/internal/audit"
	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
)

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubAudit struct {
	entries []audit.Entry
}

func (a *stubAudit) Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

type stubRepo struct {
	byID    map[uuid.UUID]*models.InventoryUnit
	nextSeq int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{byID: make(map[uuid.UUID]*models.InventoryUnit), nextSeq: 1}
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) CreateUnits(ctx context.Context, units []models.InventoryUnit) error {
	for i := range units {
		unit := units[i]
		r.byID[unit.ID] = &unit
	}
	return nil
}

func (r *stubRepo) Update(ctx context.Context, unit *models.InventoryUnit) error {
	r.byID[unit.ID] = unit
	return nil
}

func (r *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryUnit, error) {
	unit, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return unit, nil
}

func (r *stubRepo) FindBySerialNumber(ctx context.Context, serial string) (*models.InventoryUnit, error) {
	for _, unit := range r.byID {
		if unit.SerialNumber != nil && *unit.SerialNumber == serial {
			return unit, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) FindByBatchCode(ctx context.Context, code string) (*models.InventoryUnit, error) {
	for _, unit := range r.byID {
		if unit.BatchCode != nil && *unit.BatchCode == code {
			return unit, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.InventoryUnit, error) {
	return nil, nil
}

func (r *stubRepo) ExistingSerials(ctx context.Context, serials []string) ([]string, error) {
	var existing []string
	for _, serial := range serials {
		if _, err := r.FindBySerialNumber(ctx, serial); err == nil {
			existing = append(existing, serial)
		}
	}
	return existing, nil
}

func (r *stubRepo) BatchCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := r.FindByBatchCode(ctx, code)
	return err == nil, nil
}

func (r *stubRepo) NextBatchSequence(ctx context.Context) (int64, error) {
	seq := r.nextSeq
	r.nextSeq++
	return seq, nil
}

func newTestService(t *testing.T) (Service, *stubRepo, *stubAudit) {
	t.Helper()
	repo := newStubRepo()
	recorder := &stubAudit{}
	svc, err := NewService(repo, stubTx{}, recorder)
	require.NoError(t, err)
	return svc, repo, recorder
}

func seedUnit(r *stubRepo, mutate func(*models.InventoryUnit)) *models.InventoryUnit {
	serial := "SN-001"
	unit := &models.InventoryUnit{
		ID:           uuid.New(),
		ItemID:       uuid.New(),
		SerialNumber: &serial,
		Quantity:     1,
		Condition:    enums.UnitConditionNew,
		Status:       enums.UnitStatusAvailable,
	}
	if mutate != nil {
		mutate(unit)
	}
	r.byID[unit.ID] = unit
	return unit
}

func seedBatchUnit(r *stubRepo, qty int) *models.InventoryUnit {
	code := "BAT-20250110-7"
	unit := &models.InventoryUnit{
		ID:        uuid.New(),
		ItemID:    uuid.New(),
		BatchCode: &code,
		Quantity:  qty,
		Condition: enums.UnitConditionNew,
		Status:    enums.UnitStatusAvailable,
	}
	r.byID[unit.ID] = unit
	return unit
}

func TestTransitionFollowsLifecycle(t *testing.T) {
	svc, repo, recorder := newTestService(t)
	unit := seedUnit(repo, nil)

	updated, err := svc.Transition(context.Background(), unit.ID, enums.UnitStatusRented, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, enums.UnitStatusRented, updated.Status)
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, enums.AuditActionStatus, recorder.entries[0].Action)

	updated, err = svc.Transition(context.Background(), unit.ID, enums.UnitStatusReturned, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, enums.UnitStatusReturned, updated.Status)

	updated, err = svc.Transition(context.Background(), unit.ID, enums.UnitStatusAvailable, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, enums.UnitStatusAvailable, updated.Status)
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	svc, repo, _ := newTestService(t)
	unit := seedUnit(repo, func(u *models.InventoryUnit) {
		u.Status = enums.UnitStatusRented
	})

	_, err := svc.Transition(context.Background(), unit.ID, enums.UnitStatusSold, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestTransitionOutOfTerminalStateRejected(t *testing.T) {
	svc, repo, _ := newTestService(t)
	unit := seedUnit(repo, func(u *models.InventoryUnit) {
		u.Status = enums.UnitStatusSold
	})

	_, err := svc.Transition(context.Background(), unit.ID, enums.UnitStatusAvailable, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestTransitionSameStatusIsNoOp(t *testing.T) {
	svc, repo, _ := newTestService(t)
	unit := seedUnit(repo, nil)

	updated, err := svc.Transition(context.Background(), unit.ID, enums.UnitStatusAvailable, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, enums.UnitStatusAvailable, updated.Status)
}

func TestConsumeDecrementsAndSellsOut(t *testing.T) {
	svc, repo, _ := newTestService(t)
	unit := seedBatchUnit(repo, 10)

	updated, err := svc.ConsumeTx(context.Background(), nil, unit.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.Quantity)
	assert.Equal(t, enums.UnitStatusAvailable, updated.Status)

	updated, err = svc.ConsumeTx(context.Background(), nil, unit.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)
	assert.Equal(t, enums.UnitStatusSold, updated.Status)
}

func TestConsumeRejectsOverdraw(t *testing.T) {
	svc, repo, _ := newTestService(t)
	unit := seedBatchUnit(repo, 3)

	_, err := svc.ConsumeTx(context.Background(), nil, unit.ID, 5)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestConsumeRejectsSerializedUnit(t *testing.T) {
	svc, repo, _ := newTestService(t)
	unit := seedUnit(repo, nil)

	_, err := svc.ConsumeTx(context.Background(), nil, unit.ID, 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRestockReopensSoldBatch(t *testing.T) {
	svc, repo, _ := newTestService(t)
	unit := seedBatchUnit(repo, 2)

	_, err := svc.ConsumeTx(context.Background(), nil, unit.ID, 2)
	require.NoError(t, err)

	updated, err := svc.RestockTx(context.Background(), nil, unit.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Quantity)
	assert.Equal(t, enums.UnitStatusAvailable, updated.Status)
}

func TestRestockReopensSoldSerializedUnit(t *testing.T) {
	svc, repo, _ := newTestService(t)
	unit := seedUnit(repo, func(u *models.InventoryUnit) {
		u.Status = enums.UnitStatusSold
	})

	updated, err := svc.RestockTx(context.Background(), nil, unit.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, enums.UnitStatusAvailable, updated.Status)

	_, err = svc.RestockTx(context.Background(), nil, unit.ID, 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestCheckSerialNumber(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUnit(repo, nil)

	result, err := svc.CheckSerialNumber(context.Background(), " sn-001 ")
	require.NoError(t, err)
	assert.True(t, result.Exists)
	assert.Equal(t, "SN-001", result.SerialNumber)
	require.NotNil(t, result.Status)
	assert.Equal(t, enums.UnitStatusAvailable, *result.Status)

	result, err = svc.CheckSerialNumber(context.Background(), "SN-999")
	require.NoError(t, err)
	assert.False(t, result.Exists)
	assert.Nil(t, result.UnitID)
}

func TestCheckSerialNumbersFlagsStockAndSubmissionDuplicates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUnit(repo, nil)

	result, err := svc.CheckSerialNumbers(context.Background(), []string{"sn-001", "SN-002", "sn-002", "SN-003"})
	require.NoError(t, err)
	assert.True(t, result.Results["SN-001"], "seeded serial exists in stock")
	assert.False(t, result.Results["SN-002"], "repeat within the submission is not stock existence")
	assert.False(t, result.Results["SN-003"])
	assert.Equal(t, []string{"SN-002"}, result.Duplicates)
	assert.Equal(t, []string{"SN-003"}, result.Valid)
	assert.Equal(t, "2 of 3 serial numbers are unavailable", result.Message)

	_, err = svc.CheckSerialNumbers(context.Background(), []string{"  "})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCheckBatchCode(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedBatchUnit(repo, 5)

	result, err := svc.CheckBatchCode(context.Background(), "bat-20250110-7")
	require.NoError(t, err)
	assert.True(t, result.Exists)

	_, err = svc.CheckBatchCode(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func receiveFixtures(serialized bool, qty int) (*models.Purchase, *models.Item, *models.PurchaseLine) {
	purchase := &models.Purchase{
		ID:           uuid.New(),
		Number:       "PO-20250115-1",
		PurchaseDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	item := &models.Item{
		ID:                 uuid.New(),
		SKU:                "DRILL-01",
		Name:               "Power Drill",
		IsSerialized:       serialized,
		WarrantyPeriodDays: 90,
	}
	line := &models.PurchaseLine{
		ID:         uuid.New(),
		PurchaseID: purchase.ID,
		ItemID:     item.ID,
		Quantity:   qty,
		UnitCost:   decimal.NewFromInt(100),
	}
	return purchase, item, line
}

func TestMaterializeSerializedLine(t *testing.T) {
	svc, repo, _ := newTestService(t)
	purchase, item, line := receiveFixtures(true, 3)

	units, err := svc.MaterializeTx(context.Background(), nil, purchase, []ReceiveLine{{
		Line:          line,
		Item:          item,
		SerialNumbers: []string{"sn-a", "SN-B ", "sn-c"},
	}})
	require.NoError(t, err)
	require.Len(t, units, 3)

	for _, unit := range units {
		require.NotNil(t, unit.SerialNumber)
		assert.Nil(t, unit.BatchCode)
		assert.Equal(t, 1, unit.Quantity)
		assert.Equal(t, enums.UnitStatusAvailable, unit.Status)
		assert.Equal(t, enums.UnitConditionNew, unit.Condition)
		assert.True(t, unit.UnitCost.Equal(decimal.NewFromInt(100)))
		require.NotNil(t, unit.WarrantyExpiresAt)
		assert.Equal(t, time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC), *unit.WarrantyExpiresAt)
	}
	assert.Equal(t, "SN-A", *units[0].SerialNumber)
	assert.Len(t, repo.byID, 3)
}

func TestMaterializeSerialCountMismatch(t *testing.T) {
	svc, _, _ := newTestService(t)
	purchase, item, line := receiveFixtures(true, 3)

	_, err := svc.MaterializeTx(context.Background(), nil, purchase, []ReceiveLine{{
		Line:          line,
		Item:          item,
		SerialNumbers: []string{"SN-A", "SN-B"},
	}})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().([]FieldError)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "serial_numbers", details[0].Field)
	assert.Equal(t, 0, details[0].Line)
}

func TestMaterializeDuplicateSerialAcrossLines(t *testing.T) {
	svc, _, _ := newTestService(t)
	purchase, item, lineA := receiveFixtures(true, 1)
	lineB := &models.PurchaseLine{
		ID:         uuid.New(),
		PurchaseID: purchase.ID,
		ItemID:     item.ID,
		Quantity:   1,
		UnitCost:   decimal.NewFromInt(90),
	}

	_, err := svc.MaterializeTx(context.Background(), nil, purchase, []ReceiveLine{
		{Line: lineA, Item: item, SerialNumbers: []string{"SN-A"}},
		{Line: lineB, Item: item, SerialNumbers: []string{"sn-a"}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestMaterializeRejectsExistingSerial(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUnit(repo, nil) // SN-001 already in inventory
	purchase, item, line := receiveFixtures(true, 1)

	_, err := svc.MaterializeTx(context.Background(), nil, purchase, []ReceiveLine{{
		Line:          line,
		Item:          item,
		SerialNumbers: []string{"SN-001"},
	}})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().([]FieldError)
	require.True(t, ok)
	assert.Contains(t, details[0].Message, "already in inventory")
}

func TestMaterializeBatchGeneratesCode(t *testing.T) {
	svc, repo, _ := newTestService(t)
	purchase, item, line := receiveFixtures(false, 25)

	units, err := svc.MaterializeTx(context.Background(), nil, purchase, []ReceiveLine{{
		Line: line,
		Item: item,
	}})
	require.NoError(t, err)
	require.Len(t, units, 1)

	unit := units[0]
	require.NotNil(t, unit.BatchCode)
	assert.Equal(t, "BAT-20250115-1", *unit.BatchCode)
	assert.Equal(t, 25, unit.Quantity)
	assert.Nil(t, unit.SerialNumber)
	assert.Len(t, repo.byID, 1)
}

func TestMaterializeBatchRejectsUsedCode(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedBatchUnit(repo, 5) // BAT-20250110-7
	purchase, item, line := receiveFixtures(false, 10)

	code := "bat-20250110-7"
	_, err := svc.MaterializeTx(context.Background(), nil, purchase, []ReceiveLine{{
		Line:      line,
		Item:      item,
		BatchCode: &code,
	}})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestMaterializeRejectsSerialAndBatchTogether(t *testing.T) {
	svc, _, _ := newTestService(t)
	purchase, item, line := receiveFixtures(true, 1)

	code := "B100"
	_, err := svc.MaterializeTx(context.Background(), nil, purchase, []ReceiveLine{{
		Line:          line,
		Item:          item,
		SerialNumbers: []string{"SN-9"},
		BatchCode:     &code,
	}})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().([]FieldError)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "batch_code", details[0].Field)
}

func TestMaterializeRejectsSerialsOnBatchLine(t *testing.T) {
	svc, _, _ := newTestService(t)
	purchase, item, line := receiveFixtures(false, 10)

	_, err := svc.MaterializeTx(context.Background(), nil, purchase, []ReceiveLine{{
		Line:          line,
		Item:          item,
		SerialNumbers: []string{"SN-9"},
	}})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().([]FieldError)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "serial_numbers", details[0].Field)
}

type racingInsertRepo struct {
	*stubRepo
	insertErr error
}

func (r *racingInsertRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *racingInsertRepo) CreateUnits(ctx context.Context, units []models.InventoryUnit) error {
	return r.insertErr
}

func TestMaterializeInsertRaceSurfacesConflict(t *testing.T) {
	repo := &racingInsertRepo{
		stubRepo:  newStubRepo(),
		insertErr: errors.New(`duplicate key value violates unique constraint "idx_inventory_units_serial_number" (SQLSTATE 23505)`),
	}
	svc, err := NewService(repo, stubTx{}, &stubAudit{})
	require.NoError(t, err)

	purchase, item, line := receiveFixtures(true, 1)
	_, err = svc.MaterializeTx(context.Background(), nil, purchase, []ReceiveLine{{
		Line:          line,
		Item:          item,
		SerialNumbers: []string{"SN-77"},
	}})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestResolvePricingFallsBackToItem(t *testing.T) {
	item := &models.Item{
		SalePrice:       decimal.NewFromInt(200),
		RentalRate:      decimal.NewFromInt(15),
		SecurityDeposit: decimal.NewFromInt(50),
	}

	pricing := ResolvePricing(item, nil, 7)
	assert.True(t, pricing.SalePrice.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 7, pricing.RentalPeriodDays)

	override := decimal.NewFromInt(180)
	periodDays := 14
	item.RentalPeriodDays = &periodDays
	unit := &models.InventoryUnit{SalePrice: &override}

	pricing = ResolvePricing(item, unit, 7)
	assert.True(t, pricing.SalePrice.Equal(decimal.NewFromInt(180)))
	assert.True(t, pricing.RentalRate.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, 14, pricing.RentalPeriodDays)
}

func TestResolvePricingIgnoresZeroOverride(t *testing.T) {
	item := &models.Item{
		SalePrice:  decimal.NewFromInt(200),
		RentalRate: decimal.NewFromInt(15),
	}
	zero := decimal.Zero
	unit := &models.InventoryUnit{SalePrice: &zero, RentalRate: &zero}

	pricing := ResolvePricing(item, unit, 7)
	assert.True(t, pricing.SalePrice.Equal(decimal.NewFromInt(200)), "zero override falls back to item default")
	assert.True(t, pricing.RentalRate.Equal(decimal.NewFromInt(15)))
}
