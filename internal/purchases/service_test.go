package purchases

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/internal/audit"
	"github.com/rentworks/rentworks-backend/internal/inventory"
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
	byID    map[uuid.UUID]*models.Purchase
	nextSeq int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{byID: make(map[uuid.UUID]*models.Purchase), nextSeq: 1}
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) Create(ctx context.Context, purchase *models.Purchase) error {
	copied := *purchase
	r.byID[purchase.ID] = &copied
	return nil
}

func (r *stubRepo) Update(ctx context.Context, purchase *models.Purchase) error {
	copied := *purchase
	r.byID[purchase.ID] = &copied
	return nil
}

func (r *stubRepo) ReplaceLines(ctx context.Context, purchaseID uuid.UUID, lines []models.PurchaseLine) error {
	if stored, ok := r.byID[purchaseID]; ok {
		stored.Lines = lines
	}
	return nil
}

func (r *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	purchase, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *purchase
	return &copied, nil
}

func (r *stubRepo) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Purchase, error) {
	return nil, nil
}

func (r *stubRepo) NextNumberSequence(ctx context.Context) (int64, error) {
	seq := r.nextSeq
	r.nextSeq++
	return seq, nil
}

type stubSuppliers struct {
	supplier *models.Supplier
}

func (s *stubSuppliers) Get(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	if s.supplier == nil || s.supplier.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	return s.supplier, nil
}

type stubItems struct {
	byID map[uuid.UUID]*models.Item
}

func (s *stubItems) Get(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, ok := s.byID[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return item, nil
}

type stubMaterializer struct {
	received []inventory.ReceiveLine
	units    []models.InventoryUnit
	err      error
}

func (m *stubMaterializer) MaterializeTx(ctx context.Context, tx *gorm.DB, purchase *models.Purchase, lines []inventory.ReceiveLine) ([]models.InventoryUnit, error) {
	m.received = lines
	if m.err != nil {
		return nil, m.err
	}
	return m.units, nil
}

type fixture struct {
	svc       Service
	repo      *stubRepo
	suppliers *stubSuppliers
	items     *stubItems
	mat       *stubMaterializer
	audit     *stubAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newStubRepo()
	suppliers := &stubSuppliers{supplier: &models.Supplier{
		ID:       uuid.New(),
		Name:     "Acme Supply",
		IsActive: true,
	}}
	items := &stubItems{byID: make(map[uuid.UUID]*models.Item)}
	mat := &stubMaterializer{}
	recorder := &stubAudit{}

	svc, err := NewService(repo, stubTx{}, suppliers, items, mat, recorder)
	require.NoError(t, err)
	return &fixture{svc: svc, repo: repo, suppliers: suppliers, items: items, mat: mat, audit: recorder}
}

func (f *fixture) addItem(serialized bool) *models.Item {
	item := &models.Item{
		ID:           uuid.New(),
		SKU:          "DRILL-01",
		Name:         "Power Drill",
		IsSerialized: serialized,
	}
	f.items.byID[item.ID] = item
	return item
}

func TestLineTotalFormula(t *testing.T) {
	// rate 100 x qty 5 = 500, minus 50 discount = 450, plus 10% tax = 495
	total := lineTotal(decimal.NewFromInt(100), 5, decimal.NewFromInt(50), decimal.NewFromInt(10))
	assert.True(t, total.Equal(decimal.NewFromInt(495)), "got %s", total)
}

func TestLineTotalRoundsToCents(t *testing.T) {
	total := lineTotal(decimal.RequireFromString("9.99"), 3, decimal.Zero, decimal.RequireFromString("7.5"))
	assert.Equal(t, "32.22", total.StringFixed(2))
}

func TestCreateBuildsDraftWithTotals(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(true)

	created, err := f.svc.Create(context.Background(), CreateInput{
		SupplierID:   f.suppliers.supplier.ID,
		PurchaseDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{{
			ItemID:   item.ID,
			Quantity: 5,
			UnitCost: decimal.NewFromInt(100),
			Discount: decimal.NewFromInt(50),
			TaxRate:  decimal.NewFromInt(10),
		}},
		ActorID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, "PO-20250115-1", created.Number)
	assert.Equal(t, enums.PurchaseStatusDraft, created.Status)
	assert.Equal(t, "500.00", created.Subtotal.StringFixed(2))
	assert.Equal(t, "50.00", created.DiscountTotal.StringFixed(2))
	assert.Equal(t, "45.00", created.TaxTotal.StringFixed(2))
	assert.Equal(t, "495.00", created.GrandTotal.StringFixed(2))
	require.Len(t, created.Lines, 1)
	assert.Equal(t, "495.00", created.Lines[0].LineTotal.StringFixed(2))
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, enums.AuditActionCreate, f.audit.entries[0].Action)
}

func TestCreateRejectsInactiveSupplier(t *testing.T) {
	f := newFixture(t)
	f.suppliers.supplier.IsActive = false
	item := f.addItem(false)

	_, err := f.svc.Create(context.Background(), CreateInput{
		SupplierID: f.suppliers.supplier.ID,
		Lines:      []LineInput{{ItemID: item.ID, Quantity: 1, UnitCost: decimal.NewFromInt(10)}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestCreateRejectsExcessDiscount(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(false)

	_, err := f.svc.Create(context.Background(), CreateInput{
		SupplierID: f.suppliers.supplier.ID,
		Lines: []LineInput{{
			ItemID:   item.ID,
			Quantity: 1,
			UnitCost: decimal.NewFromInt(10),
			Discount: decimal.NewFromInt(20),
		}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func (f *fixture) createDraft(t *testing.T, item *models.Item, qty int) *models.Purchase {
	t.Helper()
	created, err := f.svc.Create(context.Background(), CreateInput{
		SupplierID:   f.suppliers.supplier.ID,
		PurchaseDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{{
			ItemID:   item.ID,
			Quantity: qty,
			UnitCost: decimal.NewFromInt(100),
		}},
	})
	require.NoError(t, err)
	return created
}

func TestUpdateRecomputesTotals(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(false)
	draft := f.createDraft(t, item, 2)

	updated, err := f.svc.Update(context.Background(), draft.ID, UpdateInput{
		Lines: []LineInput{{
			ItemID:   item.ID,
			Quantity: 3,
			UnitCost: decimal.NewFromInt(40),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "120.00", updated.GrandTotal.StringFixed(2))
}

func TestUpdateRejectsNonDraft(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(false)
	draft := f.createDraft(t, item, 2)
	f.repo.byID[draft.ID].Status = enums.PurchaseStatusReceived

	_, err := f.svc.Update(context.Background(), draft.ID, UpdateInput{Notes: ptr("late note")})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestReceiveMaterializesAndFlipsStatus(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(true)
	draft := f.createDraft(t, item, 2)
	f.mat.units = make([]models.InventoryUnit, 2)

	received, err := f.svc.Receive(context.Background(), draft.ID, ReceiveInput{
		Lines: []ReceiveLineInput{{
			LineID:        draft.Lines[0].ID,
			SerialNumbers: []string{"SN-A", "SN-B"},
		}},
		ActorID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PurchaseStatusReceived, received.Status)
	require.Len(t, f.mat.received, 1)
	assert.Equal(t, []string{"SN-A", "SN-B"}, f.mat.received[0].SerialNumbers)
	assert.Equal(t, enums.PurchaseStatusReceived, f.repo.byID[draft.ID].Status)
}

func TestReceiveRequiresPayloadForSerializedLines(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(true)
	draft := f.createDraft(t, item, 2)

	_, err := f.svc.Receive(context.Background(), draft.ID, ReceiveInput{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Equal(t, enums.PurchaseStatusDraft, f.repo.byID[draft.ID].Status)
}

func TestReceiveTwiceRejected(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(false)
	draft := f.createDraft(t, item, 10)

	_, err := f.svc.Receive(context.Background(), draft.ID, ReceiveInput{})
	require.NoError(t, err)

	_, err = f.svc.Receive(context.Background(), draft.ID, ReceiveInput{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestCancelDraftOnly(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(false)
	draft := f.createDraft(t, item, 1)

	cancelled, err := f.svc.Cancel(context.Background(), draft.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseStatusCancelled, cancelled.Status)

	// idempotent
	again, err := f.svc.Cancel(context.Background(), draft.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseStatusCancelled, again.Status)
}

func TestCancelReceivedRejected(t *testing.T) {
	f := newFixture(t)
	item := f.addItem(false)
	draft := f.createDraft(t, item, 1)

	_, err := f.svc.Receive(context.Background(), draft.ID, ReceiveInput{})
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), draft.ID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func ptr[T any](v T) *T { return &v }
