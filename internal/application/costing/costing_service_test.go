package costing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	appcosting "github.com/sellerpnl/backend/internal/application/costing"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/domain/seller"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"github.com/sellerpnl/backend/internal/infrastructure/lock"
	"github.com/sellerpnl/backend/internal/infrastructure/persistence/memory"
	"github.com/sellerpnl/backend/internal/infrastructure/strategy/cost"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const barcode = "P-001"

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type harness struct {
	mem   *memory.Store
	store *seller.Store
	svc   *appcosting.CostingService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := memory.New()
	return newHarnessWithScope(t, mem, mem)
}

func newHarnessWithScope(t *testing.T, mem *memory.Store, scope appcosting.TransactionScope) *harness {
	t.Helper()
	store, err := seller.NewStore("costing", "")
	require.NoError(t, err)
	require.NoError(t, mem.Stores().Save(context.Background(), store))

	svc := appcosting.NewCostingService(
		scope,
		mem.Repositories(),
		mem.Stores(),
		lock.NewMemoryLocker(),
		cost.NewFIFOCostStrategy(),
		appcosting.DefaultOptions(),
		nil,
	)
	svc.SetClock(func() time.Time { return date(2024, time.March, 1) })
	return &harness{mem: mem, store: store, svc: svc}
}

func (h *harness) receive(t *testing.T, qty, unitCost string, receipt time.Time) *costing.CostLot {
	t.Helper()
	lot, err := h.svc.ReceiveLot(context.Background(), appcosting.ReceiveLotCommand{
		StoreID:     h.store.ID,
		Barcode:     barcode,
		Quantity:    dec(qty),
		UnitCost:    dec(unitCost),
		ReceiptDate: receipt,
	})
	require.NoError(t, err)
	return lot
}

func (h *harness) order(t *testing.T, qty string, on time.Time) *trade.Order {
	t.Helper()
	o, err := trade.NewOrder(h.store.ID, "ORD-"+uuid.NewString()[:6], on, dec(qty).Mul(dec("20")))
	require.NoError(t, err)
	_, err = o.AddLine(barcode, dec(qty), dec("20"))
	require.NoError(t, err)
	require.NoError(t, h.mem.Orders().Save(context.Background(), o))
	return o
}

func (h *harness) line(t *testing.T, o *trade.Order) trade.OrderLine {
	t.Helper()
	stored, err := h.mem.Orders().FindByID(context.Background(), h.store.ID, o.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	return stored.Lines[0]
}

func (h *harness) lots(t *testing.T) []*costing.CostLot {
	t.Helper()
	lots, err := h.svc.GetCostHistory(context.Background(), h.store.ID, barcode)
	require.NoError(t, err)
	return lots
}

// twoLotSale receives Lot A (10 @ 5) and Lot B (10 @ 7) and sells 15 units
func twoLotSale(t *testing.T, h *harness) *trade.Order {
	h.receive(t, "10", "5", date(2024, time.January, 1))
	h.receive(t, "10", "7", date(2024, time.February, 1))
	o := h.order(t, "15", date(2024, time.February, 10))
	_, err := h.svc.AllocateOrder(context.Background(), h.store.ID, o.ID)
	require.NoError(t, err)
	return o
}

func TestCostingService_AllocateOrder_FIFOAcrossLots(t *testing.T) {
	h := newHarness(t)
	o := twoLotSale(t, h)

	line := h.line(t, o)
	assert.True(t, line.CostStamped)
	assert.True(t, line.UnitCost.Equal(dec("5.6667")), "unit cost %s", line.UnitCost)
	assert.Equal(t, string(costing.CostSourceFIFO), line.CostSource)
	assert.False(t, line.StockDepleted)

	lots := h.lots(t)
	require.Len(t, lots, 2)
	assert.True(t, lots[0].Remaining().IsZero())
	assert.True(t, lots[0].Depleted)
	assert.True(t, lots[1].Remaining().Equal(dec("5")))

	rows, err := h.mem.Consumptions().FindByOrderLines(context.Background(), h.store.ID, []uuid.UUID{line.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Quantity.Equal(dec("10")))
	assert.True(t, rows[1].Quantity.Equal(dec("5")))
}

func TestCostingService_AllocateOrder_SkipsStampedLines(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	o := twoLotSale(t, h)

	res, err := h.svc.AllocateOrder(ctx, h.store.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.AlreadyCosted)
	assert.Empty(t, res.Lines)
	assert.True(t, h.lots(t)[1].Remaining().Equal(dec("5")), "second allocation must not consume again")
}

func TestCostingService_AllocateOrder_Shortfall(t *testing.T) {
	tests := []struct {
		name         string
		lots         [][2]string
		qty          string
		wantUnitCost string
		wantDepleted bool
		wantMissing  bool
		wantSource   costing.CostSource
	}{
		{
			name:         "priced at last known cost beyond stock",
			lots:         [][2]string{{"10", "5"}, {"10", "7"}},
			qty:          "25",
			wantUnitCost: "6.2",
			wantDepleted: true,
			wantSource:   costing.CostSourceLastKnown,
		},
		{
			name:         "no cost history",
			qty:          "3",
			wantUnitCost: "0",
			wantMissing:  true,
			wantSource:   costing.CostSourceMissing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			for i, l := range tt.lots {
				h.receive(t, l[0], l[1], date(2024, time.January, 1+i))
			}
			o := h.order(t, tt.qty, date(2024, time.February, 1))

			res, err := h.svc.AllocateOrder(context.Background(), h.store.ID, o.ID)
			require.NoError(t, err)
			require.Len(t, res.Lines, 1)
			assert.True(t, res.Lines[0].UnitCost.Equal(dec(tt.wantUnitCost)), "unit cost %s", res.Lines[0].UnitCost)
			assert.Equal(t, tt.wantDepleted, res.Lines[0].StockDepleted)
			assert.Equal(t, tt.wantMissing, res.Lines[0].MissingCost)
			assert.Equal(t, string(tt.wantSource), res.Lines[0].Source)
			if tt.wantDepleted {
				assert.Equal(t, []string{barcode}, res.StockDepleted)
			}
			if tt.wantMissing {
				assert.Equal(t, []string{barcode}, res.MissingCost)
			}
		})
	}
}

func TestCostingService_AllocateOrder_Errors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	cancelled := h.order(t, "1", date(2024, time.February, 1))
	require.NoError(t, cancelled.TransitionTo(trade.OrderStatusCancelled))
	require.NoError(t, h.mem.Orders().Save(ctx, cancelled))

	tests := []struct {
		name    string
		storeID uuid.UUID
		orderID uuid.UUID
		code    string
	}{
		{"cancelled order", h.store.ID, cancelled.ID, shared.CodeInvalidState},
		{"unknown order", h.store.ID, uuid.New(), shared.CodeNotFound},
		{"unknown store", uuid.New(), cancelled.ID, shared.CodeStoreNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.AllocateOrder(ctx, tt.storeID, tt.orderID)
			require.Error(t, err)
			assert.Equal(t, tt.code, shared.CodeOf(err))
		})
	}
}

func TestCostingService_ReceiveLot_AssignsSequence(t *testing.T) {
	h := newHarness(t)
	first := h.receive(t, "1", "5", date(2024, time.January, 1))
	second := h.receive(t, "1", "6", date(2024, time.January, 1))

	assert.Less(t, first.Seq, second.Seq)
	lots := h.lots(t)
	require.Len(t, lots, 2)
	assert.Equal(t, first.ID, lots[0].ID, "same receipt date keeps insertion order")
}

func TestCostingService_ReceiveLot_Validation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		cmd  appcosting.ReceiveLotCommand
		code string
	}{
		{"zero quantity", appcosting.ReceiveLotCommand{StoreID: h.store.ID, Barcode: barcode, Quantity: dec("0"), UnitCost: dec("1"), ReceiptDate: date(2024, 1, 1)}, shared.CodeInvalidQuantity},
		{"negative cost", appcosting.ReceiveLotCommand{StoreID: h.store.ID, Barcode: barcode, Quantity: dec("1"), UnitCost: dec("-1"), ReceiptDate: date(2024, 1, 1)}, shared.CodeInvalidCost},
		{"unknown store", appcosting.ReceiveLotCommand{StoreID: uuid.New(), Barcode: barcode, Quantity: dec("1"), UnitCost: dec("1"), ReceiptDate: date(2024, 1, 1)}, shared.CodeStoreNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.ReceiveLot(context.Background(), tt.cmd)
			require.Error(t, err)
			assert.Equal(t, tt.code, shared.CodeOf(err))
		})
	}
}

func TestCostingService_BackdatedLotRedistributes(t *testing.T) {
	h := newHarness(t)
	o := twoLotSale(t, h)

	// received later, but dated before everything already sold
	h.receive(t, "20", "4", date(2023, time.December, 1))

	line := h.line(t, o)
	assert.True(t, line.UnitCost.Equal(dec("4")), "unit cost %s", line.UnitCost)

	lots := h.lots(t)
	require.Len(t, lots, 3)
	assert.True(t, lots[0].Remaining().Equal(dec("5")))
	assert.True(t, lots[1].ConsumedQuantity.IsZero())
	assert.True(t, lots[2].ConsumedQuantity.IsZero())
}

func TestCostingService_Redistribute_Idempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	o := twoLotSale(t, h)
	before := h.line(t, o)

	for i := 0; i < 2; i++ {
		res, err := h.svc.Redistribute(ctx, h.store.ID, barcode)
		require.NoError(t, err)
		assert.Empty(t, res.Changed, "run %d", i+1)
		assert.True(t, res.Discrepancy.IsZero())
	}
	after := h.line(t, o)
	assert.True(t, before.UnitCost.Equal(after.UnitCost))
	assert.True(t, h.lots(t)[1].Remaining().Equal(dec("5")))
}

func TestCostingService_GetStockValuation(t *testing.T) {
	h := newHarness(t)
	twoLotSale(t, h)

	vals, err := h.svc.GetStockValuation(context.Background(), h.store.ID)
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, barcode, vals[0].Barcode)
	assert.True(t, vals[0].RemainingQuantity.Equal(dec("5")))
	assert.True(t, vals[0].Value.Equal(dec("35")), "value %s", vals[0].Value)
}

// flakyLots fails SaveWithLock as scripted, otherwise delegating to the
// repository of the current transaction
type flakyLots struct {
	costing.CostLotRepository
	mock.Mock
}

func (r *flakyLots) SaveWithLock(ctx context.Context, lot *costing.CostLot) error {
	if err := r.Called(ctx, lot).Error(0); err != nil {
		return err
	}
	return r.CostLotRepository.SaveWithLock(ctx, lot)
}

type flakyRepos struct {
	appcosting.TransactionalRepositories
	lots *flakyLots
}

func (r flakyRepos) LotRepo() costing.CostLotRepository { return r.lots }

type flakyScope struct {
	mem  *memory.Store
	lots *flakyLots
}

func (s *flakyScope) Execute(ctx context.Context, fn func(repos appcosting.TransactionalRepositories) error) error {
	return s.mem.Execute(ctx, func(repos appcosting.TransactionalRepositories) error {
		s.lots.CostLotRepository = repos.LotRepo()
		return fn(flakyRepos{TransactionalRepositories: repos, lots: s.lots})
	})
}

func TestCostingService_RetriesConcurrencyConflicts(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	lots := &flakyLots{}
	h := newHarnessWithScope(t, mem, &flakyScope{mem: mem, lots: lots})
	h.receive(t, "10", "5", date(2024, time.January, 1))
	o := h.order(t, "3", date(2024, time.January, 5))

	lots.On("SaveWithLock", mock.Anything, mock.Anything).Return(shared.ErrConcurrencyConflict).Once()
	lots.On("SaveWithLock", mock.Anything, mock.Anything).Return(nil)

	res, err := h.svc.AllocateOrder(ctx, h.store.ID, o.ID)
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	lots.AssertNumberOfCalls(t, "SaveWithLock", 2)

	// the failed attempt was rolled back, so only one consumption is visible
	assert.True(t, h.lots(t)[0].Remaining().Equal(dec("7")))
}

func TestCostingService_GivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	lots := &flakyLots{}
	h := newHarnessWithScope(t, mem, &flakyScope{mem: mem, lots: lots})
	h.receive(t, "10", "5", date(2024, time.January, 1))
	o := h.order(t, "3", date(2024, time.January, 5))

	lots.On("SaveWithLock", mock.Anything, mock.Anything).Return(shared.ErrConcurrencyConflict)

	_, err := h.svc.AllocateOrder(ctx, h.store.ID, o.ID)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	lots.AssertNumberOfCalls(t, "SaveWithLock", appcosting.DefaultOptions().MaxConflictRetries+1)
	assert.False(t, h.line(t, o).CostStamped)
}
