package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	appcosting "github.com/sellerpnl/backend/internal/application/costing"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/sellerpnl/backend/internal/domain/seller"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"github.com/sellerpnl/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func newTestLot(t *testing.T, storeID uuid.UUID, barcode string, seq int64, receipt time.Time, qty int64) *costing.CostLot {
	t.Helper()
	lot, err := costing.NewCostLot(costing.ReceiveLotInput{
		StoreID:     storeID,
		Barcode:     barcode,
		Quantity:    decimal.NewFromInt(qty),
		UnitCost:    decimal.NewFromInt(5),
		VATRate:     decimal.NewFromInt(20),
		ReceiptDate: receipt,
		Seq:         seq,
	})
	require.NoError(t, err)
	return lot
}

func TestGormCostLotRepository(t *testing.T) {
	ctx := context.Background()
	storeID := uuid.New()

	t.Run("FindByBarcode orders by receipt date then seq", func(t *testing.T) {
		repo := NewGormCostLotRepository(setupTestDB(t))
		late := newTestLot(t, storeID, "B1", 1, day(10), 5)
		earlyA := newTestLot(t, storeID, "B1", 3, day(2), 5)
		earlyB := newTestLot(t, storeID, "B1", 2, day(2), 5)
		for _, lot := range []*costing.CostLot{late, earlyA, earlyB} {
			require.NoError(t, repo.Create(ctx, lot))
		}

		lots, err := repo.FindByBarcode(ctx, storeID, "B1")
		require.NoError(t, err)
		require.Len(t, lots, 3)
		assert.Equal(t, earlyB.ID, lots[0].ID)
		assert.Equal(t, earlyA.ID, lots[1].ID)
		assert.Equal(t, late.ID, lots[2].ID)
		assert.True(t, lots[0].VATRate.Equal(decimal.NewFromInt(20)))
	})

	t.Run("NextSeq starts at one and follows the max", func(t *testing.T) {
		repo := NewGormCostLotRepository(setupTestDB(t))

		seq, err := repo.NextSeq(ctx, storeID, "B1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), seq)

		require.NoError(t, repo.Create(ctx, newTestLot(t, storeID, "B1", 7, day(1), 1)))
		seq, err = repo.NextSeq(ctx, storeID, "B1")
		require.NoError(t, err)
		assert.Equal(t, int64(8), seq)
	})

	t.Run("FindBySourceRef returns not found for unknown items", func(t *testing.T) {
		repo := NewGormCostLotRepository(setupTestDB(t))

		_, err := repo.FindBySourceRef(ctx, storeID, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("SaveWithLock rejects a stale version", func(t *testing.T) {
		repo := NewGormCostLotRepository(setupTestDB(t))
		lot := newTestLot(t, storeID, "B1", 1, day(1), 10)
		require.NoError(t, repo.Create(ctx, lot))

		first, err := repo.FindByID(ctx, storeID, lot.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, storeID, lot.ID)
		require.NoError(t, err)

		require.NoError(t, first.Consume(decimal.NewFromInt(4)))
		first.IncrementVersion()
		require.NoError(t, repo.SaveWithLock(ctx, first))

		require.NoError(t, second.Consume(decimal.NewFromInt(2)))
		second.IncrementVersion()
		err = repo.SaveWithLock(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		stored, err := repo.FindByID(ctx, storeID, lot.ID)
		require.NoError(t, err)
		assert.True(t, stored.ConsumedQuantity.Equal(decimal.NewFromInt(4)))
		assert.Equal(t, 2, stored.Version)
	})
}

func TestGormCostLotRepository_SaveWithLockConflict(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	repo := NewGormCostLotRepository(gormDB)

	lot := newTestLot(t, uuid.New(), "B1", 1, day(1), 10)
	lot.IncrementVersion()

	mock.ExpectExec(`UPDATE "cost_lots" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.SaveWithLock(context.Background(), lot)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormConsumptionRepository(t *testing.T) {
	ctx := context.Background()
	storeID := uuid.New()

	row := func(qty int64) costing.LotConsumption {
		return costing.LotConsumption{
			StoreID:     storeID,
			Barcode:     "B1",
			OrderID:     uuid.New(),
			OrderLineID: uuid.New(),
			Quantity:    decimal.NewFromInt(qty),
			UnitCost:    decimal.NewFromInt(5),
			ConsumedAt:  day(3),
			Source:      costing.ConsumptionFromLot,
		}
	}

	t.Run("Append keeps index order across calls", func(t *testing.T) {
		repo := NewGormConsumptionRepository(setupTestDB(t))
		require.NoError(t, repo.Append(ctx, []costing.LotConsumption{row(1), row(2)}))
		require.NoError(t, repo.Append(ctx, []costing.LotConsumption{row(3)}))

		rows, err := repo.FindByBarcode(ctx, storeID, "B1")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		for i, want := range []int64{1, 2, 3} {
			assert.True(t, rows[i].Quantity.Equal(decimal.NewFromInt(want)))
		}
	})

	t.Run("ReplaceForBarcode swaps the whole index", func(t *testing.T) {
		repo := NewGormConsumptionRepository(setupTestDB(t))
		require.NoError(t, repo.Append(ctx, []costing.LotConsumption{row(1), row(2)}))

		replacement := row(9)
		require.NoError(t, repo.ReplaceForBarcode(ctx, storeID, "B1", []costing.LotConsumption{replacement}))

		rows, err := repo.FindByBarcode(ctx, storeID, "B1")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, replacement.OrderLineID, rows[0].OrderLineID)

		byLine, err := repo.FindByOrderLines(ctx, storeID, []uuid.UUID{replacement.OrderLineID})
		require.NoError(t, err)
		assert.Len(t, byLine, 1)
	})
}

func newTestOrder(t *testing.T, storeID uuid.UUID, number string, date time.Time, barcode string, qty int64) *trade.Order {
	t.Helper()
	order, err := trade.NewOrder(storeID, number, date, decimal.NewFromInt(qty*100))
	require.NoError(t, err)
	_, err = order.AddLine(barcode, decimal.NewFromInt(qty), decimal.NewFromInt(100))
	require.NoError(t, err)
	return order
}

func TestGormOrderRepository(t *testing.T) {
	ctx := context.Background()
	storeID := uuid.New()

	t.Run("Save and FindByID round trip with lines", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))
		order := newTestOrder(t, storeID, "O-1", day(5), "B1", 2)
		require.NoError(t, repo.Save(ctx, order))

		found, err := repo.FindByID(ctx, storeID, order.ID)
		require.NoError(t, err)
		require.Len(t, found.Lines, 1)
		assert.Equal(t, "B1", found.Lines[0].Barcode)

		_, err = repo.FindByID(ctx, uuid.New(), order.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("FindRevenueOrders skips cancelled and returned orders", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))
		kept := newTestOrder(t, storeID, "O-1", day(5), "B1", 1)
		cancelled := newTestOrder(t, storeID, "O-2", day(5), "B1", 1)
		require.NoError(t, cancelled.TransitionTo(trade.OrderStatusCancelled))
		outside := newTestOrder(t, storeID, "O-3", day(20), "B1", 1)
		for _, o := range []*trade.Order{kept, cancelled, outside} {
			require.NoError(t, repo.Save(ctx, o))
		}

		orders, err := repo.FindRevenueOrders(ctx, storeID, shared.DateRange{Start: day(1), End: day(10)})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, kept.ID, orders[0].ID)
	})

	t.Run("FindSoldLines excludes cancelled orders and orders by date", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))
		second := newTestOrder(t, storeID, "O-2", day(8), "B1", 1)
		first := newTestOrder(t, storeID, "O-1", day(4), "B1", 3)
		cancelled := newTestOrder(t, storeID, "O-3", day(6), "B1", 1)
		require.NoError(t, cancelled.TransitionTo(trade.OrderStatusCancelled))
		for _, o := range []*trade.Order{second, first, cancelled} {
			require.NoError(t, repo.Save(ctx, o))
		}

		lines, err := repo.FindSoldLines(ctx, storeID, "B1")
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, first.ID, lines[0].OrderID)
		assert.Equal(t, second.ID, lines[1].OrderID)
		assert.True(t, lines[0].Line.Quantity.Equal(decimal.NewFromInt(3)))
	})

	t.Run("UpdateLineCosts stamps lines and rejects unknown ones", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))
		order := newTestOrder(t, storeID, "O-1", day(5), "B1", 2)
		require.NoError(t, repo.Save(ctx, order))

		err := repo.UpdateLineCosts(ctx, storeID, []trade.LineCost{{
			LineID:        order.Lines[0].ID,
			UnitCost:      decimal.RequireFromString("5.6667"),
			VATRate:       decimal.NewFromInt(20),
			Source:        string(costing.CostSourceFIFO),
			StockDepleted: true,
		}})
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, storeID, order.ID)
		require.NoError(t, err)
		line := found.Lines[0]
		assert.True(t, line.CostStamped)
		assert.True(t, line.StockDepleted)
		assert.True(t, line.UnitCost.Equal(decimal.RequireFromString("5.6667")))

		err = repo.UpdateLineCosts(ctx, uuid.New(), []trade.LineCost{{LineID: order.Lines[0].ID}})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormFinanceRepositories(t *testing.T) {
	ctx := context.Background()
	storeID := uuid.New()

	t.Run("invoice lines filter by date and kind", func(t *testing.T) {
		repo := NewGormInvoiceRepository(setupTestDB(t))
		orderID := uuid.New()
		lines := []finance.InvoiceLine{
			{ID: uuid.New(), StoreID: storeID, Kind: finance.InvoiceKindCargo, Amount: decimal.NewFromInt(30), OrderID: &orderID, InvoiceDate: day(25)},
			{ID: uuid.New(), StoreID: storeID, Kind: finance.InvoiceKindDeduction, Amount: decimal.NewFromInt(12), InvoiceDate: day(3)},
			{ID: uuid.New(), StoreID: storeID, Kind: finance.InvoiceKindCommission, Amount: decimal.NewFromInt(7), InvoiceDate: day(4)},
		}
		for i := range lines {
			require.NoError(t, repo.Create(ctx, &lines[i]))
		}

		inRange, err := repo.FindByDateRange(ctx, storeID, shared.DateRange{Start: day(1), End: day(10)}, finance.InvoiceKindDeduction)
		require.NoError(t, err)
		require.Len(t, inRange, 1)
		assert.Equal(t, finance.InvoiceKindDeduction, inRange[0].Kind)

		byOrder, err := repo.FindByOrders(ctx, storeID, finance.InvoiceKindCargo, []uuid.UUID{orderID})
		require.NoError(t, err)
		require.Len(t, byOrder, 1)
		assert.True(t, byOrder[0].Amount.Equal(decimal.NewFromInt(30)))
	})

	t.Run("CreateBatch writes all lines or none", func(t *testing.T) {
		repo := NewGormInvoiceRepository(setupTestDB(t))
		line := func() *finance.InvoiceLine {
			return &finance.InvoiceLine{ID: uuid.New(), StoreID: storeID, Kind: finance.InvoiceKindDeduction, Amount: decimal.NewFromInt(1), InvoiceDate: day(5)}
		}
		dup := line()
		require.Error(t, repo.CreateBatch(ctx, []*finance.InvoiceLine{line(), dup, dup}))

		found, err := repo.FindByKind(ctx, storeID, finance.InvoiceKindDeduction)
		require.NoError(t, err)
		assert.Empty(t, found)

		require.NoError(t, repo.CreateBatch(ctx, []*finance.InvoiceLine{line(), line()}))
		found, err = repo.FindByKind(ctx, storeID, finance.InvoiceKindDeduction)
		require.NoError(t, err)
		assert.Len(t, found, 2)

		assert.NoError(t, repo.CreateBatch(ctx, nil))
	})

	t.Run("product references upsert by store and barcode", func(t *testing.T) {
		repo := NewGormProductReferenceRepository(setupTestDB(t))
		first := decimal.NewFromInt(18)
		second := decimal.NewFromInt(21)

		require.NoError(t, repo.Upsert(ctx, []finance.ProductReference{{StoreID: storeID, Barcode: "B1", CommissionRate: &first, UpdatedAt: day(1)}}))
		require.NoError(t, repo.Upsert(ctx, []finance.ProductReference{{StoreID: storeID, Barcode: "B1", CommissionRate: &second, UpdatedAt: day(2)}}))

		refs, err := repo.FindByStore(ctx, storeID)
		require.NoError(t, err)
		require.Len(t, refs, 1)
		require.NotNil(t, refs[0].CommissionRate)
		assert.True(t, refs[0].CommissionRate.Equal(second))
	})

	t.Run("ad metrics match overlapping periods", func(t *testing.T) {
		repo := NewGormAdMetricRepository(setupTestDB(t))
		metric := finance.AdMetric{ID: uuid.New(), StoreID: storeID, Barcode: "B1", PeriodStart: day(5), PeriodEnd: day(15)}
		require.NoError(t, repo.Save(ctx, &metric))

		found, err := repo.FindOverlapping(ctx, storeID, shared.DateRange{Start: day(10), End: day(20)})
		require.NoError(t, err)
		assert.Len(t, found, 1)

		found, err = repo.FindOverlapping(ctx, storeID, shared.DateRange{Start: day(16), End: day(20)})
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("unknown store maps to STORE_NOT_FOUND", func(t *testing.T) {
		repo := NewGormStoreRepository(setupTestDB(t))
		store, err := seller.NewStore("Main", "Europe/Istanbul")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, store))

		found, err := repo.FindByID(ctx, store.ID)
		require.NoError(t, err)
		assert.Equal(t, "Main", found.Name)

		_, err = repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrStoreNotFound)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, store.ID, all[0].ID)
	})
}

func TestGormTransactionScope_RollsBack(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	scope := NewGormTransactionScope(db)
	storeID := uuid.New()
	lot := newTestLot(t, storeID, "B1", 1, day(1), 10)

	err := scope.Execute(ctx, func(repos appcosting.TransactionalRepositories) error {
		require.NoError(t, repos.LotRepo().Create(ctx, lot))
		return shared.ErrConcurrencyConflict
	})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	_, err = NewGormCostLotRepository(db).FindByID(ctx, storeID, lot.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
