package costing_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/infrastructure/strategy/cost"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testStore = uuid.MustParse("6f1c2b7e-0000-4000-8000-000000000001")

const testBarcode = "8690000000017"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newLot(t *testing.T, seq int64, qty, unitCost string, receipt time.Time) *costing.CostLot {
	t.Helper()
	lot, err := costing.NewCostLot(costing.ReceiveLotInput{
		StoreID:     testStore,
		Barcode:     testBarcode,
		Quantity:    dec(qty),
		UnitCost:    dec(unitCost),
		VATRate:     dec("20"),
		ReceiptDate: receipt,
		Source:      costing.LotSourcePurchaseOrder,
		Seq:         seq,
	})
	require.NoError(t, err)
	return lot
}

func newSale(qty string, at time.Time) costing.Sale {
	return costing.Sale{
		OrderID:   uuid.New(),
		LineID:    uuid.New(),
		OrderDate: at,
		Quantity:  dec(qty),
	}
}

func newAllocator() *costing.Allocator {
	return costing.NewAllocator(cost.NewFIFOCostStrategy())
}
