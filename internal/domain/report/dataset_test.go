package report

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stampedLine(barcode, qty, price, unitCost string) trade.OrderLine {
	return trade.OrderLine{
		ID:          uuid.New(),
		Barcode:     barcode,
		Quantity:    d(qty),
		UnitPrice:   d(price),
		UnitCost:    d(unitCost),
		CostStamped: true,
	}
}

func testDataset(t *testing.T) *Dataset {
	t.Helper()
	period, err := DayRange(day(2024, 1, 1), day(2024, 1, 31), time.UTC)
	require.NoError(t, err)

	o1 := &trade.Order{TotalPrice: d("300"), Settled: true, SellerDiscount: d("20")}
	o1.ID = uuid.New()
	o1.Lines = []trade.OrderLine{stampedLine("A", "2", "100", "40"), stampedLine("B", "1", "100", "30")}
	o1.Lines[0].ActualCommission = dp("30")
	o1.Lines[1].ActualCommission = dp("15")

	o2 := &trade.Order{TotalPrice: d("100")}
	o2.ID = uuid.New()
	broken := stampedLine("B", "1", "1", "1")
	broken.Quantity = d("-1")
	o2.Lines = []trade.OrderLine{stampedLine("B", "1", "100", "30"), broken}
	o2.Lines[0].EstimatedCommission = dp("12")
	o2.Lines[0].StockDepleted = true

	expense, err := finance.NewExpenseDefinition(uuid.New(), "rent", d("100"), finance.ExpenseFrequencyMonthly, "rent", day(2023, 6, 1))
	require.NoError(t, err)

	return &Dataset{
		StoreID:               uuid.New(),
		Period:                period,
		Location:              time.UTC,
		CargoInvoicesComplete: true,
		Orders:                []*trade.Order{o1, o2},
		DeductionInvoices: []finance.InvoiceLine{
			{Kind: finance.InvoiceKindDeduction, TransactionType: "Platform Service Fee", Amount: d("40")},
			{Kind: finance.InvoiceKindDeduction, TransactionType: "Penalty", Amount: d("20")},
		},
		Cargo: []finance.InvoiceLine{
			{Kind: finance.InvoiceKindCargo, OrderID: &o1.ID, Amount: d("30")},
		},
		Expenses: []finance.ExpenseDefinition{*expense},
		References: map[string]finance.ProductReference{
			"B": {Barcode: "B", ShippingCostPerUnit: dp("5")},
		},
	}
}

func TestDataset_Snapshot(t *testing.T) {
	ds := testDataset(t)
	s := ds.Assemble(ds.Compute())

	assert.True(t, d("400").Equal(s.Revenue))
	assert.True(t, d("140").Equal(s.ProductCost))
	assert.True(t, d("57").Equal(s.Commission))
	assert.False(t, s.CommissionFromInvoices)
	// 30 invoiced for o1 + 5 reference for o2
	assert.True(t, d("35").Equal(s.Shipping))
	assert.True(t, d("40").Equal(s.PlatformFees))
	assert.True(t, d("20").Equal(s.InvoicedDeductions))
	assert.True(t, d("100").Equal(s.Expenses))
	assert.True(t, d("100").Equal(s.ExpensesByCategory["rent"]))
	assert.True(t, d("20").Equal(s.TotalDiscounts))
	assert.True(t, d("380").Equal(s.NetRevenue))

	// 260 - 57 - 40 - 100 - 35 - 20
	assert.True(t, d("8").Equal(s.NetProfit), s.NetProfit.String())

	assert.Equal(t, 1, s.SkippedLines)
	assert.Equal(t, 2, s.OrderCount)
	assert.Equal(t, 1, s.UnsettledOrders)
	assert.Equal(t, []string{"B"}, s.StockDepletedBarcodes)
	assert.Equal(t, 2, s.CommissionSources[SourceSettled])
	assert.Equal(t, 1, s.CommissionSources[SourceEstimated])
	assert.Equal(t, 2, s.ShippingSources[SourceSettled])
	assert.Equal(t, 1, s.ShippingSources[SourceReference])
}

func TestDataset_SnapshotForBarcode(t *testing.T) {
	ds := testDataset(t)
	ds.Barcode = "A"
	s := ds.Assemble(ds.Compute())

	// A is 200 of the 400 period revenue
	assert.True(t, d("200").Equal(s.Revenue))
	assert.True(t, d("80").Equal(s.ProductCost))
	assert.True(t, d("20").Equal(s.PlatformFees))
	assert.True(t, d("10").Equal(s.InvoicedDeductions))
	assert.True(t, d("50").Equal(s.Expenses))
	assert.True(t, d("20").Equal(s.Shipping))
	// seller discount pro-rated by A's share of o1's gross
	assert.True(t, d("13.3333333333333333").Sub(s.SellerDiscount).Abs().LessThan(d("0.0001")))
	assert.Equal(t, 0, s.SkippedLines)
}

func TestDataset_InvoiceCommissionPreferred(t *testing.T) {
	ds := testDataset(t)
	ds.CommissionInvoices = []finance.InvoiceLine{
		{Kind: finance.InvoiceKindCommission, Barcode: "A", Amount: d("25")},
		{Kind: finance.InvoiceKindCommission, Barcode: "B", Amount: d("35")},
	}
	s := ds.Assemble(ds.Compute())
	assert.True(t, s.CommissionFromInvoices)
	assert.True(t, d("60").Equal(s.Commission))
}

func TestDataset_YoungPeriodEstimatesShipping(t *testing.T) {
	ds := testDataset(t)
	ds.CargoInvoicesComplete = false
	s := ds.Assemble(ds.Compute())

	assert.True(t, s.ShippingEstimated)
	// only B has a reference; o1's invoice is ignored
	assert.True(t, d("10").Equal(s.Shipping))
}

func TestDataset_OrderShippingEstimate(t *testing.T) {
	for _, complete := range []bool{false, true} {
		ds := testDataset(t)
		ds.CargoInvoicesComplete = complete
		ds.Cargo = nil
		ds.References = nil
		o := &trade.Order{TotalPrice: d("50"), EstimatedShippingCost: dp("30")}
		o.ID = uuid.New()
		o.Lines = []trade.OrderLine{stampedLine("A", "1", "50", "20")}
		ds.Orders = []*trade.Order{o}

		s := ds.Assemble(ds.Compute())
		assert.True(t, d("30").Equal(s.Shipping), "complete=%v shipping=%s", complete, s.Shipping)
		assert.Equal(t, 1, s.ShippingSources[SourceEstimated])
	}
}

func TestDataset_Advertising(t *testing.T) {
	ds := testDataset(t)
	ds.AdMetrics = map[string]finance.AdMetric{
		"A": {Barcode: "A", CostPerClick: d("0.5"), ConversionRate: d("0.05")},
		"B": {Barcode: "B", CostPerClick: d("1"), ConversionRate: d("0")},
	}
	ds.DeductionInvoices = append(ds.DeductionInvoices, finance.InvoiceLine{
		Kind: finance.InvoiceKindDeduction, TransactionType: "Advertising Fee", Amount: d("99"),
	})
	s := ds.Assemble(ds.Compute())

	// 0.5 / 0.05 × 2 units
	assert.True(t, d("20").Equal(s.AdvertisingCost))
	// invoiced advertising is not counted twice
	assert.True(t, d("20").Equal(s.InvoicedDeductions))
}
