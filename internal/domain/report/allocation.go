package report

import (
	"context"
	"sort"

	"github.com/sellerpnl/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// Distributor breaks a period snapshot down per product, allocating period-level
// costs by revenue share
type Distributor struct {
	allocation strategy.CostAllocationStrategy
}

// NewDistributor creates a distributor using the given allocation strategy
func NewDistributor(allocation strategy.CostAllocationStrategy) *Distributor {
	return &Distributor{allocation: allocation}
}

// Breakdown returns one row per product, highest revenue first. Fees, expenses and
// invoiced deductions are allocated by revenue; commission is allocated by each
// product's line-level commission so invoiced totals reconcile with the snapshot.
func (d *Distributor) Breakdown(ctx context.Context, snapshot *PeriodSnapshot, lines []LineFigure, advertising map[string]decimal.Decimal) ([]ProductProfit, error) {
	rows := make(map[string]*ProductProfit)
	for _, f := range lines {
		p, ok := rows[f.Barcode]
		if !ok {
			p = &ProductProfit{Barcode: f.Barcode}
			rows[f.Barcode] = p
		}
		p.UnitsSold = p.UnitsSold.Add(f.Units)
		p.Revenue = p.Revenue.Add(f.Revenue)
		p.ProductCost = p.ProductCost.Add(f.Cost)
		p.Commission = p.Commission.Add(f.Commission)
		p.Shipping = p.Shipping.Add(f.Shipping)
		p.MissingCost = p.MissingCost || f.MissingCost
		p.StockDepleted = p.StockDepleted || f.StockDepleted
	}
	if len(rows) == 0 {
		return []ProductProfit{}, nil
	}

	revenueBasis := make([]strategy.AllocationTarget, 0, len(rows))
	commissionBasis := make([]strategy.AllocationTarget, 0, len(rows))
	totalRevenue := decimal.Zero
	lineCommission := decimal.Zero
	for barcode, p := range rows {
		revenueBasis = append(revenueBasis, strategy.AllocationTarget{Key: barcode, Basis: nonNegative(p.Revenue)})
		commissionBasis = append(commissionBasis, strategy.AllocationTarget{Key: barcode, Basis: nonNegative(p.Commission)})
		totalRevenue = totalRevenue.Add(p.Revenue)
		lineCommission = lineCommission.Add(p.Commission)
	}
	sortTargets(revenueBasis)
	sortTargets(commissionBasis)

	fees, err := d.allocate(ctx, snapshot.PlatformFees, revenueBasis)
	if err != nil {
		return nil, err
	}
	expenses, err := d.allocate(ctx, snapshot.Expenses, revenueBasis)
	if err != nil {
		return nil, err
	}
	deductions, err := d.allocate(ctx, snapshot.InvoicedDeductions, revenueBasis)
	if err != nil {
		return nil, err
	}
	var commission map[string]strategy.Allocation
	if snapshot.CommissionFromInvoices {
		basis := commissionBasis
		if !lineCommission.IsPositive() {
			basis = revenueBasis
		}
		if commission, err = d.allocate(ctx, snapshot.Commission, basis); err != nil {
			return nil, err
		}
	}

	out := make([]ProductProfit, 0, len(rows))
	for barcode, p := range rows {
		p.RevenueShare = Share(p.Revenue, totalRevenue)
		p.PlatformFees = fees[barcode].AllocatedAmount
		p.Expenses = expenses[barcode].AllocatedAmount
		p.InvoicedDeductions = deductions[barcode].AllocatedAmount
		if commission != nil {
			p.Commission = commission[barcode].AllocatedAmount
		}
		p.AdvertisingCost = advertising[barcode]
		p.Finalize()
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].Barcode < out[j].Barcode
	})
	return out, nil
}

func (d *Distributor) allocate(ctx context.Context, amount decimal.Decimal, targets []strategy.AllocationTarget) (map[string]strategy.Allocation, error) {
	result, err := d.allocation.Allocate(ctx, strategy.AllocationContext{Amount: amount, Places: MoneyPlaces}, targets)
	if err != nil {
		return nil, err
	}
	return result.ByKey(), nil
}

func nonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// stable key order so residue ties always land on the same product
func sortTargets(targets []strategy.AllocationTarget) {
	sort.Slice(targets, func(i, j int) bool { return targets[i].Key < targets[j].Key })
}
