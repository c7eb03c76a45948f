package report

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// Dataset is everything loaded for one store and period. The calculations on it
// are read-only and may run concurrently.
type Dataset struct {
	StoreID  uuid.UUID
	Period   shared.DateRange
	Location *time.Location
	Barcode  string // optional product filter

	// CargoInvoicesComplete is false while the period is too recent for cargo invoices to have arrived
	CargoInvoicesComplete bool

	Orders             []*trade.Order // revenue orders dated in the period
	Returns            []trade.ReturnClaim
	ReturnOrders       map[uuid.UUID]*trade.Order
	CommissionInvoices []finance.InvoiceLine
	DeductionInvoices  []finance.InvoiceLine
	Cargo              []finance.InvoiceLine // cargo lines of period and returned orders
	Expenses           []finance.ExpenseDefinition
	References         map[string]finance.ProductReference
	AdMetrics          map[string]finance.AdMetric
	LastLotCost        map[string]decimal.Decimal
}

// LineFigure is the resolved P&L of one order line
type LineFigure struct {
	OrderID          uuid.UUID
	LineID           uuid.UUID
	Barcode          string
	Units            decimal.Decimal
	Revenue          decimal.Decimal
	Cost             decimal.Decimal
	Commission       decimal.Decimal
	CommissionSource Source
	Shipping         decimal.Decimal
	ShippingSource   Source
	MissingCost      bool
	StockDepleted    bool
}

// Discounts are the order-level discount sums
type Discounts struct {
	Seller   decimal.Decimal
	Platform decimal.Decimal
	Coupon   decimal.Decimal
}

// Parts are the independent sub-computations of a snapshot
type Parts struct {
	Lines             []LineFigure
	SkippedLines      int
	InvoiceCommission decimal.Decimal
	Returns           []ReturnCost
	Fees              FeeBreakdown
	Discounts         Discounts
	Expenses          ExpenseTotals
}

func (d *Dataset) matches(barcode string) bool {
	return d.Barcode == "" || d.Barcode == barcode
}

func (d *Dataset) reference(barcode string) *finance.ProductReference {
	if ref, ok := d.References[barcode]; ok {
		return &ref
	}
	return nil
}

// TotalRevenue is the revenue of every order in the period, ignoring the product filter
func (d *Dataset) TotalRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, o := range d.Orders {
		total = total.Add(o.TotalPrice)
	}
	return total
}

// LineFigures resolves revenue, cost, commission and shipping for every valid line.
// Malformed lines are skipped and counted.
func (d *Dataset) LineFigures() ([]LineFigure, int) {
	outbound, _ := finance.CargoByOrder(d.Cargo)
	var figures []LineFigure
	skipped := 0
	for _, o := range d.Orders {
		var cargo *decimal.Decimal
		if v, ok := outbound[o.ID]; ok {
			cargo = &v
		}
		for i := range o.Lines {
			line := &o.Lines[i]
			if !d.matches(line.Barcode) {
				continue
			}
			if err := line.Validate(); err != nil {
				skipped++
				continue
			}
			in := LineInput{Order: o, Line: line, Reference: d.reference(line.Barcode), OutboundCargo: cargo}
			commission := ResolveCommission(in)
			shipping := ResolveShipping(in, d.CargoInvoicesComplete)

			f := LineFigure{
				OrderID:          o.ID,
				LineID:           line.ID,
				Barcode:          line.Barcode,
				Units:            line.Quantity,
				Revenue:          o.LineRevenue(line),
				Cost:             decimal.Zero,
				Commission:       commission.Value,
				CommissionSource: commission.Source,
				Shipping:         shipping.Value,
				ShippingSource:   shipping.Source,
				MissingCost:      line.MissingCost || !line.CostStamped,
				StockDepleted:    line.StockDepleted,
			}
			if line.CostStamped {
				f.Cost = line.TotalCost()
			}
			figures = append(figures, f)
		}
	}
	return figures, skipped
}

// InvoiceCommission sums commission invoices of the period, restricted to the product filter
func (d *Dataset) InvoiceCommission() decimal.Decimal {
	total := decimal.Zero
	for i := range d.CommissionInvoices {
		l := &d.CommissionInvoices[i]
		if l.Kind != finance.InvoiceKindCommission || !d.matches(l.Barcode) {
			continue
		}
		total = total.Add(l.Amount)
	}
	return total
}

// ReturnCosts books every return claim of the period
func (d *Dataset) ReturnCosts() []ReturnCost {
	outbound, inbound := finance.CargoByOrder(d.Cargo)
	claims := make([]trade.ReturnClaim, 0, len(d.Returns))
	for _, c := range d.Returns {
		if d.matches(c.Barcode) {
			claims = append(claims, c)
		}
	}
	return EstimateReturns(claims, func(c trade.ReturnClaim) ReturnInput {
		in := ReturnInput{Claim: c, Order: d.ReturnOrders[c.OrderID], Reference: d.reference(c.Barcode)}
		if v, ok := d.LastLotCost[c.Barcode]; ok {
			in.LastLotCost = &v
		}
		if v, ok := outbound[c.OrderID]; ok {
			in.OutboundCargo = &v
		}
		if v, ok := inbound[c.OrderID]; ok {
			in.ReturnCargo = &v
		}
		return in
	})
}

// Fees categorizes the period's deduction invoices
func (d *Dataset) Fees() FeeBreakdown {
	return SummarizeDeductions(d.DeductionInvoices)
}

// DiscountTotals sums order discounts. Under a product filter each order's
// discounts are pro-rated by the product's share of the order's gross amount.
func (d *Dataset) DiscountTotals() Discounts {
	out := Discounts{Seller: decimal.Zero, Platform: decimal.Zero, Coupon: decimal.Zero}
	for _, o := range d.Orders {
		factor := decimal.NewFromInt(1)
		if d.Barcode != "" {
			matched := decimal.Zero
			for i := range o.Lines {
				if o.Lines[i].Barcode == d.Barcode && o.Lines[i].Validate() == nil {
					matched = matched.Add(o.Lines[i].GrossAmount())
				}
			}
			factor = Share(matched, o.GrossLineTotal())
		}
		out.Seller = out.Seller.Add(o.SellerDiscount.Mul(factor))
		out.Platform = out.Platform.Add(o.PlatformDiscount.Mul(factor))
		out.Coupon = out.Coupon.Add(o.CouponDiscount.Mul(factor))
	}
	return out
}

// ExpenseTotals sums the period's discretionary expenses
func (d *Dataset) ExpenseTotals() ExpenseTotals {
	return SummarizeExpenses(d.Expenses, d.Period, d.Location)
}

// AdvertisingByProduct costs advertising per product as CostPerClick / ConversionRate × units sold
func (d *Dataset) AdvertisingByProduct(lines []LineFigure) map[string]decimal.Decimal {
	units := make(map[string]decimal.Decimal)
	for _, f := range lines {
		units[f.Barcode] = units[f.Barcode].Add(f.Units)
	}
	out := make(map[string]decimal.Decimal, len(units))
	for barcode, qty := range units {
		m, ok := d.AdMetrics[barcode]
		if !ok {
			continue
		}
		if cost := m.CostPerSale().Mul(qty); cost.IsPositive() {
			out[barcode] = cost
		}
	}
	return out
}

// Compute runs every sub-computation sequentially
func (d *Dataset) Compute() Parts {
	lines, skipped := d.LineFigures()
	return Parts{
		Lines:             lines,
		SkippedLines:      skipped,
		InvoiceCommission: d.InvoiceCommission(),
		Returns:           d.ReturnCosts(),
		Fees:              d.Fees(),
		Discounts:         d.DiscountTotals(),
		Expenses:          d.ExpenseTotals(),
	}
}

// Assemble combines the parts into a finalized snapshot
func (d *Dataset) Assemble(p Parts) *PeriodSnapshot {
	s := NewPeriodSnapshot(d.StoreID, d.Period.Start, d.Period.End)
	s.Barcode = d.Barcode
	s.SkippedLines = p.SkippedLines
	s.ShippingEstimated = !d.CargoInvoicesComplete

	orders := make(map[uuid.UUID]*trade.Order, len(d.Orders))
	for _, o := range d.Orders {
		orders[o.ID] = o
	}

	lineCommission := decimal.Zero
	depleted := make(map[string]struct{})
	counted := make(map[uuid.UUID]struct{})
	filteredRevenue := decimal.Zero
	for _, f := range p.Lines {
		filteredRevenue = filteredRevenue.Add(f.Revenue)
		s.ProductCost = s.ProductCost.Add(f.Cost)
		s.Shipping = s.Shipping.Add(f.Shipping)
		s.UnitsSold = s.UnitsSold.Add(f.Units)
		lineCommission = lineCommission.Add(f.Commission)
		s.CommissionSources[f.CommissionSource]++
		s.ShippingSources[f.ShippingSource]++
		if f.MissingCost {
			s.MissingCostLines++
		}
		if f.StockDepleted {
			depleted[f.Barcode] = struct{}{}
		}
		if _, ok := counted[f.OrderID]; !ok {
			counted[f.OrderID] = struct{}{}
			s.OrderCount++
			if o := orders[f.OrderID]; o != nil && !o.Settled {
				s.UnsettledOrders++
			}
		}
	}
	for b := range depleted {
		s.StockDepletedBarcodes = append(s.StockDepletedBarcodes, b)
	}
	sort.Strings(s.StockDepletedBarcodes)

	// period-level costs are scaled to the product's revenue share under a filter
	factor := decimal.NewFromInt(1)
	if d.Barcode == "" {
		s.Revenue = d.TotalRevenue()
	} else {
		s.Revenue = filteredRevenue
		factor = Share(filteredRevenue, d.TotalRevenue())
	}

	if p.InvoiceCommission.IsZero() {
		s.Commission = lineCommission
	} else {
		s.Commission = p.InvoiceCommission
		s.CommissionFromInvoices = true
	}

	for _, r := range p.Returns {
		s.ReturnCost = s.ReturnCost.Add(r.Total)
	}
	s.ReturnCount = len(p.Returns)

	for _, cost := range d.AdvertisingByProduct(p.Lines) {
		s.AdvertisingCost = s.AdvertisingCost.Add(cost)
	}

	s.Fees = p.Fees.Scale(factor)
	s.PlatformFees = s.Fees.PlatformFees()
	s.InvoicedDeductions = s.Fees.InvoicedDeductions(s.AdvertisingCost.IsPositive())

	s.SellerDiscount = p.Discounts.Seller
	s.PlatformDiscount = p.Discounts.Platform
	s.CouponDiscount = p.Discounts.Coupon

	expenses := p.Expenses.Scale(factor)
	s.Expenses = expenses.Total
	s.ExpensesByCategory = expenses.ByCategory

	s.Finalize()
	return s
}
