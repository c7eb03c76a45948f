package report

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodSnapshot is the aggregated P&L of one store over an inclusive date range.
// It is computed on demand and never persisted.
type PeriodSnapshot struct {
	StoreID uuid.UUID `json:"store_id"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Label   string    `json:"label,omitempty"`
	Barcode string    `json:"barcode,omitempty"`

	Revenue          decimal.Decimal `json:"revenue"`
	SellerDiscount   decimal.Decimal `json:"seller_discount"`
	PlatformDiscount decimal.Decimal `json:"platform_discount"`
	CouponDiscount   decimal.Decimal `json:"coupon_discount"`
	TotalDiscounts   decimal.Decimal `json:"total_discounts"`
	NetRevenue       decimal.Decimal `json:"net_revenue"` // Revenue - TotalDiscounts

	ProductCost decimal.Decimal `json:"product_cost"`
	GrossProfit decimal.Decimal `json:"gross_profit"` // Revenue - ProductCost

	Commission         decimal.Decimal            `json:"commission"`
	Shipping           decimal.Decimal            `json:"shipping"`
	ReturnCost         decimal.Decimal            `json:"return_cost"`
	PlatformFees       decimal.Decimal            `json:"platform_fees"`
	Fees               FeeBreakdown               `json:"fees"`
	InvoicedDeductions decimal.Decimal            `json:"invoiced_deductions"`
	AdvertisingCost    decimal.Decimal            `json:"advertising_cost"`
	Expenses           decimal.Decimal            `json:"expenses"`
	ExpensesByCategory map[string]decimal.Decimal `json:"expenses_by_category"`

	NetProfit    decimal.Decimal `json:"net_profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"` // GrossProfit / Revenue * 100
	ROI          decimal.Decimal `json:"roi"`           // NetProfit / ProductCost * 100

	OrderCount  int             `json:"order_count"`
	UnitsSold   decimal.Decimal `json:"units_sold"`
	ReturnCount int             `json:"return_count"`

	// Data quality
	MissingCostLines       int            `json:"missing_cost_lines"`
	StockDepletedBarcodes  []string       `json:"stock_depleted_barcodes"`
	UnsettledOrders        int            `json:"unsettled_orders"`
	SkippedLines           int            `json:"skipped_lines"`
	CommissionFromInvoices bool           `json:"commission_from_invoices"`
	ShippingEstimated      bool           `json:"shipping_estimated"`
	CommissionSources      map[Source]int `json:"commission_sources"`
	ShippingSources        map[Source]int `json:"shipping_sources"`
}

// NewPeriodSnapshot creates an empty snapshot for the range
func NewPeriodSnapshot(storeID uuid.UUID, start, end time.Time) *PeriodSnapshot {
	return &PeriodSnapshot{
		StoreID:               storeID,
		Start:                 start,
		End:                   end,
		ExpensesByCategory:    make(map[string]decimal.Decimal),
		StockDepletedBarcodes: []string{},
		CommissionSources:     make(map[Source]int),
		ShippingSources:       make(map[Source]int),
	}
}

// Finalize derives the dependent figures from the additive ones
func (s *PeriodSnapshot) Finalize() {
	s.TotalDiscounts = s.SellerDiscount.Add(s.PlatformDiscount).Add(s.CouponDiscount)
	s.NetRevenue = s.Revenue.Sub(s.TotalDiscounts)
	s.GrossProfit = s.Revenue.Sub(s.ProductCost)
	s.NetProfit = s.GrossProfit.
		Sub(s.Commission).
		Sub(s.PlatformFees).
		Sub(s.ReturnCost).
		Sub(s.Expenses).
		Sub(s.Shipping).
		Sub(s.InvoicedDeductions).
		Sub(s.AdvertisingCost)
	s.ProfitMargin = Percent(s.GrossProfit, s.Revenue)
	s.ROI = Percent(s.NetProfit, s.ProductCost)
}

// Accumulate adds the additive fields of other into s. Call Finalize afterwards.
func (s *PeriodSnapshot) Accumulate(other *PeriodSnapshot) {
	s.Revenue = s.Revenue.Add(other.Revenue)
	s.SellerDiscount = s.SellerDiscount.Add(other.SellerDiscount)
	s.PlatformDiscount = s.PlatformDiscount.Add(other.PlatformDiscount)
	s.CouponDiscount = s.CouponDiscount.Add(other.CouponDiscount)
	s.ProductCost = s.ProductCost.Add(other.ProductCost)
	s.Commission = s.Commission.Add(other.Commission)
	s.Shipping = s.Shipping.Add(other.Shipping)
	s.ReturnCost = s.ReturnCost.Add(other.ReturnCost)
	s.PlatformFees = s.PlatformFees.Add(other.PlatformFees)
	s.Fees = s.Fees.Plus(other.Fees)
	s.InvoicedDeductions = s.InvoicedDeductions.Add(other.InvoicedDeductions)
	s.AdvertisingCost = s.AdvertisingCost.Add(other.AdvertisingCost)
	s.Expenses = s.Expenses.Add(other.Expenses)
	for k, v := range other.ExpensesByCategory {
		s.ExpensesByCategory[k] = s.ExpensesByCategory[k].Add(v)
	}

	s.OrderCount += other.OrderCount
	s.UnitsSold = s.UnitsSold.Add(other.UnitsSold)
	s.ReturnCount += other.ReturnCount
	s.MissingCostLines += other.MissingCostLines
	s.UnsettledOrders += other.UnsettledOrders
	s.SkippedLines += other.SkippedLines
	s.CommissionFromInvoices = s.CommissionFromInvoices || other.CommissionFromInvoices
	s.ShippingEstimated = s.ShippingEstimated || other.ShippingEstimated
	for k, v := range other.CommissionSources {
		s.CommissionSources[k] += v
	}
	for k, v := range other.ShippingSources {
		s.ShippingSources[k] += v
	}
	s.StockDepletedBarcodes = mergeSorted(s.StockDepletedBarcodes, other.StockDepletedBarcodes)
}

func mergeSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}

// ProductProfit is the P&L of one product inside a period
type ProductProfit struct {
	Barcode            string          `json:"barcode"`
	UnitsSold          decimal.Decimal `json:"units_sold"`
	Revenue            decimal.Decimal `json:"revenue"`
	RevenueShare       decimal.Decimal `json:"revenue_share"`
	ProductCost        decimal.Decimal `json:"product_cost"`
	GrossProfit        decimal.Decimal `json:"gross_profit"`
	Commission         decimal.Decimal `json:"commission"`
	Shipping           decimal.Decimal `json:"shipping"`
	PlatformFees       decimal.Decimal `json:"platform_fees"`
	Expenses           decimal.Decimal `json:"expenses"`
	InvoicedDeductions decimal.Decimal `json:"invoiced_deductions"`
	AdvertisingCost    decimal.Decimal `json:"advertising_cost"`
	NetProfit          decimal.Decimal `json:"net_profit"`
	ProfitMargin       decimal.Decimal `json:"profit_margin"`
	StockDepleted      bool            `json:"stock_depleted"`
	MissingCost        bool            `json:"missing_cost"`
}

// Finalize derives gross and net profit
func (p *ProductProfit) Finalize() {
	p.GrossProfit = p.Revenue.Sub(p.ProductCost)
	p.NetProfit = p.GrossProfit.
		Sub(p.Commission).
		Sub(p.Shipping).
		Sub(p.PlatformFees).
		Sub(p.Expenses).
		Sub(p.InvoicedDeductions).
		Sub(p.AdvertisingCost)
	p.ProfitMargin = Percent(p.GrossProfit, p.Revenue)
}
