package finance

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductReference holds last-known rates for a product, used when settled data is missing
type ProductReference struct {
	StoreID             uuid.UUID
	Barcode             string
	CommissionRate      *decimal.Decimal // percent
	ShippingCostPerUnit *decimal.Decimal
	UpdatedAt           time.Time
}

// AdMetric holds advertising performance of a product over a period
type AdMetric struct {
	ID             uuid.UUID
	StoreID        uuid.UUID
	Barcode        string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	CostPerClick   decimal.Decimal
	ConversionRate decimal.Decimal // fraction, 0.02 = 2%
}

// CostPerSale returns CostPerClick / ConversionRate, zero when the rate is not positive
func (m *AdMetric) CostPerSale() decimal.Decimal {
	if !m.ConversionRate.IsPositive() {
		return decimal.Zero
	}
	return m.CostPerClick.Div(m.ConversionRate)
}

// LatestAdMetrics keeps the most recent metric per barcode
func LatestAdMetrics(metrics []AdMetric) map[string]AdMetric {
	out := make(map[string]AdMetric, len(metrics))
	for _, m := range metrics {
		if cur, ok := out[m.Barcode]; !ok || m.PeriodStart.After(cur.PeriodStart) {
			out[m.Barcode] = m
		}
	}
	return out
}

// ReferenceBuilder derives product references from invoices.
// Units maps order ID to units sold per barcode.
type ReferenceBuilder struct {
	StoreID uuid.UUID
	Units   map[uuid.UUID]map[string]decimal.Decimal
	Now     time.Time
}

// Build returns one reference per barcode seen in the invoices. The latest
// commission line with a rate wins; shipping per unit comes from the latest
// outbound cargo charge split over the units it covered.
func (b ReferenceBuilder) Build(commissions, cargo []InvoiceLine) []ProductReference {
	refs := make(map[string]*ProductReference)
	get := func(barcode string) *ProductReference {
		r, ok := refs[barcode]
		if !ok {
			r = &ProductReference{StoreID: b.StoreID, Barcode: barcode, UpdatedAt: b.Now}
			refs[barcode] = r
		}
		return r
	}

	byDate := func(lines []InvoiceLine) []InvoiceLine {
		sorted := append([]InvoiceLine(nil), lines...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].InvoiceDate.Before(sorted[j].InvoiceDate)
		})
		return sorted
	}

	for _, l := range byDate(commissions) {
		if l.Kind != InvoiceKindCommission || l.CommissionRate == nil || l.Barcode == "" {
			continue
		}
		rate := *l.CommissionRate
		get(l.Barcode).CommissionRate = &rate
	}

	for _, l := range byDate(cargo) {
		if !l.IsOutboundCargo() || l.OrderID == nil {
			continue
		}
		units := b.Units[*l.OrderID]
		if len(units) == 0 {
			continue
		}
		total := decimal.Zero
		for barcode, qty := range units {
			if l.Barcode == "" || l.Barcode == barcode {
				total = total.Add(qty)
			}
		}
		if !total.IsPositive() {
			continue
		}
		perUnit := l.Amount.Div(total).Round(4)
		for barcode := range units {
			if l.Barcode == "" || l.Barcode == barcode {
				v := perUnit
				get(barcode).ShippingCostPerUnit = &v
			}
		}
	}

	out := make([]ProductReference, 0, len(refs))
	for _, r := range refs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Barcode < out[j].Barcode })
	return out
}
