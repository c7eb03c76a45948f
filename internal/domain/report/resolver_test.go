package report

import (
	"testing"

	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/sellerpnl/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFirstPresent(t *testing.T) {
	absent := Strategy[int]{Source: SourceSettled, Resolve: func(int) (decimal.Decimal, bool) { return decimal.Zero, false }}
	present := Strategy[int]{Source: SourceReference, Resolve: func(v int) (decimal.Decimal, bool) { return decimal.NewFromInt(int64(v)), true }}
	later := Strategy[int]{Source: SourceEstimated, Resolve: func(int) (decimal.Decimal, bool) { return decimal.NewFromInt(99), true }}

	r := FirstPresent(7, absent, present, later)
	assert.Equal(t, SourceReference, r.Source)
	assert.True(t, decimal.NewFromInt(7).Equal(r.Value))

	r = FirstPresent(7, absent)
	assert.Equal(t, SourceNone, r.Source)
	assert.True(t, r.Value.IsZero())
}

func TestResolveCommission(t *testing.T) {
	line := func() *trade.OrderLine {
		return &trade.OrderLine{Barcode: "A", Quantity: d("2"), UnitPrice: d("50")}
	}
	rate := &finance.ProductReference{Barcode: "A", CommissionRate: dp("15")}

	tests := []struct {
		name   string
		in     LineInput
		want   string
		source Source
	}{
		{
			name:   "settled actual",
			in:     LineInput{Order: &trade.Order{Settled: true}, Line: withActual(line(), "11"), Reference: rate},
			want:   "11",
			source: SourceSettled,
		},
		{
			name:   "unsettled uses reference rate",
			in:     LineInput{Order: &trade.Order{}, Line: withActual(line(), "11"), Reference: rate},
			want:   "15",
			source: SourceReference,
		},
		{
			name:   "estimate without reference",
			in:     LineInput{Order: &trade.Order{}, Line: withEstimate(line(), "9")},
			want:   "9",
			source: SourceEstimated,
		},
		{
			name:   "nothing known",
			in:     LineInput{Order: &trade.Order{}, Line: line()},
			want:   "0",
			source: SourceNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCommission(tt.in)
			assert.Equal(t, tt.source, got.Source)
			assert.True(t, d(tt.want).Equal(got.Value), got.Value.String())
		})
	}
}

func TestResolveShipping(t *testing.T) {
	order := &trade.Order{Lines: []trade.OrderLine{
		{Barcode: "A", Quantity: d("3"), UnitPrice: d("10")},
		{Barcode: "B", Quantity: d("1"), UnitPrice: d("10")},
	}}
	in := LineInput{
		Order:         order,
		Line:          &order.Lines[0],
		Reference:     &finance.ProductReference{Barcode: "A", ShippingCostPerUnit: dp("4")},
		OutboundCargo: dp("20"),
	}

	settled := ResolveShipping(in, true)
	assert.Equal(t, SourceSettled, settled.Source)
	assert.True(t, d("15").Equal(settled.Value))

	young := ResolveShipping(in, false)
	assert.Equal(t, SourceReference, young.Source)
	assert.True(t, d("12").Equal(young.Value))

	in.Reference = nil
	assert.Equal(t, SourceNone, ResolveShipping(in, false).Source)
}

func TestResolveShipping_OrderEstimate(t *testing.T) {
	order := &trade.Order{
		EstimatedShippingCost: dp("30"),
		Lines: []trade.OrderLine{
			{Barcode: "A", Quantity: d("2"), UnitPrice: d("10")},
			{Barcode: "B", Quantity: d("1"), UnitPrice: d("10")},
		},
	}
	in := LineInput{Order: order, Line: &order.Lines[0]}

	for _, complete := range []bool{false, true} {
		got := ResolveShipping(in, complete)
		assert.Equal(t, SourceEstimated, got.Source)
		assert.True(t, d("20").Equal(got.Value), got.Value.String())
	}

	// the estimate outranks the reference, the invoice outranks both
	in.Reference = &finance.ProductReference{Barcode: "A", ShippingCostPerUnit: dp("4")}
	assert.Equal(t, SourceEstimated, ResolveShipping(in, false).Source)
	in.OutboundCargo = dp("9")
	settled := ResolveShipping(in, true)
	assert.Equal(t, SourceSettled, settled.Source)
	assert.True(t, d("6").Equal(settled.Value))
}

func withActual(l *trade.OrderLine, v string) *trade.OrderLine {
	l.ActualCommission = dp(v)
	return l
}

func withEstimate(l *trade.OrderLine, v string) *trade.OrderLine {
	l.EstimatedCommission = dp(v)
	return l
}
