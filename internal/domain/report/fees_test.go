package report

import (
	"testing"

	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/stretchr/testify/assert"
)

func TestCategorizeDeduction(t *testing.T) {
	tests := []struct {
		txType      string
		description string
		want        FeeCategory
	}{
		{"Platform Service Fee", "", FeePlatformService},
		{"International Operation Fee", "", FeeInternational},
		{"", "Cross-border shipment surcharge", FeeInternational},
		{"Misc", "Late delivery penalty for order 42", FeePenalty},
		{"Misc", "Sponsored products campaign", FeeAdvertising},
		{"Misc", "Refund of advertising charge", FeeRefundCredit},
		{"Misc", "Storage", FeeOther},
		{"  penalty ", "", FeePenalty},
		{"Misc", "late delivery fine", FeePenalty},
		{"Misc", "Fine: damaged packaging", FeePenalty},
		{"Misc", "Platform fee, predefined package", FeePlatformService},
		{"Misc", "Refinement service charge", FeeOther},
		{"Misc", "Yurt dışı operasyon bedeli", FeeInternational},
	}
	for _, tt := range tests {
		t.Run(tt.txType+"/"+tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeDeduction(tt.txType, tt.description))
		})
	}
}

func TestSummarizeDeductions(t *testing.T) {
	lines := []finance.InvoiceLine{
		{Kind: finance.InvoiceKindDeduction, TransactionType: "Platform Service Fee", Amount: d("200")},
		{Kind: finance.InvoiceKindDeduction, TransactionType: "Advertising Fee", Amount: d("50")},
		{Kind: finance.InvoiceKindDeduction, TransactionType: "Penalty", Amount: d("30")},
		{Kind: finance.InvoiceKindDeduction, TransactionType: "International Service Fee", Amount: d("40")},
		{Kind: finance.InvoiceKindDeduction, TransactionType: "Storage", Amount: d("40")},
		{Kind: finance.InvoiceKindDeduction, TransactionType: "Storage", Amount: d("-10")},
		{Kind: finance.InvoiceKindCargo, Amount: d("999")},
	}

	b := SummarizeDeductions(lines)
	assert.True(t, d("200").Equal(b.PlatformFees()))
	assert.True(t, d("10").Equal(b.RefundCredit))
	// 50 + 30 + 40 + 40 - 10
	assert.True(t, d("150").Equal(b.InvoicedDeductions(false)))
	// advertising costed per product is not counted again
	assert.True(t, d("100").Equal(b.InvoicedDeductions(true)))
}
