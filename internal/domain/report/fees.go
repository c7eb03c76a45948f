package report

import (
	"strings"
	"unicode"

	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// FeeCategory is the closed set of platform deduction categories
type FeeCategory string

const (
	FeeInternational   FeeCategory = "international"
	FeePlatformService FeeCategory = "platform_service"
	FeePenalty         FeeCategory = "penalty"
	FeeAdvertising     FeeCategory = "advertising"
	FeeOther           FeeCategory = "other"
	FeeRefundCredit    FeeCategory = "refund_credit"
)

// known transaction types, lower-cased
var transactionTypes = map[string]FeeCategory{
	"international operation fee": FeeInternational,
	"international service fee":   FeeInternational,
	"platform service fee":        FeePlatformService,
	"service fee":                 FeePlatformService,
	"penalty":                     FeePenalty,
	"late delivery penalty":       FeePenalty,
	"advertising fee":             FeeAdvertising,
	"sponsored products":          FeeAdvertising,
	"refund":                      FeeRefundCredit,
	"deduction refund":            FeeRefundCredit,
}

// keyword fallbacks, checked in order. Keywords match whole words only.
var feeKeywords = []struct {
	category FeeCategory
	words    []string
}{
	{FeeRefundCredit, []string{"refund", "refunds", "reimbursement", "compensation", "credit note", "iade"}},
	{FeeInternational, []string{"international", "cross-border", "abroad", "yurt dışı"}},
	{FeePenalty, []string{"penalty", "penalties", "fine", "fines", "late delivery", "ceza"}},
	{FeeAdvertising, []string{"advertising", "advertisement", "ads", "sponsored", "campaign", "promotion", "reklam"}},
	{FeePlatformService, []string{"platform", "service fee", "hizmet bedeli"}},
}

// CategorizeDeduction maps a deduction invoice line to a fee category, by transaction type first and then keyword
func CategorizeDeduction(transactionType, description string) FeeCategory {
	if c, ok := transactionTypes[strings.ToLower(strings.TrimSpace(transactionType))]; ok {
		return c
	}
	text := normalizeWords(transactionType + " " + description)
	for _, k := range feeKeywords {
		for _, w := range k.words {
			if strings.Contains(text, normalizeWords(w)) {
				return k.category
			}
		}
	}
	return FeeOther
}

// normalizeWords lower-cases s and rewrites it as " w1 w2 ... " so that a
// substring search on a normalized keyword only matches whole words
func normalizeWords(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(words, " ") + " "
}

// FeeBreakdown sums deduction invoices per category. RefundCredit is positive.
type FeeBreakdown struct {
	International   decimal.Decimal `json:"international"`
	PlatformService decimal.Decimal `json:"platform_service"`
	Penalty         decimal.Decimal `json:"penalty"`
	Advertising     decimal.Decimal `json:"advertising"`
	Other           decimal.Decimal `json:"other"`
	RefundCredit    decimal.Decimal `json:"refund_credit"`
}

// Add books an amount under a category
func (b *FeeBreakdown) Add(category FeeCategory, amount decimal.Decimal) {
	switch category {
	case FeeInternational:
		b.International = b.International.Add(amount)
	case FeePlatformService:
		b.PlatformService = b.PlatformService.Add(amount)
	case FeePenalty:
		b.Penalty = b.Penalty.Add(amount)
	case FeeAdvertising:
		b.Advertising = b.Advertising.Add(amount)
	case FeeRefundCredit:
		b.RefundCredit = b.RefundCredit.Add(amount)
	default:
		b.Other = b.Other.Add(amount)
	}
}

// Plus returns the element-wise sum
func (b FeeBreakdown) Plus(o FeeBreakdown) FeeBreakdown {
	return FeeBreakdown{
		International:   b.International.Add(o.International),
		PlatformService: b.PlatformService.Add(o.PlatformService),
		Penalty:         b.Penalty.Add(o.Penalty),
		Advertising:     b.Advertising.Add(o.Advertising),
		Other:           b.Other.Add(o.Other),
		RefundCredit:    b.RefundCredit.Add(o.RefundCredit),
	}
}

// Scale multiplies every category by factor
func (b FeeBreakdown) Scale(factor decimal.Decimal) FeeBreakdown {
	return FeeBreakdown{
		International:   b.International.Mul(factor),
		PlatformService: b.PlatformService.Mul(factor),
		Penalty:         b.Penalty.Mul(factor),
		Advertising:     b.Advertising.Mul(factor),
		Other:           b.Other.Mul(factor),
		RefundCredit:    b.RefundCredit.Mul(factor),
	}
}

// PlatformFees returns the platform service total
func (b FeeBreakdown) PlatformFees() decimal.Decimal {
	return b.PlatformService
}

// InvoicedDeductions returns advertising + penalty + international + other - refund credit.
// The advertising term is left out when advertising is already costed per product.
func (b FeeBreakdown) InvoicedDeductions(advertisingCosted bool) decimal.Decimal {
	total := b.Penalty.Add(b.International).Add(b.Other).Sub(b.RefundCredit)
	if !advertisingCosted {
		total = total.Add(b.Advertising)
	}
	return total
}

// SummarizeDeductions categorizes deduction invoice lines.
// Negative amounts are credits regardless of their text.
func SummarizeDeductions(lines []finance.InvoiceLine) FeeBreakdown {
	var b FeeBreakdown
	for i := range lines {
		l := &lines[i]
		if l.Kind != finance.InvoiceKindDeduction {
			continue
		}
		if l.Amount.IsNegative() {
			b.Add(FeeRefundCredit, l.Amount.Abs())
			continue
		}
		b.Add(CategorizeDeduction(l.TransactionType, l.Description), l.Amount)
	}
	return b
}
