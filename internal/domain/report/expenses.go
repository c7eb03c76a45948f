package report

import (
	"time"

	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ExpenseTotals is the discretionary expense contribution of a period
type ExpenseTotals struct {
	Total      decimal.Decimal
	ByCategory map[string]decimal.Decimal
}

// SummarizeExpenses counts each definition's occurrences inside the period
func SummarizeExpenses(defs []finance.ExpenseDefinition, period shared.DateRange, loc *time.Location) ExpenseTotals {
	t := ExpenseTotals{Total: decimal.Zero, ByCategory: make(map[string]decimal.Decimal)}
	for i := range defs {
		amount := defs[i].AmountIn(period, loc)
		if amount.IsZero() {
			continue
		}
		t.Total = t.Total.Add(amount)
		t.ByCategory[defs[i].Category] = t.ByCategory[defs[i].Category].Add(amount)
	}
	return t
}

// Scale multiplies the totals by factor
func (t ExpenseTotals) Scale(factor decimal.Decimal) ExpenseTotals {
	out := ExpenseTotals{Total: t.Total.Mul(factor), ByCategory: make(map[string]decimal.Decimal, len(t.ByCategory))}
	for k, v := range t.ByCategory {
		out.ByCategory[k] = v.Mul(factor)
	}
	return out
}
