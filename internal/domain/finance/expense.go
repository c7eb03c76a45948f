package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ExpenseFrequency represents how often a recurring expense is billed
type ExpenseFrequency string

const (
	ExpenseFrequencyOneTime ExpenseFrequency = "one_time"
	ExpenseFrequencyDaily   ExpenseFrequency = "daily"
	ExpenseFrequencyWeekly  ExpenseFrequency = "weekly"
	ExpenseFrequencyMonthly ExpenseFrequency = "monthly"
	ExpenseFrequencyYearly  ExpenseFrequency = "yearly"
)

// IsValid checks if the frequency is a valid ExpenseFrequency
func (f ExpenseFrequency) IsValid() bool {
	switch f {
	case ExpenseFrequencyOneTime, ExpenseFrequencyDaily, ExpenseFrequencyWeekly,
		ExpenseFrequencyMonthly, ExpenseFrequencyYearly:
		return true
	}
	return false
}

// ExpenseDefinition is a discretionary seller expense, billed from CreatedAt onwards
type ExpenseDefinition struct {
	ID        uuid.UUID
	StoreID   uuid.UUID
	Name      string
	Amount    decimal.Decimal
	Frequency ExpenseFrequency
	Category  string
	CreatedAt time.Time
	EndDate   *time.Time
	Active    bool
}

// NewExpenseDefinition creates an active expense definition
func NewExpenseDefinition(storeID uuid.UUID, name string, amount decimal.Decimal, frequency ExpenseFrequency, category string, anchor time.Time) (*ExpenseDefinition, error) {
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Expense name cannot be empty")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Expense amount cannot be negative")
	}
	if !frequency.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid expense frequency")
	}
	if category == "" {
		category = "other"
	}
	return &ExpenseDefinition{
		ID:        uuid.New(),
		StoreID:   storeID,
		Name:      name,
		Amount:    amount,
		Frequency: frequency,
		Category:  category,
		CreatedAt: anchor,
		Active:    true,
	}, nil
}

// OccurrencesIn returns the billing dates of the expense inside the period.
// Dates are midnight in loc. Monthly and yearly dates clamp to the end of short months.
func (e *ExpenseDefinition) OccurrencesIn(period shared.DateRange, loc *time.Location) []time.Time {
	if !e.Active {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	ay, am, ad := e.CreatedAt.In(loc).Date()
	anchor := time.Date(ay, am, ad, 0, 0, 0, 0, loc)

	last := period.End
	if e.EndDate != nil && e.EndDate.Before(last) {
		last = *e.EndDate
	}
	if last.Before(period.Start) || anchor.After(last) {
		return nil
	}

	var out []time.Time
	emit := func(t time.Time) {
		if !t.Before(period.Start) && !t.After(last) {
			out = append(out, t)
		}
	}

	switch e.Frequency {
	case ExpenseFrequencyOneTime:
		emit(anchor)
	case ExpenseFrequencyDaily, ExpenseFrequencyWeekly:
		step := 1
		if e.Frequency == ExpenseFrequencyWeekly {
			step = 7
		}
		k := 0
		if period.Start.After(anchor) {
			k = daysBetween(anchor, period.Start) / step
		}
		for t := anchor.AddDate(0, 0, k*step); !t.After(last); t = anchor.AddDate(0, 0, k*step) {
			emit(t)
			k++
		}
	case ExpenseFrequencyMonthly, ExpenseFrequencyYearly:
		step := 1
		if e.Frequency == ExpenseFrequencyYearly {
			step = 12
		}
		k := 0
		if period.Start.After(anchor) {
			sy, sm, _ := period.Start.In(loc).Date()
			months := (sy-ay)*12 + int(sm-am)
			k = max(months/step-1, 0)
		}
		for t := addMonthsClamped(anchor, k*step); !t.After(last); t = addMonthsClamped(anchor, k*step) {
			emit(t)
			k++
		}
	}
	return out
}

// AmountIn returns the expense total for the period
func (e *ExpenseDefinition) AmountIn(period shared.DateRange, loc *time.Location) decimal.Decimal {
	n := len(e.OccurrencesIn(period, loc))
	return e.Amount.Mul(decimal.NewFromInt(int64(n)))
}

func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.In(from.Location()).Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func addMonthsClamped(anchor time.Time, months int) time.Time {
	y, m, d := anchor.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, anchor.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, anchor.Location())
}
