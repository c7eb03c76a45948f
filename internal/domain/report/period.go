package report

import (
	"fmt"
	"time"

	"github.com/sellerpnl/backend/internal/domain/shared"
)

// PeriodType is the granularity of trend buckets
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// DefaultMaxBuckets bounds the number of buckets in one trend request
const DefaultMaxBuckets = 366

// IsValid checks if the period type is supported
func (p PeriodType) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// Bucket is one calendar period of a trend
type Bucket struct {
	Label string
	Range shared.DateRange
}

// DayRange returns the inclusive range covering whole days from start to end in loc.
// Only the calendar dates of start and end are used, read in their own location.
func DayRange(start, end time.Time, loc *time.Location) (shared.DateRange, error) {
	s := calendarDay(start, loc)
	e := calendarDay(end, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return shared.NewDateRange(s, e)
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Buckets returns count consecutive buckets, oldest first, the last one containing now
func Buckets(periodType PeriodType, count, maxBuckets int, now time.Time, loc *time.Location) ([]Bucket, error) {
	if !periodType.IsValid() {
		return nil, shared.ErrInvalidPeriodType
	}
	if maxBuckets <= 0 {
		maxBuckets = DefaultMaxBuckets
	}
	if count <= 0 || count > maxBuckets {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Bucket count must be between 1 and %d", maxBuckets))
	}
	if loc == nil {
		loc = time.UTC
	}

	today := startOfDay(now, loc)
	var first time.Time
	switch periodType {
	case PeriodDaily:
		first = today.AddDate(0, 0, -(count - 1))
	case PeriodWeekly:
		first = startOfWeek(today).AddDate(0, 0, -7*(count-1))
	case PeriodMonthly:
		first = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -(count - 1), 0)
	}

	buckets := make([]Bucket, 0, count)
	start := first
	for i := 0; i < count; i++ {
		next := advance(periodType, start)
		buckets = append(buckets, Bucket{
			Label: label(periodType, start),
			Range: shared.DateRange{Start: start, End: next.Add(-time.Nanosecond)},
		})
		start = next
	}
	return buckets, nil
}

func advance(p PeriodType, t time.Time) time.Time {
	switch p {
	case PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case PeriodMonthly:
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

func label(p PeriodType, t time.Time) string {
	switch p {
	case PeriodWeekly:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case PeriodMonthly:
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// startOfWeek returns the Monday of t's week
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// Totals sums the additive fields of the buckets and recomputes margin and ROI from the sums
func Totals(snapshots []*PeriodSnapshot) *PeriodSnapshot {
	if len(snapshots) == 0 {
		return nil
	}
	first, last := snapshots[0], snapshots[len(snapshots)-1]
	total := NewPeriodSnapshot(first.StoreID, first.Start, last.End)
	total.Label = "total"
	total.Barcode = first.Barcode
	for _, s := range snapshots {
		total.Accumulate(s)
	}
	total.Finalize()
	return total
}
