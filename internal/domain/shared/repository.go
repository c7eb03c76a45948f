package shared

import (
	"time"

	"github.com/google/uuid"
)

// DateRange is an inclusive [Start, End] interval used by period queries
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange validates and creates a date range
func NewDateRange(start, end time.Time) (DateRange, error) {
	if end.Before(start) {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{Start: start, End: end}, nil
}

// Contains reports whether t lies inside the range, bounds included
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// StoreScope narrows a repository query to one store and an optional product
type StoreScope struct {
	StoreID uuid.UUID
	Barcode string
}
