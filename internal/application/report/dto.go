package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/report"
)

// Options tunes the aggregation
type Options struct {
	// CargoInvoiceGraceDays is how long after a period ends its cargo invoices are trusted
	CargoInvoiceGraceDays int
	DefaultLocation       *time.Location
	MaxParallelBuckets    int
	MaxBuckets            int
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		CargoInvoiceGraceDays: 7,
		DefaultLocation:       time.UTC,
		MaxParallelBuckets:    4,
		MaxBuckets:            report.DefaultMaxBuckets,
	}
}

// SnapshotQuery selects one store and inclusive date range.
// Start and End are widened to whole days in Location.
type SnapshotQuery struct {
	StoreID  uuid.UUID
	Start    time.Time
	End      time.Time
	Barcode  string         // optional product filter
	Now      time.Time      // zero means the service clock
	Location *time.Location // nil means the store's timezone
}

// MultiPeriodQuery asks for Count consecutive buckets ending today
type MultiPeriodQuery struct {
	StoreID    uuid.UUID
	PeriodType report.PeriodType
	Count      int
	Barcode    string
	Now        time.Time
	Location   *time.Location
}

// MultiPeriodResult is one snapshot per bucket, oldest first, plus their totals
type MultiPeriodResult struct {
	StoreID    uuid.UUID                `json:"store_id"`
	PeriodType report.PeriodType        `json:"period_type"`
	Periods    []*report.PeriodSnapshot `json:"periods"`
	Totals     *report.PeriodSnapshot   `json:"totals"`
}

// RefreshResult reports what RefreshProductReferences wrote
type RefreshResult struct {
	StoreID         uuid.UUID `json:"store_id"`
	Updated         int       `json:"updated"`
	CommissionRates int       `json:"commission_rates"`
	ShippingCosts   int       `json:"shipping_costs"`
}
