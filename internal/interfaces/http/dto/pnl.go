package dto

import (
	"time"
)

// DateLayout is the calendar date format accepted in query strings and bodies
const DateLayout = "2006-01-02"

// PnLQuery is the query string of the snapshot endpoints
type PnLQuery struct {
	StartDate string `form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `form:"end_date" binding:"required,datetime=2006-01-02"`
	Barcode   string `form:"barcode" binding:"omitempty,max=64"`
}

// Dates parses StartDate and EndDate as calendar days
func (q PnLQuery) Dates() (start, end time.Time, err error) {
	if start, err = time.Parse(DateLayout, q.StartDate); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = time.Parse(DateLayout, q.EndDate); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// TrendQuery is the query string of the multi-period endpoint.
// Period is validated by the report service so unknown values surface as
// ERR_INVALID_PERIOD_TYPE instead of a generic validation error.
type TrendQuery struct {
	Period  string `form:"period" binding:"required"`
	Count   int    `form:"count" binding:"required,min=1"`
	Barcode string `form:"barcode" binding:"omitempty,max=64"`
}
