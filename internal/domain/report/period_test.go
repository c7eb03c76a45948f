package report

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuckets(t *testing.T) {
	// Wednesday
	now := time.Date(2024, 1, 17, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		period     PeriodType
		count      int
		wantLabels []string
		wantStart  time.Time
	}{
		{"daily", PeriodDaily, 3, []string{"2024-01-15", "2024-01-16", "2024-01-17"}, day(2024, 1, 15)},
		{"weekly starts monday", PeriodWeekly, 2, []string{"2024-W02", "2024-W03"}, day(2024, 1, 8)},
		{"monthly across year", PeriodMonthly, 3, []string{"2023-11", "2023-12", "2024-01"}, day(2023, 11, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buckets, err := Buckets(tt.period, tt.count, 0, now, time.UTC)
			require.NoError(t, err)
			require.Len(t, buckets, tt.count)

			labels := make([]string, len(buckets))
			for i, b := range buckets {
				labels[i] = b.Label
				if i > 0 {
					assert.Equal(t, buckets[i-1].Range.End.Add(time.Nanosecond), b.Range.Start)
				}
			}
			assert.Equal(t, tt.wantLabels, labels)
			assert.Equal(t, tt.wantStart, buckets[0].Range.Start)
			assert.True(t, buckets[len(buckets)-1].Range.Contains(now))
		})
	}
}

func TestBuckets_Timezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)
	// 22:30 UTC is already the next day in Istanbul
	now := time.Date(2024, 1, 17, 22, 30, 0, 0, time.UTC)

	buckets, err := Buckets(PeriodDaily, 1, 0, now, loc)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-18", buckets[0].Label)
}

func TestBuckets_Invalid(t *testing.T) {
	now := time.Now()

	_, err := Buckets("hourly", 3, 0, now, time.UTC)
	assert.ErrorIs(t, err, shared.ErrInvalidPeriodType)

	_, err = Buckets(PeriodDaily, 0, 0, now, time.UTC)
	assert.Equal(t, shared.CodeInvalidInput, shared.CodeOf(err))

	_, err = Buckets(PeriodDaily, 367, 0, now, time.UTC)
	assert.Error(t, err)

	_, err = Buckets(PeriodDaily, 31, 30, now, time.UTC)
	assert.Error(t, err)
}

func TestDayRange(t *testing.T) {
	r, err := DayRange(day(2024, 1, 1), day(2024, 1, 31), time.UTC)
	require.NoError(t, err)
	assert.True(t, r.Contains(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, r.Contains(day(2024, 2, 1)))

	_, err = DayRange(day(2024, 2, 1), day(2024, 1, 1), time.UTC)
	assert.ErrorIs(t, err, shared.ErrInvalidDateRange)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	r, err = DayRange(day(2024, 1, 1), day(2024, 1, 1), ny)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, ny), r.Start)
	assert.True(t, r.Contains(time.Date(2024, 1, 1, 23, 0, 0, 0, ny)))
}

func TestTotals_Additivity(t *testing.T) {
	store := uuid.New()
	values := []struct{ revenue, cost, commission, fees, expenses string }{
		{"100", "60", "10", "5", "3"},
		{"0", "0", "0", "0", "3"},
		{"250.50", "100.25", "20", "7.5", "3"},
	}
	var buckets []*PeriodSnapshot
	for i, v := range values {
		s := NewPeriodSnapshot(store, day(2024, 1, i+1), day(2024, 1, i+1))
		s.Revenue = d(v.revenue)
		s.ProductCost = d(v.cost)
		s.Commission = d(v.commission)
		s.PlatformFees = d(v.fees)
		s.Expenses = d(v.expenses)
		s.Finalize()
		buckets = append(buckets, s)
	}

	total := Totals(buckets)
	require.NotNil(t, total)
	assert.True(t, d("350.50").Equal(total.Revenue))
	assert.True(t, d("160.25").Equal(total.ProductCost))
	assert.True(t, d("30").Equal(total.Commission))
	assert.True(t, d("12.5").Equal(total.PlatformFees))
	assert.True(t, d("9").Equal(total.Expenses))

	net := buckets[0].NetProfit.Add(buckets[1].NetProfit).Add(buckets[2].NetProfit)
	assert.True(t, net.Equal(total.NetProfit))
	// margin is recomputed from the sums
	assert.True(t, Percent(total.GrossProfit, total.Revenue).Equal(total.ProfitMargin))
	assert.Equal(t, day(2024, 1, 1), total.Start)
	assert.Equal(t, day(2024, 1, 3), total.End)

	assert.Nil(t, Totals(nil))
}
