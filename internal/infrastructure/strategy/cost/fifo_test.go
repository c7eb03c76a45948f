package cost

import (
	"context"
	"testing"
	"time"

	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFIFOCostStrategy(t *testing.T) {
	s := NewFIFOCostStrategy()

	assert.NotNil(t, s)
	assert.Equal(t, "fifo", s.Name())
	assert.Equal(t, strategy.StrategyTypeCost, s.Type())
	assert.Equal(t, strategy.CostMethodFIFO, s.Method())
	assert.NotEmpty(t, s.Description())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFIFOCostStrategy_CalculateCost(t *testing.T) {
	s := NewFIFOCostStrategy()
	ctx := context.Background()

	lotA := strategy.StockEntry{ID: "A", Seq: 1, Quantity: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(5), VATRate: decimal.NewFromInt(20), EntryDate: date(2024, 1, 1)}
	lotB := strategy.StockEntry{ID: "B", Seq: 2, Quantity: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(7), VATRate: decimal.NewFromInt(10), EntryDate: date(2024, 2, 1)}

	tests := []struct {
		name          string
		quantity      decimal.Decimal
		entries       []strategy.StockEntry
		expectedUnit  decimal.Decimal
		expectedTotal decimal.Decimal
		expectedLeft  decimal.Decimal
		expectedIDs   []string
	}{
		{
			name:          "single lot partially consumed",
			quantity:      decimal.NewFromInt(4),
			entries:       []strategy.StockEntry{lotA, lotB},
			expectedUnit:  decimal.NewFromInt(5),
			expectedTotal: decimal.NewFromInt(20),
			expectedLeft:  decimal.Zero,
			expectedIDs:   []string{"A"},
		},
		{
			name:          "spans two lots in receipt order regardless of input order",
			quantity:      decimal.NewFromInt(15),
			entries:       []strategy.StockEntry{lotB, lotA},
			expectedUnit:  decimal.NewFromInt(85).Div(decimal.NewFromInt(15)),
			expectedTotal: decimal.NewFromInt(85),
			expectedLeft:  decimal.Zero,
			expectedIDs:   []string{"A", "B"},
		},
		{
			name:          "exhausted stock leaves remaining quantity",
			quantity:      decimal.NewFromInt(25),
			entries:       []strategy.StockEntry{lotA, lotB},
			expectedUnit:  decimal.NewFromInt(6),
			expectedTotal: decimal.NewFromInt(120),
			expectedLeft:  decimal.NewFromInt(5),
			expectedIDs:   []string{"A", "B"},
		},
		{
			name:          "no entries",
			quantity:      decimal.NewFromInt(3),
			entries:       nil,
			expectedUnit:  decimal.Zero,
			expectedTotal: decimal.Zero,
			expectedLeft:  decimal.NewFromInt(3),
			expectedIDs:   []string{},
		},
		{
			name:     "depleted lots are skipped",
			quantity: decimal.NewFromInt(2),
			entries: []strategy.StockEntry{
				{ID: "A", Seq: 1, Quantity: decimal.Zero, UnitCost: decimal.NewFromInt(5), EntryDate: date(2024, 1, 1)},
				lotB,
			},
			expectedUnit:  decimal.NewFromInt(7),
			expectedTotal: decimal.NewFromInt(14),
			expectedLeft:  decimal.Zero,
			expectedIDs:   []string{"B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.CalculateCost(ctx, strategy.CostContext{Quantity: tt.quantity}, tt.entries)
			require.NoError(t, err)

			assert.True(t, tt.expectedUnit.Equal(result.UnitCost), "unit cost: expected %s, got %s", tt.expectedUnit, result.UnitCost)
			assert.True(t, tt.expectedTotal.Equal(result.TotalCost), "total cost: expected %s, got %s", tt.expectedTotal, result.TotalCost)
			assert.True(t, tt.expectedLeft.Equal(result.RemainingQty), "remaining: expected %s, got %s", tt.expectedLeft, result.RemainingQty)
			assert.Equal(t, strategy.CostMethodFIFO, result.Method)

			ids := make([]string, 0, len(result.Usages))
			for _, u := range result.Usages {
				ids = append(ids, u.EntryID)
			}
			assert.Equal(t, tt.expectedIDs, ids)
		})
	}
}

func TestFIFOCostStrategy_CalculateCost_WeightsVATRate(t *testing.T) {
	s := NewFIFOCostStrategy()
	entries := []strategy.StockEntry{
		{ID: "A", Seq: 1, Quantity: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(5), VATRate: decimal.NewFromInt(20), EntryDate: date(2024, 1, 1)},
		{ID: "B", Seq: 2, Quantity: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(7), VATRate: decimal.NewFromInt(10), EntryDate: date(2024, 2, 1)},
	}

	result, err := s.CalculateCost(context.Background(), strategy.CostContext{Quantity: decimal.NewFromInt(20)}, entries)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15).Equal(result.VATRate), "got %s", result.VATRate)
	assert.True(t, result.Covered())
}

func TestFIFOCostStrategy_CalculateCost_TiesBreakBySequence(t *testing.T) {
	s := NewFIFOCostStrategy()
	sameDay := date(2024, 3, 1)
	entries := []strategy.StockEntry{
		{ID: "second", Seq: 2, Quantity: decimal.NewFromInt(5), UnitCost: decimal.NewFromInt(9), EntryDate: sameDay},
		{ID: "first", Seq: 1, Quantity: decimal.NewFromInt(5), UnitCost: decimal.NewFromInt(3), EntryDate: sameDay},
	}

	result, err := s.CalculateCost(context.Background(), strategy.CostContext{Quantity: decimal.NewFromInt(5)}, entries)
	require.NoError(t, err)
	require.Len(t, result.Usages, 1)
	assert.Equal(t, "first", result.Usages[0].EntryID)
}

func TestFIFOCostStrategy_CalculateCost_InvalidQuantity(t *testing.T) {
	s := NewFIFOCostStrategy()
	for _, qty := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-1)} {
		_, err := s.CalculateCost(context.Background(), strategy.CostContext{Quantity: qty}, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidQuantity)
	}
}

func TestFIFOCostStrategy_CalculateAverageCost(t *testing.T) {
	s := NewFIFOCostStrategy()
	ctx := context.Background()

	tests := []struct {
		name        string
		entries     []strategy.StockEntry
		expected    decimal.Decimal
		expectError bool
	}{
		{
			name:        "empty entries",
			entries:     []strategy.StockEntry{},
			expectError: true,
		},
		{
			name: "weighted by remaining quantity",
			entries: []strategy.StockEntry{
				{ID: "1", Quantity: decimal.NewFromInt(100), UnitCost: decimal.NewFromInt(10)},
				{ID: "2", Quantity: decimal.NewFromInt(300), UnitCost: decimal.NewFromInt(20)},
			},
			expected: decimal.NewFromFloat(17.5),
		},
		{
			name: "zero total quantity",
			entries: []strategy.StockEntry{
				{ID: "1", Quantity: decimal.Zero, UnitCost: decimal.NewFromInt(10)},
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.CalculateAverageCost(ctx, tt.entries)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(result), "expected %s, got %s", tt.expected, result)
		})
	}
}
