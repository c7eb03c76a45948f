package allocation

import (
	"context"
	"testing"

	"github.com/sellerpnl/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestProportionalAllocationStrategy_Allocate(t *testing.T) {
	s := NewProportionalAllocationStrategy()
	ctx := context.Background()

	tests := []struct {
		name     string
		amount   decimal.Decimal
		targets  []strategy.AllocationTarget
		expected map[string]decimal.Decimal
	}{
		{
			name:   "even split",
			amount: d("200"),
			targets: []strategy.AllocationTarget{
				{Key: "A", Basis: d("500")},
				{Key: "B", Basis: d("500")},
			},
			expected: map[string]decimal.Decimal{"A": d("100"), "B": d("100")},
		},
		{
			name:   "proportional to revenue",
			amount: d("300"),
			targets: []strategy.AllocationTarget{
				{Key: "A", Basis: d("7500")},
				{Key: "B", Basis: d("2500")},
			},
			expected: map[string]decimal.Decimal{"A": d("225"), "B": d("75")},
		},
		{
			name:   "rounding residue lands on largest basis",
			amount: d("100"),
			targets: []strategy.AllocationTarget{
				{Key: "A", Basis: d("1")},
				{Key: "B", Basis: d("1")},
				{Key: "C", Basis: d("2")},
			},
			expected: map[string]decimal.Decimal{"A": d("25"), "B": d("25"), "C": d("50")},
		},
		{
			name:   "thirds",
			amount: d("10"),
			targets: []strategy.AllocationTarget{
				{Key: "A", Basis: d("1")},
				{Key: "B", Basis: d("1")},
				{Key: "C", Basis: d("1")},
			},
			expected: map[string]decimal.Decimal{"A": d("3.34"), "B": d("3.33"), "C": d("3.33")},
		},
		{
			name:   "zero basis allocates nothing",
			amount: d("50"),
			targets: []strategy.AllocationTarget{
				{Key: "A", Basis: decimal.Zero},
			},
			expected: map[string]decimal.Decimal{"A": decimal.Zero},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.Allocate(ctx, strategy.AllocationContext{Amount: tt.amount}, tt.targets)
			require.NoError(t, err)

			byKey := result.ByKey()
			sum := decimal.Zero
			for key, want := range tt.expected {
				got := byKey[key].AllocatedAmount
				assert.True(t, want.Equal(got), "%s: expected %s, got %s", key, want, got)
				sum = sum.Add(got)
			}
			assert.True(t, sum.Equal(result.TotalAllocated))
		})
	}
}

func TestProportionalAllocationStrategy_ReconcilesToAmount(t *testing.T) {
	s := NewProportionalAllocationStrategy()
	targets := []strategy.AllocationTarget{
		{Key: "A", Basis: d("123.45")},
		{Key: "B", Basis: d("67.89")},
		{Key: "C", Basis: d("0.01")},
		{Key: "D", Basis: d("999.99")},
	}

	result, err := s.Allocate(context.Background(), strategy.AllocationContext{Amount: d("777.77")}, targets)
	require.NoError(t, err)
	assert.True(t, d("777.77").Equal(result.TotalAllocated), "got %s", result.TotalAllocated)
	assert.True(t, result.Residue.IsZero())
}

func TestProportionalAllocationStrategy_NegativeBasis(t *testing.T) {
	s := NewProportionalAllocationStrategy()
	_, err := s.Allocate(context.Background(), strategy.AllocationContext{Amount: d("1")},
		[]strategy.AllocationTarget{{Key: "A", Basis: d("-1")}})
	assert.Error(t, err)
}
