package strategy

import (
	"context"
	"sync"
	"testing"

	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock cost strategy for testing
type mockCostStrategy struct {
	strategy.BaseStrategy
}

func newMockCostStrategy(name string) *mockCostStrategy {
	return &mockCostStrategy{
		BaseStrategy: strategy.NewBaseStrategy(name, strategy.StrategyTypeCost, "Mock cost strategy"),
	}
}

func (s *mockCostStrategy) Method() strategy.CostMethod {
	return strategy.CostMethodFIFO
}

func (s *mockCostStrategy) CalculateCost(ctx context.Context, costCtx strategy.CostContext, entries []strategy.StockEntry) (strategy.CostResult, error) {
	return strategy.CostResult{}, nil
}

func (s *mockCostStrategy) CalculateAverageCost(ctx context.Context, entries []strategy.StockEntry) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// Mock allocation strategy for testing
type mockAllocationStrategy struct {
	strategy.BaseStrategy
}

func newMockAllocationStrategy(name string) *mockAllocationStrategy {
	return &mockAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(name, strategy.StrategyTypeAllocation, "Mock allocation strategy"),
	}
}

func (s *mockAllocationStrategy) Method() strategy.AllocationMethod {
	return strategy.AllocationMethodProportional
}

func (s *mockAllocationStrategy) Allocate(ctx context.Context, allocCtx strategy.AllocationContext, targets []strategy.AllocationTarget) (strategy.AllocationResult, error) {
	return strategy.AllocationResult{}, nil
}

func TestNewStrategyRegistry(t *testing.T) {
	r := NewStrategyRegistry()

	assert.NotNil(t, r)
	assert.Empty(t, r.ListCostStrategies())
	assert.Empty(t, r.ListAllocationStrategies())
}

func TestRegisterCostStrategy(t *testing.T) {
	r := NewStrategyRegistry()

	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("test")))

	err := r.RegisterCostStrategy(newMockCostStrategy("test"))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestGetCostStrategy(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("test")))

	t.Run("by name", func(t *testing.T) {
		s, err := r.GetCostStrategy("test")
		require.NoError(t, err)
		assert.Equal(t, "test", s.Name())
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := r.GetCostStrategy("missing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("empty name without default", func(t *testing.T) {
		_, err := r.GetCostStrategy("")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("empty name with default", func(t *testing.T) {
		require.NoError(t, r.SetDefault(strategy.StrategyTypeCost, "test"))
		s, err := r.GetCostStrategy("")
		require.NoError(t, err)
		assert.Equal(t, "test", s.Name())
	})
}

func TestRegisterAllocationStrategy(t *testing.T) {
	r := NewStrategyRegistry()

	require.NoError(t, r.RegisterAllocationStrategy(newMockAllocationStrategy("alloc")))
	assert.Error(t, r.RegisterAllocationStrategy(newMockAllocationStrategy("alloc")))
	assert.Equal(t, []string{"alloc"}, r.ListAllocationStrategies())
}

func TestSetDefault(t *testing.T) {
	r := NewStrategyRegistry()

	err := r.SetDefault(strategy.StrategyTypeCost, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("test")))
	require.NoError(t, r.SetDefault(strategy.StrategyTypeCost, "test"))
	s, err := r.GetCostStrategy("")
	require.NoError(t, err)
	assert.Equal(t, "test", s.Name())
}

func TestConcurrentAccess(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("shared")))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.GetCostStrategy("shared")
			_ = r.ListCostStrategies()
		}()
	}
	wg.Wait()
}

func TestNewRegistryWithDefaults(t *testing.T) {
	r, err := NewRegistryWithDefaults()
	require.NoError(t, err)

	costStrategy, err := r.GetCostStrategy("")
	require.NoError(t, err)
	assert.Equal(t, "fifo", costStrategy.Name())

	allocStrategy, err := r.GetAllocationStrategy("")
	require.NoError(t, err)
	assert.Equal(t, "proportional", allocStrategy.Name())
}

func TestSelect(t *testing.T) {
	r, err := NewRegistryWithDefaults()
	require.NoError(t, err)

	t.Run("empty names pick the defaults", func(t *testing.T) {
		c, a, err := r.Select("", "")
		require.NoError(t, err)
		assert.Equal(t, "fifo", c.Name())
		assert.Equal(t, "proportional", a.Name())
	})

	t.Run("named", func(t *testing.T) {
		c, _, err := r.Select("fifo", "proportional")
		require.NoError(t, err)
		assert.Equal(t, "fifo", c.Name())
	})

	t.Run("unknown cost strategy lists the choices", func(t *testing.T) {
		_, _, err := r.Select("lifo", "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Contains(t, err.Error(), "available: fifo")
	})

	t.Run("unknown allocation strategy", func(t *testing.T) {
		_, _, err := r.Select("", "by-weight")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Contains(t, err.Error(), "available: proportional")
	})
}
