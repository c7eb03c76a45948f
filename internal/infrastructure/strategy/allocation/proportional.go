package allocation

import (
	"context"

	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

const defaultPlaces int32 = 2

// ProportionalAllocationStrategy splits an amount across targets in proportion to their basis.
// Each allocation is rounded; the rounding residue goes to the target with the largest basis
// so that the allocations always sum back to the pooled amount.
type ProportionalAllocationStrategy struct {
	strategy.BaseStrategy
}

// NewProportionalAllocationStrategy creates a new proportional allocation strategy
func NewProportionalAllocationStrategy() *ProportionalAllocationStrategy {
	return &ProportionalAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"proportional",
			strategy.StrategyTypeAllocation,
			"Allocates pooled costs by each target's share of the total basis",
		),
	}
}

// Method returns the allocation method
func (s *ProportionalAllocationStrategy) Method() strategy.AllocationMethod {
	return strategy.AllocationMethodProportional
}

// Allocate distributes the amount across targets by basis share.
// When the total basis is zero every share is zero and nothing is allocated.
func (s *ProportionalAllocationStrategy) Allocate(
	ctx context.Context,
	allocCtx strategy.AllocationContext,
	targets []strategy.AllocationTarget,
) (strategy.AllocationResult, error) {
	places := allocCtx.Places
	if places <= 0 {
		places = defaultPlaces
	}

	totalBasis := decimal.Zero
	for _, t := range targets {
		if t.Basis.IsNegative() {
			return strategy.AllocationResult{}, shared.NewDomainError(shared.CodeInvalidInput, "allocation basis cannot be negative: "+t.Key)
		}
		totalBasis = totalBasis.Add(t.Basis)
	}

	allocations := make([]strategy.Allocation, len(targets))
	if totalBasis.IsZero() || len(targets) == 0 {
		for i, t := range targets {
			allocations[i] = strategy.Allocation{Key: t.Key, Share: decimal.Zero, AllocatedAmount: decimal.Zero}
		}
		return strategy.AllocationResult{
			Allocations:    allocations,
			TotalAllocated: decimal.Zero,
			Residue:        allocCtx.Amount,
		}, nil
	}

	totalAllocated := decimal.Zero
	largest := 0
	for i, t := range targets {
		share := t.Basis.Div(totalBasis)
		amount := allocCtx.Amount.Mul(share).Round(places)
		allocations[i] = strategy.Allocation{Key: t.Key, Share: share, AllocatedAmount: amount}
		totalAllocated = totalAllocated.Add(amount)
		if t.Basis.GreaterThan(targets[largest].Basis) {
			largest = i
		}
	}

	// Fix rounding on the largest target
	diff := allocCtx.Amount.Round(places).Sub(totalAllocated)
	if !diff.IsZero() {
		allocations[largest].AllocatedAmount = allocations[largest].AllocatedAmount.Add(diff)
		totalAllocated = totalAllocated.Add(diff)
	}

	return strategy.AllocationResult{
		Allocations:    allocations,
		TotalAllocated: totalAllocated,
		Residue:        allocCtx.Amount.Sub(totalAllocated),
	}, nil
}

var _ strategy.CostAllocationStrategy = (*ProportionalAllocationStrategy)(nil)
