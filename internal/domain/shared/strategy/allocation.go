package strategy

import (
	"context"

	"github.com/shopspring/decimal"
)

// AllocationMethod names a way of splitting a pooled amount across recipients
type AllocationMethod string

const (
	AllocationMethodProportional AllocationMethod = "proportional"
)

// AllocationTarget is one recipient of a pooled amount, weighted by its basis
// (for product breakdowns the basis is the product's revenue).
type AllocationTarget struct {
	Key   string
	Basis decimal.Decimal
}

// Allocation is the share assigned to one target
type Allocation struct {
	Key             string
	Share           decimal.Decimal
	AllocatedAmount decimal.Decimal
}

// AllocationContext provides context for an allocation run
type AllocationContext struct {
	Amount decimal.Decimal
	// Places is the rounding precision of allocated amounts
	Places int32
}

// AllocationResult contains the result of an allocation run
type AllocationResult struct {
	Allocations    []Allocation
	TotalAllocated decimal.Decimal
	Residue        decimal.Decimal
}

// ByKey indexes the allocations by target key
func (r AllocationResult) ByKey() map[string]Allocation {
	out := make(map[string]Allocation, len(r.Allocations))
	for _, a := range r.Allocations {
		out[a.Key] = a
	}
	return out
}

// CostAllocationStrategy splits period-level amounts down to individual targets
type CostAllocationStrategy interface {
	Strategy
	// Method returns the allocation method used by this strategy
	Method() AllocationMethod
	// Allocate distributes allocCtx.Amount across targets
	Allocate(ctx context.Context, allocCtx AllocationContext, targets []AllocationTarget) (AllocationResult, error)
}
