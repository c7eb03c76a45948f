package strategy

import (
	"fmt"
	"strings"

	"github.com/sellerpnl/backend/internal/domain/shared/strategy"
	"github.com/sellerpnl/backend/internal/infrastructure/strategy/allocation"
	"github.com/sellerpnl/backend/internal/infrastructure/strategy/cost"
)

// NewRegistryWithDefaults creates a new registry with the FIFO cost strategy and the
// proportional allocation strategy registered as defaults.
func NewRegistryWithDefaults() (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	fifoCost := cost.NewFIFOCostStrategy()
	if err := r.RegisterCostStrategy(fifoCost); err != nil {
		return nil, err
	}

	proportional := allocation.NewProportionalAllocationStrategy()
	if err := r.RegisterAllocationStrategy(proportional); err != nil {
		return nil, err
	}

	if err := r.SetDefault(strategy.StrategyTypeCost, fifoCost.Name()); err != nil {
		return nil, err
	}
	if err := r.SetDefault(strategy.StrategyTypeAllocation, proportional.Name()); err != nil {
		return nil, err
	}

	return r, nil
}

// Select resolves the configured cost and allocation strategies by name. An
// empty name picks the registered default; an unknown name is an error that
// lists what is available.
func (r *StrategyRegistry) Select(costName, allocationName string) (strategy.CostCalculationStrategy, strategy.CostAllocationStrategy, error) {
	costStrategy, err := r.GetCostStrategy(costName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (available: %s)", err, strings.Join(r.ListCostStrategies(), ", "))
	}
	allocationStrategy, err := r.GetAllocationStrategy(allocationName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (available: %s)", err, strings.Join(r.ListAllocationStrategies(), ", "))
	}
	return costStrategy, allocationStrategy, nil
}
