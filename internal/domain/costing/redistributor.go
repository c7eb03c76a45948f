package costing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RedistributionInput is the full history of one product needed to rebuild its
// consumption index.
type RedistributionInput struct {
	Ledger *LotLedger
	// Sales are every costed sale of the product; order does not matter
	Sales []Sale
	// Consumptions is the current index, used for the window and for carry-over
	Consumptions []LotConsumption
	// Trigger is the new or edited lot; nil replays the whole history
	Trigger *CostLot
	// Now and MaxReplayDays cap how far back the replay reaches (0 = no cap)
	Now           time.Time
	MaxReplayDays int
}

// RedistributionResult describes a rebuilt index
type RedistributionResult struct {
	StoreID       uuid.UUID
	Barcode       string
	Replayed      bool
	ReplayFrom    *time.Time
	ReplayedSales int
	CarriedSales  int
	// Stamps holds the new stamp of every sale in the history
	Stamps map[uuid.UUID]*CostStamp
	// Changed lists lines whose stamp differs from their previous index rows
	Changed []uuid.UUID
	// Consumptions is the complete rebuilt index
	Consumptions []LotConsumption
	// Discrepancy is the quantity that could not be reconciled against lots
	// and was priced through the fallback path instead
	Discrepancy decimal.Decimal
}

// Redistributor rebuilds a product's consumption index after its lot log changed.
// Lots are an append-only log; consumption is derived from the ordered sale
// history, so a rebuild never edits history in place.
type Redistributor struct {
	allocator *Allocator
}

// NewRedistributor creates a redistributor that replays sales through the allocator
func NewRedistributor(allocator *Allocator) *Redistributor {
	return &Redistributor{allocator: allocator}
}

// NeedsRedistribution reports whether adding or editing trigger invalidates the
// current index: some consumed lot sorts after it, the trigger itself was
// consumed, or some sale was priced without a lot.
func (r *Redistributor) NeedsRedistribution(ledger *LotLedger, consumptions []LotConsumption, trigger *CostLot) bool {
	if trigger == nil {
		return len(consumptions) > 0
	}
	for _, row := range consumptions {
		if r.affected(ledger, row, trigger) {
			return true
		}
	}
	return false
}

// Redistribute rebuilds the index. Sales before the replay window keep their rows
// verbatim; sales inside it are replayed chronologically through the allocator.
// Running it twice without lot changes yields identical stamps.
func (r *Redistributor) Redistribute(ctx context.Context, in RedistributionInput) (*RedistributionResult, error) {
	ledger := in.Ledger
	result := &RedistributionResult{
		StoreID:     ledger.StoreID(),
		Barcode:     ledger.Barcode(),
		Stamps:      make(map[uuid.UUID]*CostStamp, len(in.Sales)),
		Discrepancy: decimal.Zero,
	}

	sales := make([]Sale, len(in.Sales))
	copy(sales, in.Sales)
	sort.SliceStable(sales, func(i, j int) bool { return SaleLess(sales[i], sales[j]) })

	previous := GroupByLine(in.Consumptions)
	windowStart, ok := r.windowStart(ledger, sales, previous, in)
	if !ok {
		for _, s := range sales {
			result.Stamps[s.LineID] = StampFromConsumptions(s.LineID, previous[s.LineID])
		}
		result.Consumptions = in.Consumptions
		return result, nil
	}
	result.Replayed = true
	result.ReplayFrom = &windowStart

	ledger.Reset()
	expected := decimal.Zero
	for _, sale := range sales {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		expected = expected.Add(sale.Quantity)

		rows, hasRows := previous[sale.LineID]
		if sale.OrderDate.Before(windowStart) && hasRows {
			carried, uncarried, err := ledger.Carry(rows)
			if err != nil {
				return nil, err
			}
			result.Discrepancy = result.Discrepancy.Add(uncarried)
			result.Stamps[sale.LineID] = StampFromConsumptions(sale.LineID, carried)
			result.CarriedSales++
			continue
		}

		stamp, err := r.allocator.Consume(ctx, ledger, sale)
		if err != nil {
			return nil, err
		}
		result.Stamps[sale.LineID] = stamp
		result.ReplayedSales++
	}

	// Conservation: everything sold is either drawn from a lot or priced without one
	backed := ledger.ConsumedTotal().Add(ledger.UnbackedTotal())
	if gap := expected.Sub(backed).Abs(); gap.IsPositive() {
		result.Discrepancy = result.Discrepancy.Add(gap)
	}

	for _, sale := range sales {
		before := StampFromConsumptions(sale.LineID, previous[sale.LineID])
		if !result.Stamps[sale.LineID].Equal(before) || len(previous[sale.LineID]) == 0 {
			result.Changed = append(result.Changed, sale.LineID)
		}
	}
	result.Consumptions = ledger.Entries()
	return result, nil
}

// windowStart finds the earliest sale whose rows touched a lot at or after the
// trigger, or were priced without a lot. Unindexed sales always fall inside.
func (r *Redistributor) windowStart(ledger *LotLedger, sales []Sale, previous map[uuid.UUID][]LotConsumption, in RedistributionInput) (time.Time, bool) {
	if len(sales) == 0 {
		return time.Time{}, false
	}

	var start time.Time
	found := false
	for _, sale := range sales {
		rows, indexed := previous[sale.LineID]
		hit := !indexed || in.Trigger == nil
		if !hit {
			for _, row := range rows {
				if r.affected(ledger, row, in.Trigger) {
					hit = true
					break
				}
			}
		}
		if hit {
			start = sale.OrderDate
			found = true
			break
		}
	}
	if !found {
		return time.Time{}, false
	}

	if in.MaxReplayDays > 0 && !in.Now.IsZero() {
		limit := in.Now.AddDate(0, 0, -in.MaxReplayDays)
		if start.Before(limit) {
			start = limit
		}
	}
	return start, true
}

func (r *Redistributor) affected(ledger *LotLedger, row LotConsumption, trigger *CostLot) bool {
	if row.Source != ConsumptionFromLot || row.LotID == nil {
		return true
	}
	if *row.LotID == trigger.ID {
		return true
	}
	lot, ok := ledger.Lot(*row.LotID)
	if !ok {
		return true
	}
	return trigger.SortsBefore(lot)
}
