package costing

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// LotLedger is the working set of one product in one store: its lot log in FIFO
// order plus the consumption index derived from the sales applied so far.
type LotLedger struct {
	storeID uuid.UUID
	barcode string
	lots    []*CostLot
	byID    map[uuid.UUID]*CostLot
	index   []LotConsumption
}

// NewLotLedger builds a ledger over the given lots, sorted by (ReceiptDate, Seq).
// The lots' consumed quantities are taken as they are.
func NewLotLedger(storeID uuid.UUID, barcode string, lots []*CostLot) *LotLedger {
	sorted := make([]*CostLot, len(lots))
	copy(sorted, lots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortsBefore(sorted[j])
	})

	byID := make(map[uuid.UUID]*CostLot, len(sorted))
	for _, l := range sorted {
		byID[l.ID] = l
	}
	return &LotLedger{
		storeID: storeID,
		barcode: barcode,
		lots:    sorted,
		byID:    byID,
	}
}

// StoreID returns the store the ledger belongs to
func (l *LotLedger) StoreID() uuid.UUID { return l.storeID }

// Barcode returns the product the ledger belongs to
func (l *LotLedger) Barcode() string { return l.barcode }

// Lots returns the lots in FIFO order
func (l *LotLedger) Lots() []*CostLot { return l.lots }

// Entries returns the consumption rows recorded on this ledger
func (l *LotLedger) Entries() []LotConsumption { return l.index }

// Lot returns a lot by ID
func (l *LotLedger) Lot(id uuid.UUID) (*CostLot, bool) {
	lot, ok := l.byID[id]
	return lot, ok
}

// Reset zeroes consumption on every lot and drops the index
func (l *LotLedger) Reset() {
	for _, lot := range l.lots {
		lot.ResetConsumption()
	}
	l.index = nil
}

// StockEntries exposes the lots with remaining quantity to a cost strategy
func (l *LotLedger) StockEntries() []strategy.StockEntry {
	entries := make([]strategy.StockEntry, 0, len(l.lots))
	for _, lot := range l.lots {
		if !lot.HasStock() {
			continue
		}
		entries = append(entries, strategy.StockEntry{
			ID:        lot.ID.String(),
			Seq:       lot.Seq,
			Quantity:  lot.Remaining(),
			UnitCost:  lot.UnitCost,
			VATRate:   lot.VATRate,
			EntryDate: lot.ReceiptDate,
		})
	}
	return entries
}

// LastKnownCost returns the cost of the most recent lot (by receipt date then
// sequence) with a positive unit cost, regardless of its remaining quantity.
func (l *LotLedger) LastKnownCost() (unitCost, vatRate decimal.Decimal, ok bool) {
	for i := len(l.lots) - 1; i >= 0; i-- {
		if l.lots[i].UnitCost.IsPositive() {
			return l.lots[i].UnitCost, l.lots[i].VATRate, true
		}
	}
	return decimal.Zero, decimal.Zero, false
}

// Record appends rows to the index
func (l *LotLedger) Record(rows ...LotConsumption) {
	l.index = append(l.index, rows...)
}

// Carry re-applies rows computed by an earlier pass verbatim. A row that no
// longer fits on its lot (the lot was revised or is unknown) is re-priced at
// the last known cost for the part that does not fit; the uncarried quantity
// is returned so the caller can report it.
func (l *LotLedger) Carry(rows []LotConsumption) (carried []LotConsumption, uncarried decimal.Decimal, err error) {
	uncarried = decimal.Zero
	for _, row := range rows {
		if row.Source != ConsumptionFromLot || row.LotID == nil {
			l.Record(row)
			carried = append(carried, row)
			continue
		}

		lot, ok := l.byID[*row.LotID]
		fit := decimal.Zero
		if ok {
			fit = decimal.Min(row.Quantity, lot.Remaining())
		}
		if fit.IsPositive() {
			if err := lot.Consume(fit); err != nil {
				return nil, decimal.Zero, fmt.Errorf("carry %s onto lot %s: %w", fit, lot.ID, err)
			}
			kept := row
			kept.Quantity = fit
			kept.UnitCost = lot.UnitCost
			kept.VATRate = lot.VATRate
			l.Record(kept)
			carried = append(carried, kept)
		}

		rest := row.Quantity.Sub(fit)
		if rest.IsPositive() {
			uncarried = uncarried.Add(rest)
			fallback := l.fallbackRow(row, rest)
			l.Record(fallback)
			carried = append(carried, fallback)
		}
	}
	return carried, uncarried, nil
}

// ConsumedTotal sums consumed quantity over all lots
func (l *LotLedger) ConsumedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range l.lots {
		total = total.Add(lot.ConsumedQuantity)
	}
	return total
}

// UnbackedTotal sums the indexed quantity not drawn from any lot
func (l *LotLedger) UnbackedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, row := range l.index {
		if row.Source != ConsumptionFromLot {
			total = total.Add(row.Quantity)
		}
	}
	return total
}

func (l *LotLedger) fallbackRow(template LotConsumption, qty decimal.Decimal) LotConsumption {
	row := template
	row.ID = uuid.New()
	row.LotID = nil
	row.Quantity = qty
	if cost, vat, ok := l.LastKnownCost(); ok {
		row.UnitCost = cost
		row.VATRate = vat
		row.Source = ConsumptionFallback
	} else {
		row.UnitCost = decimal.Zero
		row.VATRate = decimal.Zero
		row.Source = ConsumptionMissing
	}
	return row
}
