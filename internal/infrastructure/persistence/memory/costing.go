package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/costing"
	"github.com/sellerpnl/backend/internal/domain/shared"
)

type lotRepo struct{ v *view }

func copyLot(l costing.CostLot) *costing.CostLot {
	l.ClearDomainEvents()
	return &l
}

func (r lotRepo) FindByID(ctx context.Context, storeID, id uuid.UUID) (*costing.CostLot, error) {
	var out *costing.CostLot
	err := r.v.read(func(d *data) error {
		lot, ok := d.lots[id]
		if !ok || lot.StoreID != storeID {
			return shared.NewDomainError(shared.CodeNotFound, "Cost lot not found")
		}
		out = copyLot(lot)
		return nil
	})
	return out, err
}

func (r lotRepo) FindByBarcode(ctx context.Context, storeID uuid.UUID, barcode string) ([]*costing.CostLot, error) {
	return r.filter(storeID, func(l *costing.CostLot) bool { return l.Barcode == barcode })
}

func (r lotRepo) FindByStore(ctx context.Context, storeID uuid.UUID) ([]*costing.CostLot, error) {
	return r.filter(storeID, func(*costing.CostLot) bool { return true })
}

func (r lotRepo) filter(storeID uuid.UUID, keep func(l *costing.CostLot) bool) ([]*costing.CostLot, error) {
	var out []*costing.CostLot
	err := r.v.read(func(d *data) error {
		for _, lot := range d.lots {
			if lot.StoreID == storeID && keep(&lot) {
				out = append(out, copyLot(lot))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Barcode != out[j].Barcode {
			return out[i].Barcode < out[j].Barcode
		}
		return out[i].SortsBefore(out[j])
	})
	return out, err
}

func (r lotRepo) FindBySourceRef(ctx context.Context, storeID, sourceRef uuid.UUID) (*costing.CostLot, error) {
	var out *costing.CostLot
	err := r.v.read(func(d *data) error {
		for _, lot := range d.lots {
			if lot.StoreID == storeID && lot.SourceRef != nil && *lot.SourceRef == sourceRef {
				out = copyLot(lot)
				return nil
			}
		}
		return shared.NewDomainError(shared.CodeNotFound, "Cost lot not found")
	})
	return out, err
}

func (r lotRepo) NextSeq(ctx context.Context, storeID uuid.UUID, barcode string) (int64, error) {
	var next int64 = 1
	err := r.v.read(func(d *data) error {
		for _, lot := range d.lots {
			if lot.StoreID == storeID && lot.Barcode == barcode && lot.Seq >= next {
				next = lot.Seq + 1
			}
		}
		return nil
	})
	return next, err
}

func (r lotRepo) Create(ctx context.Context, lot *costing.CostLot) error {
	return r.v.write(func(d *data) error {
		if _, exists := d.lots[lot.ID]; exists {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Cost lot already exists")
		}
		if lot.SourceRef != nil {
			for _, other := range d.lots {
				if other.SourceRef != nil && *other.SourceRef == *lot.SourceRef {
					return shared.NewDomainError(shared.CodeAlreadyExists, "A lot already exists for this purchase order item")
				}
			}
		}
		d.lots[lot.ID] = *copyLot(*lot)
		return nil
	})
}

func (r lotRepo) SaveWithLock(ctx context.Context, lot *costing.CostLot) error {
	return r.v.write(func(d *data) error {
		stored, ok := d.lots[lot.ID]
		if !ok || stored.StoreID != lot.StoreID {
			return shared.NewDomainError(shared.CodeNotFound, "Cost lot not found")
		}
		if stored.Version != lot.Version-1 {
			return shared.NewDomainError(shared.CodeConcurrencyConflict, "Cost lot was modified by another process")
		}
		d.lots[lot.ID] = *copyLot(*lot)
		return nil
	})
}

type consumptionRepo struct{ v *view }

func (r consumptionRepo) FindByBarcode(ctx context.Context, storeID uuid.UUID, barcode string) ([]costing.LotConsumption, error) {
	var out []costing.LotConsumption
	err := r.v.read(func(d *data) error {
		out = append(out, d.consumptions[productKey{storeID, barcode}]...)
		return nil
	})
	return out, err
}

func (r consumptionRepo) FindByOrderLines(ctx context.Context, storeID uuid.UUID, lineIDs []uuid.UUID) ([]costing.LotConsumption, error) {
	wanted := make(map[uuid.UUID]bool, len(lineIDs))
	for _, id := range lineIDs {
		wanted[id] = true
	}
	var out []costing.LotConsumption
	err := r.v.read(func(d *data) error {
		for key, rows := range d.consumptions {
			if key.storeID != storeID {
				continue
			}
			for _, row := range rows {
				if wanted[row.OrderLineID] {
					out = append(out, row)
				}
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ConsumedAt.Before(out[j].ConsumedAt) })
	return out, err
}

func (r consumptionRepo) Append(ctx context.Context, rows []costing.LotConsumption) error {
	if len(rows) == 0 {
		return nil
	}
	return r.v.write(func(d *data) error {
		for _, row := range rows {
			key := productKey{row.StoreID, row.Barcode}
			d.consumptions[key] = append(d.consumptions[key], row)
		}
		return nil
	})
}

func (r consumptionRepo) ReplaceForBarcode(ctx context.Context, storeID uuid.UUID, barcode string, rows []costing.LotConsumption) error {
	return r.v.write(func(d *data) error {
		d.consumptions[productKey{storeID, barcode}] = append([]costing.LotConsumption(nil), rows...)
		return nil
	})
}

type purchaseOrderRepo struct{ v *view }

func copyPurchaseOrder(po costing.PurchaseOrder) costing.PurchaseOrder {
	po.Items = append([]costing.PurchaseOrderItem(nil), po.Items...)
	po.ClearDomainEvents()
	return po
}

func (r purchaseOrderRepo) FindByID(ctx context.Context, storeID, id uuid.UUID) (*costing.PurchaseOrder, error) {
	var out *costing.PurchaseOrder
	err := r.v.read(func(d *data) error {
		po, ok := d.purchaseOrders[id]
		if !ok || po.StoreID != storeID {
			return shared.NewDomainError(shared.CodeNotFound, "Purchase order not found")
		}
		c := copyPurchaseOrder(po)
		out = &c
		return nil
	})
	return out, err
}

func (r purchaseOrderRepo) Save(ctx context.Context, po *costing.PurchaseOrder) error {
	return r.v.write(func(d *data) error {
		d.purchaseOrders[po.ID] = copyPurchaseOrder(*po)
		return nil
	})
}

var (
	_ costing.CostLotRepository       = lotRepo{}
	_ costing.ConsumptionRepository   = consumptionRepo{}
	_ costing.PurchaseOrderRepository = purchaseOrderRepo{}
)
