package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/shared"
	"github.com/sellerpnl/backend/internal/domain/trade"
)

type orderRepo struct{ v *view }

func copyOrder(o trade.Order) trade.Order {
	o.Lines = append([]trade.OrderLine(nil), o.Lines...)
	o.ClearDomainEvents()
	return o
}

func sortOrders(orders []*trade.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].OrderDate.Equal(orders[j].OrderDate) {
			return orders[i].OrderDate.Before(orders[j].OrderDate)
		}
		return orders[i].ID.String() < orders[j].ID.String()
	})
}

func (r orderRepo) FindByID(ctx context.Context, storeID, id uuid.UUID) (*trade.Order, error) {
	var out *trade.Order
	err := r.v.read(func(d *data) error {
		o, ok := d.orders[id]
		if !ok || o.StoreID != storeID {
			return shared.NewDomainError(shared.CodeNotFound, "Order not found")
		}
		c := copyOrder(o)
		out = &c
		return nil
	})
	return out, err
}

func (r orderRepo) FindByIDs(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]*trade.Order, error) {
	var out []*trade.Order
	err := r.v.read(func(d *data) error {
		for _, id := range ids {
			if o, ok := d.orders[id]; ok && o.StoreID == storeID {
				c := copyOrder(o)
				out = append(out, &c)
			}
		}
		return nil
	})
	sortOrders(out)
	return out, err
}

func (r orderRepo) FindRevenueOrders(ctx context.Context, storeID uuid.UUID, period shared.DateRange) ([]*trade.Order, error) {
	var out []*trade.Order
	err := r.v.read(func(d *data) error {
		for _, o := range d.orders {
			if o.StoreID == storeID && o.Status.CountsAsRevenue() && period.Contains(o.OrderDate) {
				c := copyOrder(o)
				out = append(out, &c)
			}
		}
		return nil
	})
	sortOrders(out)
	return out, err
}

func (r orderRepo) FindSoldLines(ctx context.Context, storeID uuid.UUID, barcode string) ([]trade.SoldLine, error) {
	var out []trade.SoldLine
	err := r.v.read(func(d *data) error {
		for _, o := range d.orders {
			if o.StoreID != storeID || !o.Status.ConsumesStock() {
				continue
			}
			for _, line := range o.Lines {
				if line.Barcode == barcode {
					out = append(out, trade.SoldLine{OrderID: o.ID, OrderDate: o.OrderDate, Status: o.Status, Line: line})
				}
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].OrderDate.Before(out[j].OrderDate)
		}
		if out[i].OrderID != out[j].OrderID {
			return out[i].OrderID.String() < out[j].OrderID.String()
		}
		return out[i].Line.ID.String() < out[j].Line.ID.String()
	})
	return out, err
}

func (r orderRepo) Save(ctx context.Context, order *trade.Order) error {
	return r.v.write(func(d *data) error {
		d.orders[order.ID] = copyOrder(*order)
		return nil
	})
}

func (r orderRepo) UpdateLineCosts(ctx context.Context, storeID uuid.UUID, costs []trade.LineCost) error {
	if len(costs) == 0 {
		return nil
	}
	return r.v.write(func(d *data) error {
		owner := make(map[uuid.UUID]uuid.UUID)
		for id, o := range d.orders {
			if o.StoreID != storeID {
				continue
			}
			for _, line := range o.Lines {
				owner[line.ID] = id
			}
		}
		for _, c := range costs {
			if _, ok := owner[c.LineID]; !ok {
				return shared.NewDomainError(shared.CodeNotFound, "Order line not found: "+c.LineID.String())
			}
		}
		for _, c := range costs {
			o := copyOrder(d.orders[owner[c.LineID]])
			o.Line(c.LineID).ApplyCostStamp(c)
			d.orders[o.ID] = o
		}
		return nil
	})
}

type returnRepo struct{ v *view }

func (r returnRepo) FindByReturnDate(ctx context.Context, storeID uuid.UUID, period shared.DateRange) ([]trade.ReturnClaim, error) {
	var out []trade.ReturnClaim
	err := r.v.read(func(d *data) error {
		for _, c := range d.returns {
			if c.StoreID == storeID && period.Contains(c.ReturnDate) {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReturnDate.Equal(out[j].ReturnDate) {
			return out[i].ReturnDate.Before(out[j].ReturnDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, err
}

func (r returnRepo) Create(ctx context.Context, claim *trade.ReturnClaim) error {
	return r.v.write(func(d *data) error {
		if _, exists := d.returns[claim.ID]; exists {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Return claim already exists")
		}
		d.returns[claim.ID] = *claim
		return nil
	})
}

var (
	_ trade.OrderRepository       = orderRepo{}
	_ trade.ReturnClaimRepository = returnRepo{}
)
