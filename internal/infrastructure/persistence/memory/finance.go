package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/sellerpnl/backend/internal/domain/finance"
	"github.com/sellerpnl/backend/internal/domain/seller"
	"github.com/sellerpnl/backend/internal/domain/shared"
)

type invoiceRepo struct{ v *view }

func (r invoiceRepo) filter(keep func(l *finance.InvoiceLine) bool) ([]finance.InvoiceLine, error) {
	var out []finance.InvoiceLine
	err := r.v.read(func(d *data) error {
		for _, l := range d.invoices {
			if keep(&l) {
				out = append(out, l)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].InvoiceDate.Equal(out[j].InvoiceDate) {
			return out[i].InvoiceDate.Before(out[j].InvoiceDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, err
}

func (r invoiceRepo) FindByDateRange(ctx context.Context, storeID uuid.UUID, period shared.DateRange, kinds ...finance.InvoiceKind) ([]finance.InvoiceLine, error) {
	return r.filter(func(l *finance.InvoiceLine) bool {
		if l.StoreID != storeID || !period.Contains(l.InvoiceDate) {
			return false
		}
		if len(kinds) == 0 {
			return true
		}
		for _, k := range kinds {
			if l.Kind == k {
				return true
			}
		}
		return false
	})
}

func (r invoiceRepo) FindByOrders(ctx context.Context, storeID uuid.UUID, kind finance.InvoiceKind, orderIDs []uuid.UUID) ([]finance.InvoiceLine, error) {
	wanted := make(map[uuid.UUID]bool, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = true
	}
	return r.filter(func(l *finance.InvoiceLine) bool {
		return l.StoreID == storeID && l.Kind == kind && l.OrderID != nil && wanted[*l.OrderID]
	})
}

func (r invoiceRepo) FindByKind(ctx context.Context, storeID uuid.UUID, kind finance.InvoiceKind) ([]finance.InvoiceLine, error) {
	return r.filter(func(l *finance.InvoiceLine) bool {
		return l.StoreID == storeID && l.Kind == kind
	})
}

func (r invoiceRepo) Create(ctx context.Context, line *finance.InvoiceLine) error {
	return r.v.write(func(d *data) error {
		if _, exists := d.invoices[line.ID]; exists {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Invoice line already exists")
		}
		d.invoices[line.ID] = *line
		return nil
	})
}

func (r invoiceRepo) CreateBatch(ctx context.Context, lines []*finance.InvoiceLine) error {
	return r.v.write(func(d *data) error {
		ids := make(map[uuid.UUID]struct{}, len(lines))
		for _, l := range lines {
			_, exists := d.invoices[l.ID]
			_, repeated := ids[l.ID]
			if exists || repeated {
				return shared.NewDomainError(shared.CodeAlreadyExists, "Invoice line already exists")
			}
			ids[l.ID] = struct{}{}
		}
		for _, l := range lines {
			d.invoices[l.ID] = *l
		}
		return nil
	})
}

type expenseRepo struct{ v *view }

func (r expenseRepo) FindActive(ctx context.Context, storeID uuid.UUID) ([]finance.ExpenseDefinition, error) {
	var out []finance.ExpenseDefinition
	err := r.v.read(func(d *data) error {
		for _, e := range d.expenses {
			if e.StoreID == storeID && e.Active {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, err
}

func (r expenseRepo) Save(ctx context.Context, expense *finance.ExpenseDefinition) error {
	return r.v.write(func(d *data) error {
		d.expenses[expense.ID] = *expense
		return nil
	})
}

type referenceRepo struct{ v *view }

func (r referenceRepo) FindByStore(ctx context.Context, storeID uuid.UUID) ([]finance.ProductReference, error) {
	var out []finance.ProductReference
	err := r.v.read(func(d *data) error {
		for key, ref := range d.references {
			if key.storeID == storeID {
				out = append(out, ref)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Barcode < out[j].Barcode })
	return out, err
}

func (r referenceRepo) Upsert(ctx context.Context, refs []finance.ProductReference) error {
	return r.v.write(func(d *data) error {
		for _, ref := range refs {
			d.references[productKey{ref.StoreID, ref.Barcode}] = ref
		}
		return nil
	})
}

type adMetricRepo struct{ v *view }

func (r adMetricRepo) FindOverlapping(ctx context.Context, storeID uuid.UUID, period shared.DateRange) ([]finance.AdMetric, error) {
	var out []finance.AdMetric
	err := r.v.read(func(d *data) error {
		for _, m := range d.adMetrics {
			if m.StoreID == storeID && !m.PeriodStart.After(period.End) && !m.PeriodEnd.Before(period.Start) {
				out = append(out, m)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PeriodEnd.Equal(out[j].PeriodEnd) {
			return out[i].PeriodEnd.Before(out[j].PeriodEnd)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, err
}

func (r adMetricRepo) Save(ctx context.Context, metric *finance.AdMetric) error {
	return r.v.write(func(d *data) error {
		d.adMetrics[metric.ID] = *metric
		return nil
	})
}

type storeRepo struct{ v *view }

func (r storeRepo) FindByID(ctx context.Context, id uuid.UUID) (*seller.Store, error) {
	var out *seller.Store
	err := r.v.read(func(d *data) error {
		s, ok := d.stores[id]
		if !ok {
			return shared.ErrStoreNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

func (r storeRepo) FindAll(ctx context.Context) ([]*seller.Store, error) {
	var out []*seller.Store
	err := r.v.read(func(d *data) error {
		for _, s := range d.stores {
			out = append(out, &s)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, err
}

func (r storeRepo) Save(ctx context.Context, store *seller.Store) error {
	return r.v.write(func(d *data) error {
		d.stores[store.ID] = *store
		return nil
	})
}

var (
	_ finance.InvoiceRepository          = invoiceRepo{}
	_ finance.ExpenseRepository          = expenseRepo{}
	_ finance.ProductReferenceRepository = referenceRepo{}
	_ finance.AdMetricRepository         = adMetricRepo{}
	_ seller.StoreRepository             = storeRepo{}
)
