// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: base persistence models (BaseModel, AggregateModel, StoreAggregateModel)
//   - seller.go: stores
//   - costing.go: cost lots, the consumption index, purchase orders
//   - trade.go: marketplace orders with their cost-stamped lines, return claims
//   - finance.go: invoice lines, expense definitions, product references, ad metrics
package models

// All returns every model, in dependency order, for AutoMigrate in tests and dev setups
func All() []any {
	return []any{
		&StoreModel{},
		&CostLotModel{},
		&LotConsumptionModel{},
		&PurchaseOrderModel{},
		&PurchaseOrderItemModel{},
		&OrderModel{},
		&OrderLineModel{},
		&ReturnClaimModel{},
		&InvoiceLineModel{},
		&ExpenseDefinitionModel{},
		&ProductReferenceModel{},
		&AdMetricModel{},
	}
}
