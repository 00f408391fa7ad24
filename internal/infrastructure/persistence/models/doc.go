// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: shared columns (BaseModel, AggregateModel)
//   - catalog.go: products and variants
//   - inventory.go: the stock movement audit trail
//   - order.go: orders, tracking events and the shipping log
//   - billing.go: customers and invoices
package models
