package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/fulfillment/internal/domain/inventory"
)

// InventoryTransactionModel is the persistence model for a stock movement
// audit entry. Rows are append-only.
type InventoryTransactionModel struct {
	ID         uuid.UUID                 `gorm:"type:uuid;primary_key"`
	ProductID  uuid.UUID                 `gorm:"type:uuid;not null;index"`
	VariantSKU string                    `gorm:"type:varchar(100)"`
	Type       inventory.TransactionType `gorm:"type:varchar(20);not null"`
	Quantity   decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	OrderRef   string                    `gorm:"type:varchar(100);index"`
	Reason     string                    `gorm:"type:varchar(255)"`
	DedupeKey  *string                   `gorm:"type:varchar(255);uniqueIndex"`
	CreatedAt  time.Time                 `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (InventoryTransactionModel) TableName() string {
	return "inventory_transactions"
}

// ToDomain converts the persistence model to a domain Transaction.
func (m *InventoryTransactionModel) ToDomain() *inventory.Transaction {
	return &inventory.Transaction{
		ID:         m.ID,
		ProductID:  m.ProductID,
		VariantSKU: m.VariantSKU,
		Type:       m.Type,
		Quantity:   m.Quantity,
		OrderRef:   m.OrderRef,
		Reason:     m.Reason,
		DedupeKey:  m.DedupeKey,
		CreatedAt:  m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain Transaction.
func (m *InventoryTransactionModel) FromDomain(tx *inventory.Transaction) {
	m.ID = tx.ID
	m.ProductID = tx.ProductID
	m.VariantSKU = tx.VariantSKU
	m.Type = tx.Type
	m.Quantity = tx.Quantity
	m.OrderRef = tx.OrderRef
	m.Reason = tx.Reason
	m.DedupeKey = tx.DedupeKey
	m.CreatedAt = tx.CreatedAt
}

// InventoryTransactionModelFromDomain creates a new persistence model from a domain Transaction.
func InventoryTransactionModelFromDomain(tx *inventory.Transaction) *InventoryTransactionModel {
	m := &InventoryTransactionModel{}
	m.FromDomain(tx)
	return m
}
