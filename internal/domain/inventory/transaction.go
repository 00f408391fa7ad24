package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the type of inventory transaction
type TransactionType string

const (
	TransactionTypeSale        TransactionType = "sale"
	TransactionTypeReturn      TransactionType = "return"
	TransactionTypeReservation TransactionType = "reservation"
	TransactionTypeRelease     TransactionType = "release"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeSale, TransactionTypeReturn, TransactionTypeReservation, TransactionTypeRelease:
		return true
	}
	return false
}

// Audit reasons
const (
	ReasonCheckoutHold   = "Checkout hold."
	ReasonOrderCancelled = "Order cancelled/refunded"
	ReasonExpired        = "expired"
	ReasonSale           = "Order paid."
)

// Transaction is an append-only audit entry for a stock movement.
// Quantity is signed: sales carry a negative delta.
type Transaction struct {
	ID         uuid.UUID
	ProductID  uuid.UUID
	VariantSKU string
	Type       TransactionType
	Quantity   decimal.Decimal
	OrderRef   string
	Reason     string
	// DedupeKey, when set, is unique across the audit trail.
	DedupeKey *string
	CreatedAt time.Time
}

// NewTransaction creates an audit entry
func NewTransaction(txType TransactionType, productID uuid.UUID, variantSKU string, quantity decimal.Decimal, orderRef, reason string) *Transaction {
	return &Transaction{
		ID:         uuid.New(),
		ProductID:  productID,
		VariantSKU: variantSKU,
		Type:       txType,
		Quantity:   quantity,
		OrderRef:   orderRef,
		Reason:     reason,
		CreatedAt:  time.Now(),
	}
}

// NewSaleTransaction records a committed sale. At most one sale entry is kept
// per order line, so repeating a commit does not duplicate the audit trail.
func NewSaleTransaction(orderID, productID uuid.UUID, variantSKU string, quantity decimal.Decimal) *Transaction {
	tx := NewTransaction(TransactionTypeSale, productID, variantSKU, quantity.Neg(), orderID.String(), ReasonSale)
	key := SaleDedupeKey(orderID, productID, variantSKU)
	tx.DedupeKey = &key
	return tx
}

// SaleDedupeKey builds the unique audit key for a sale line
func SaleDedupeKey(orderID, productID uuid.UUID, variantSKU string) string {
	return fmt.Sprintf("sale:%s:%s:%s", orderID, productID, variantSKU)
}
