package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/shared"
)

// InvoiceStatus is the state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPaid InvoiceStatus = "paid"
	InvoiceStatusVoid InvoiceStatus = "void"
)

// Invoice is the billing record for a paid checkout. One invoice exists
// per payment session.
type Invoice struct {
	shared.BaseEntity
	InvoiceNumber string
	OrderID       uuid.UUID
	CustomerID    *uuid.UUID
	SessionID     string
	AmountCents   int64
	Currency      string
	Status        InvoiceStatus
	IssuedAt      time.Time
}

// NewInvoice creates a paid invoice for an order
func NewInvoice(orderID uuid.UUID, orderNumber, sessionID string, amountCents int64, currency string) (*Invoice, error) {
	if sessionID == "" {
		return nil, shared.NewDomainError("INVALID_SESSION", "Invoice requires a payment session id")
	}
	now := time.Now()
	return &Invoice{
		BaseEntity:    shared.NewBaseEntity(),
		InvoiceNumber: fmt.Sprintf("INV-%s", orderNumber),
		OrderID:       orderID,
		SessionID:     sessionID,
		AmountCents:   amountCents,
		Currency:      currency,
		Status:        InvoiceStatusPaid,
		IssuedAt:      now,
	}, nil
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	FindBySessionID(ctx context.Context, sessionID string) (*Invoice, error)

	// Create inserts an invoice; shared.ErrAlreadyExists if one exists for the session
	Create(ctx context.Context, inv *Invoice) error
}
