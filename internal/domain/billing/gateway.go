package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Checkout session metadata keys
const (
	MetadataOrderID     = "order_id"
	MetadataOrderNumber = "order_number"
	MetadataItems       = "items"
	MetadataProductID   = "product_id"
	MetadataVariantSKU  = "variant_sku"
)

// CheckoutLine is one priced line on a hosted checkout page
type CheckoutLine struct {
	ProductID       uuid.UUID
	VariantSKU      string
	Name            string
	Quantity        int64
	UnitAmountCents int64
}

// ShippingOption is the fixed shipping rate offered on the checkout page
type ShippingOption struct {
	Label       string
	AmountCents int64
	MinDays     int
	MaxDays     int
}

// CheckoutSessionRequest describes a hosted checkout session to create
type CheckoutSessionRequest struct {
	OrderID       uuid.UUID
	OrderNumber   string
	CustomerEmail string
	Currency      string
	Lines         []CheckoutLine
	Shipping      *ShippingOption
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
	ExpiresAt     time.Time
}

// CheckoutSession is the created session
type CheckoutSession struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

// SessionLineItem is a purchased line as reported by the payment processor
type SessionLineItem struct {
	ProductID        uuid.UUID
	VariantSKU       string
	Description      string
	Quantity         int64
	UnitAmountCents  int64
	AmountTotalCents int64
}

// PaymentGateway is the outbound port to the payment processor
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)

	// ListSessionLineItems fetches the line items of a completed session
	ListSessionLineItems(ctx context.Context, sessionID string) ([]SessionLineItem, error)
}
