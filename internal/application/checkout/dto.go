package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/inventory"
	"github.com/storefront/fulfillment/internal/domain/shipping"
)

// CheckoutItemInput represents a cart line in a checkout request
type CheckoutItemInput struct {
	ProductID  uuid.UUID `json:"product_id" binding:"required"`
	VariantSKU string    `json:"variant_sku" binding:"max=64"`
	Quantity   int       `json:"quantity" binding:"required,min=1,max=999"`
}

// CreateSessionRequest represents a request to start a hosted checkout
type CreateSessionRequest struct {
	Items           []CheckoutItemInput `json:"items" binding:"required,min=1,max=50,dive"`
	CustomerEmail   string              `json:"customer_email" binding:"omitempty,email"`
	CustomerName    string              `json:"customer_name" binding:"max=200"`
	ShippingAddress *shipping.Address   `json:"shipping_address"`
	SuccessURL      string              `json:"success_url" binding:"omitempty,url"`
	CancelURL       string              `json:"cancel_url" binding:"omitempty,url"`
}

// CreateSessionResponse represents a created checkout session
type CreateSessionResponse struct {
	OrderID       uuid.UUID               `json:"order_id"`
	OrderNumber   string                  `json:"order_number"`
	SessionID     string                  `json:"session_id"`
	URL           string                  `json:"url"`
	ExpiresAt     time.Time               `json:"expires_at"`
	SubtotalCents int64                   `json:"subtotal_cents"`
	Shipping      shipping.Quote          `json:"shipping"`
	TotalCents    int64                   `json:"total_cents"`
	Currency      string                  `json:"currency"`
	Reservation   *inventory.LedgerReport `json:"reservation"`
}
