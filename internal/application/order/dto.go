package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/order"
	"github.com/storefront/fulfillment/internal/domain/shipping"
)

// UpdateStatusRequest represents a human-driven status change
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending paid unfulfilled processing fulfilled cancelled refunded"`
	Reason string `json:"reason" binding:"max=200"`
}

// ListOrdersRequest represents paging options for the order list
type ListOrdersRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	VariantSKU     string    `json:"variant_sku,omitempty"`
	SKU            string    `json:"sku,omitempty"`
	Name           string    `json:"name,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                   uuid.UUID                `json:"id"`
	OrderNumber          string                   `json:"order_number"`
	Status               string                   `json:"status"`
	PaymentStatus        string                   `json:"payment_status"`
	Items                []OrderItemResponse      `json:"items"`
	CustomerID           *uuid.UUID               `json:"customer_id,omitempty"`
	CustomerEmail        string                   `json:"customer_email,omitempty"`
	CustomerName         string                   `json:"customer_name,omitempty"`
	ShippingAddress      *shipping.Address        `json:"shipping_address,omitempty"`
	ShippingLabel        string                   `json:"shipping_label,omitempty"`
	SubtotalCents        int64                    `json:"subtotal_cents"`
	ShippingCents        int64                    `json:"shipping_cents"`
	TotalCents           int64                    `json:"total_cents"`
	Currency             string                   `json:"currency"`
	StripeSessionID      string                   `json:"stripe_session_id,omitempty"`
	PaymentIntentID      string                   `json:"payment_intent_id,omitempty"`
	PaidAt               *time.Time               `json:"paid_at,omitempty"`
	ReservationExpiresAt *time.Time               `json:"reservation_expires_at,omitempty"`
	Fulfillment          order.Fulfillment        `json:"fulfillment"`
	TrackingEvents       []order.TrackingEvent    `json:"tracking_events,omitempty"`
	ShippingLog          []order.ShippingLogEntry `json:"shipping_log,omitempty"`
	Version              int                      `json:"version"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ProductID:      item.ProductID,
			VariantSKU:     item.VariantSKU,
			SKU:            item.SKU,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		}
	}
	return OrderResponse{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		Status:               string(o.Status),
		PaymentStatus:        string(o.PaymentStatus),
		Items:                items,
		CustomerID:           o.CustomerID,
		CustomerEmail:        o.CustomerEmail,
		CustomerName:         o.CustomerName,
		ShippingAddress:      o.ShippingAddress,
		ShippingLabel:        o.ShippingLabel,
		SubtotalCents:        o.SubtotalCents,
		ShippingCents:        o.ShippingCents,
		TotalCents:           o.TotalCents,
		Currency:             o.Currency,
		StripeSessionID:      o.SessionID(),
		PaymentIntentID:      o.PaymentIntentID,
		PaidAt:               o.PaidAt,
		ReservationExpiresAt: o.ReservationExpiresAt,
		Fulfillment:          o.Fulfillment,
		TrackingEvents:       o.TrackingEvents,
		ShippingLog:          o.ShippingLog,
		Version:              o.Version,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

// OrderListItemResponse is the compact list view of an order
type OrderListItemResponse struct {
	ID                uuid.UUID `json:"id"`
	OrderNumber       string    `json:"order_number"`
	Status            string    `json:"status"`
	PaymentStatus     string    `json:"payment_status"`
	FulfillmentStatus string    `json:"fulfillment_status,omitempty"`
	TotalCents        int64     `json:"total_cents"`
	Currency          string    `json:"currency"`
	CustomerEmail     string    `json:"customer_email,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ToOrderListItemResponses converts orders to list items
func ToOrderListItemResponses(orders []order.Order) []OrderListItemResponse {
	out := make([]OrderListItemResponse, len(orders))
	for i := range orders {
		o := &orders[i]
		out[i] = OrderListItemResponse{
			ID:                o.ID,
			OrderNumber:       o.OrderNumber,
			Status:            string(o.Status),
			PaymentStatus:     string(o.PaymentStatus),
			FulfillmentStatus: string(o.Fulfillment.Status),
			TotalCents:        o.TotalCents,
			Currency:          o.Currency,
			CustomerEmail:     o.CustomerEmail,
			CreatedAt:         o.CreatedAt,
		}
	}
	return out
}
