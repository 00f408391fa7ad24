package order

import (
	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/shared"
)

// Event type constants
const (
	EventTypeOrderCreated       = "OrderCreated"
	EventTypeOrderPaid          = "OrderPaid"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
	EventTypeTrackingUpdated    = "OrderTrackingUpdated"
	EventTypeShipmentRecorded   = "OrderShipmentRecorded"
)

// OrderCreatedEvent is raised when an order is created
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	TotalCents  int64  `json:"total_cents"`
	Currency    string `json:"currency"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateType, o.ID),
		OrderNumber:     o.OrderNumber,
		TotalCents:      o.TotalCents,
		Currency:        o.Currency,
	}
}

// OrderPaidEvent is raised when payment is confirmed
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	OrderNumber     string     `json:"order_number"`
	SessionID       string     `json:"session_id,omitempty"`
	PaymentIntentID string     `json:"payment_intent_id,omitempty"`
	CustomerID      *uuid.UUID `json:"customer_id,omitempty"`
	TotalCents      int64      `json:"total_cents"`
	Currency        string     `json:"currency"`
}

// NewOrderPaidEvent creates a new OrderPaidEvent
func NewOrderPaidEvent(o *Order) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaid, AggregateType, o.ID),
		OrderNumber:     o.OrderNumber,
		SessionID:       o.SessionID(),
		PaymentIntentID: o.PaymentIntentID,
		CustomerID:      o.CustomerID,
		TotalCents:      o.TotalCents,
		Currency:        o.Currency,
	}
}

// OrderStatusChangedEvent is raised on every accepted status transition
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	From        Status `json:"from"`
	To          Status `json:"to"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, from Status) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateType, o.ID),
		OrderNumber:     o.OrderNumber,
		From:            from,
		To:              o.Status,
	}
}

// TrackingUpdatedEvent is raised when a carrier reports a tracking status
type TrackingUpdatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber    string            `json:"order_number"`
	TrackingNumber string            `json:"tracking_number,omitempty"`
	Code           string            `json:"code"`
	Status         FulfillmentStatus `json:"status"`
}

// NewTrackingUpdatedEvent creates a new TrackingUpdatedEvent
func NewTrackingUpdatedEvent(o *Order, ev TrackingEvent) *TrackingUpdatedEvent {
	return &TrackingUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTrackingUpdated, AggregateType, o.ID),
		OrderNumber:     o.OrderNumber,
		TrackingNumber:  o.Fulfillment.TrackingNumber,
		Code:            ev.Code,
		Status:          ev.Status,
	}
}

// ShipmentRecordedEvent is raised when carrier shipment data is written to an order
type ShipmentRecordedEvent struct {
	shared.BaseDomainEvent
	OrderNumber    string   `json:"order_number"`
	Carrier        string   `json:"carrier,omitempty"`
	TrackingNumber string   `json:"tracking_number,omitempty"`
	Fields         []string `json:"fields"`
}

// NewShipmentRecordedEvent creates a new ShipmentRecordedEvent
func NewShipmentRecordedEvent(o *Order, fields []string) *ShipmentRecordedEvent {
	return &ShipmentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentRecorded, AggregateType, o.ID),
		OrderNumber:     o.OrderNumber,
		Carrier:         o.Fulfillment.Carrier,
		TrackingNumber:  o.Fulfillment.TrackingNumber,
		Fields:          fields,
	}
}
