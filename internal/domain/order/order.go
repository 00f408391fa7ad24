package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/inventory"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/storefront/fulfillment/internal/domain/shipping"
)

// AggregateType is the aggregate name used on domain events
const AggregateType = "Order"

// LineItem is a cart line captured on the order
type LineItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	VariantSKU     string    `json:"variant_sku,omitempty"`
	SKU            string    `json:"sku,omitempty"`
	Name           string    `json:"name,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
}

// Order is the aggregate root for checkout, payment and fulfillment state
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber          string
	Status               Status
	PaymentStatus        PaymentStatus
	Items                []LineItem
	CustomerID           *uuid.UUID
	CustomerEmail        string
	CustomerName         string
	ShippingAddress      *shipping.Address
	ShippingLabel        string
	SubtotalCents        int64
	ShippingCents        int64
	TotalCents           int64
	Currency             string
	StripeSessionID      *string
	PaymentIntentID      string
	PaidAt               *time.Time
	ReservationExpiresAt *time.Time
	Fulfillment          Fulfillment
	TrackingEvents       []TrackingEvent
	ShippingLog          []ShippingLogEntry
}

// NewOrder creates a pending, unpaid order
func NewOrder(orderNumber string, items []LineItem, currency string) (*Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "Order must have at least one item")
	}
	if currency == "" {
		currency = "usd"
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		Status:            StatusPending,
		PaymentStatus:     PaymentStatusUnpaid,
		Items:             items,
		Currency:          strings.ToLower(currency),
	}
	for _, item := range items {
		o.SubtotalCents += item.UnitPriceCents * int64(item.Quantity)
	}
	o.TotalCents = o.SubtotalCents
	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return o, nil
}

// GenerateOrderNumber returns a human-readable order number such as ORD-20260510-3FA85F64
func GenerateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// SetShipping records the selected shipping option and recomputes the total
func (o *Order) SetShipping(label string, amountCents int64) {
	o.ShippingLabel = label
	o.ShippingCents = amountCents
	o.TotalCents = o.SubtotalCents + amountCents
	o.Touch()
}

// SetCustomer links the order to a customer
func (o *Order) SetCustomer(id uuid.UUID, email, name string) {
	o.CustomerID = &id
	o.CustomerEmail = email
	o.CustomerName = name
	o.Touch()
}

// AttachCheckoutSession stores the payment session id used as idempotency key
func (o *Order) AttachCheckoutSession(sessionID string, expiresAt *time.Time) {
	o.StripeSessionID = &sessionID
	o.ReservationExpiresAt = expiresAt
	o.Touch()
}

// SessionID returns the payment session id or ""
func (o *Order) SessionID() string {
	if o.StripeSessionID == nil {
		return ""
	}
	return *o.StripeSessionID
}

// TransitionTo moves the order to next through the transition guard
func (o *Order) TransitionTo(next Status) error {
	if !next.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown order status: %s", next))
	}
	if err := CanTransition(o.Status, next); err != nil {
		return err
	}
	if o.Status == next {
		return nil
	}
	prev := o.Status
	o.Status = next
	o.Touch()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, prev))
	return nil
}

// MarkPaid records a confirmed payment. Orders already past pending are left
// as they are and false is returned.
func (o *Order) MarkPaid(paymentIntentID string, amountTotalCents int64, at time.Time) (bool, error) {
	if o.PaymentStatus == PaymentStatusPaid {
		return false, nil
	}
	if o.Status != StatusPending && o.Status != "" {
		return false, nil
	}
	if err := o.TransitionTo(StatusPaid); err != nil {
		return false, err
	}
	o.PaymentStatus = PaymentStatusPaid
	if paymentIntentID != "" {
		o.PaymentIntentID = paymentIntentID
	}
	if amountTotalCents > 0 {
		o.TotalCents = amountTotalCents
	}
	o.PaidAt = &at
	o.ReservationExpiresAt = nil
	o.AddDomainEvent(NewOrderPaidEvent(o))
	return true, nil
}

// Expire cancels an abandoned checkout
func (o *Order) Expire() error {
	if err := o.TransitionTo(StatusCancelled); err != nil {
		return err
	}
	o.PaymentStatus = PaymentStatusExpired
	o.ReservationExpiresAt = nil
	return nil
}

// InitFulfillment sets the initial fulfillment record if none exists
func (o *Order) InitFulfillment() {
	if o.Fulfillment.Status == "" {
		o.Fulfillment.Status = FulfillmentUnfulfilled
	}
	if o.Fulfillment.ShipMethod == "" {
		o.Fulfillment.ShipMethod = ShipMethodShip
	}
}

// ApplyFulfillmentPatch applies a carrier patch in memory and returns the
// names of the fields it set
func (o *Order) ApplyFulfillmentPatch(p FulfillmentPatch) []string {
	p.Apply(&o.Fulfillment)
	o.Touch()
	return p.Fields()
}

// RecordShipment applies carrier shipment data and raises ShipmentRecorded.
// An empty patch changes nothing and returns nil.
func (o *Order) RecordShipment(p FulfillmentPatch) []string {
	if p.IsEmpty() {
		return nil
	}
	fields := o.ApplyFulfillmentPatch(p)
	o.AddDomainEvent(NewShipmentRecordedEvent(o, fields))
	return fields
}

// ApplyTrackingStatus maps a carrier tracking code onto the fulfillment
// status and returns the tracking event to append. Delivered stamps DeliveredAt.
func (o *Order) ApplyTrackingStatus(code, detail, source string, at time.Time) (TrackingEvent, FulfillmentPatch) {
	status := MapTrackingStatus(code)
	patch := FulfillmentPatch{Status: &status}
	if status == FulfillmentDelivered {
		delivered := at
		patch.DeliveredAt = &delivered
	}
	patch.Apply(&o.Fulfillment)
	o.Touch()

	ev := TrackingEvent{
		ID:         uuid.New(),
		OrderID:    o.ID,
		Code:       code,
		Status:     status,
		Detail:     detail,
		Source:     source,
		OccurredAt: at,
	}
	o.TrackingEvents = append(o.TrackingEvents, ev)
	o.AddDomainEvent(NewTrackingUpdatedEvent(o, ev))
	return ev, patch
}

// LedgerItems converts the order lines for the inventory ledger
func (o *Order) LedgerItems() []inventory.LineItem {
	items := make([]inventory.LineItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, inventory.LineItem{
			ProductID:  item.ProductID,
			VariantSKU: item.VariantSKU,
			Quantity:   float64(item.Quantity),
		})
	}
	return items
}
