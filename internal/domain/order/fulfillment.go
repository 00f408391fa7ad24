package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FulfillmentStatus is the shipment sub-status of an order
type FulfillmentStatus string

const (
	FulfillmentUnfulfilled    FulfillmentStatus = "unfulfilled"
	FulfillmentLabelCreated   FulfillmentStatus = "label_created"
	FulfillmentInTransit      FulfillmentStatus = "in_transit"
	FulfillmentOutForDelivery FulfillmentStatus = "out_for_delivery"
	FulfillmentDelivered      FulfillmentStatus = "delivered"
	FulfillmentReturned       FulfillmentStatus = "returned"
	FulfillmentFailed         FulfillmentStatus = "failed"
	FulfillmentException      FulfillmentStatus = "exception"
)

// ShipMethodShip is the default ship method set when an order is committed
const ShipMethodShip = "ship"

var trackingStatusMap = map[string]FulfillmentStatus{
	"pre_transit":      FulfillmentLabelCreated,
	"in_transit":       FulfillmentInTransit,
	"out_for_delivery": FulfillmentOutForDelivery,
	"delivered":        FulfillmentDelivered,
	"return_to_sender": FulfillmentReturned,
	"failure":          FulfillmentFailed,
}

// MapTrackingStatus maps a carrier tracking code to a fulfillment status.
// Unknown codes map to exception.
func MapTrackingStatus(code string) FulfillmentStatus {
	if s, ok := trackingStatusMap[strings.ToLower(strings.TrimSpace(code))]; ok {
		return s
	}
	return FulfillmentException
}

// Fulfillment is the shipping sub-record of an order
type Fulfillment struct {
	Status              FulfillmentStatus `json:"status,omitempty"`
	ShipMethod          string            `json:"ship_method,omitempty"`
	Carrier             string            `json:"carrier,omitempty"`
	Service             string            `json:"service,omitempty"`
	TrackingNumber      string            `json:"tracking_number,omitempty"`
	TrackingURL         string            `json:"tracking_url,omitempty"`
	LabelURL            string            `json:"label_url,omitempty"`
	WeightOz            *float64          `json:"weight_oz,omitempty"`
	ShipDate            *time.Time        `json:"ship_date,omitempty"`
	EstimatedDelivery   *time.Time        `json:"estimated_delivery,omitempty"`
	DeliveredAt         *time.Time        `json:"delivered_at,omitempty"`
	ShipStationOrderID  string            `json:"shipstation_order_id,omitempty"`
	ShipStationOrderKey string            `json:"shipstation_order_key,omitempty"`
}

// TrackingEvent is one carrier-reported status change
type TrackingEvent struct {
	ID         uuid.UUID         `json:"id"`
	OrderID    uuid.UUID         `json:"order_id"`
	Code       string            `json:"code"`
	Status     FulfillmentStatus `json:"status"`
	Detail     string            `json:"detail,omitempty"`
	Source     string            `json:"source"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// ShippingLogEntry records a fulfillment change received from a carrier
type ShippingLogEntry struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Source    string    `json:"source"`
	Event     string    `json:"event"`
	Message   string    `json:"message"`
	Fields    []string  `json:"fields"`
	CreatedAt time.Time `json:"created_at"`
}

// NewShippingLogEntry creates a log entry for the given order
func NewShippingLogEntry(orderID uuid.UUID, source, event, message string, fields []string) ShippingLogEntry {
	return ShippingLogEntry{
		ID:        uuid.New(),
		OrderID:   orderID,
		Source:    source,
		Event:     event,
		Message:   message,
		Fields:    fields,
		CreatedAt: time.Now(),
	}
}

// FulfillmentPatch carries only the fields that are present in the source
// data. Nil fields are left untouched.
type FulfillmentPatch struct {
	Status              *FulfillmentStatus
	Carrier             *string
	Service             *string
	TrackingNumber      *string
	TrackingURL         *string
	LabelURL            *string
	WeightOz            *float64
	ShipDate            *time.Time
	EstimatedDelivery   *time.Time
	DeliveredAt         *time.Time
	ShipStationOrderID  *string
	ShipStationOrderKey *string
}

// Fields returns the names of the fields the patch sets, in a stable order
func (p FulfillmentPatch) Fields() []string {
	fields := make([]string, 0, 12)
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(p.Status != nil, "status")
	add(p.Carrier != nil, "carrier")
	add(p.Service != nil, "service")
	add(p.TrackingNumber != nil, "tracking_number")
	add(p.TrackingURL != nil, "tracking_url")
	add(p.LabelURL != nil, "label_url")
	add(p.WeightOz != nil, "weight_oz")
	add(p.ShipDate != nil, "ship_date")
	add(p.EstimatedDelivery != nil, "estimated_delivery")
	add(p.DeliveredAt != nil, "delivered_at")
	add(p.ShipStationOrderID != nil, "shipstation_order_id")
	add(p.ShipStationOrderKey != nil, "shipstation_order_key")
	return fields
}

// IsEmpty reports whether the patch sets nothing
func (p FulfillmentPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Apply writes the present fields onto f
func (p FulfillmentPatch) Apply(f *Fulfillment) {
	if p.Status != nil {
		f.Status = *p.Status
	}
	if p.Carrier != nil {
		f.Carrier = *p.Carrier
	}
	if p.Service != nil {
		f.Service = *p.Service
	}
	if p.TrackingNumber != nil {
		f.TrackingNumber = *p.TrackingNumber
	}
	if p.TrackingURL != nil {
		f.TrackingURL = *p.TrackingURL
	}
	if p.LabelURL != nil {
		f.LabelURL = *p.LabelURL
	}
	if p.WeightOz != nil {
		f.WeightOz = p.WeightOz
	}
	if p.ShipDate != nil {
		f.ShipDate = p.ShipDate
	}
	if p.EstimatedDelivery != nil {
		f.EstimatedDelivery = p.EstimatedDelivery
	}
	if p.DeliveredAt != nil {
		f.DeliveredAt = p.DeliveredAt
	}
	if p.ShipStationOrderID != nil {
		f.ShipStationOrderID = *p.ShipStationOrderID
	}
	if p.ShipStationOrderKey != nil {
		f.ShipStationOrderKey = *p.ShipStationOrderKey
	}
}
