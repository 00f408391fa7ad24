package webhook

import (
	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/inventory"
)

// Result statuses
const (
	StatusProcessed = "processed"
	StatusDuplicate = "duplicate"
	StatusIgnored   = "ignored"
	StatusUpdated   = "updated"
	StatusPending   = "pending"
)

// WebhookResult contains the result of processing a payment webhook
type WebhookResult struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Processed bool            `json:"processed"`
	Duplicate bool            `json:"duplicate,omitempty"`
	Message   string          `json:"message,omitempty"`
	Checkout  *CheckoutResult `json:"checkout,omitempty"`
}

// CheckoutResult describes what a completed or expired session did
type CheckoutResult struct {
	SessionID     string                  `json:"session_id"`
	OrderID       uuid.UUID               `json:"order_id,omitempty"`
	OrderNumber   string                  `json:"order_number,omitempty"`
	Status        string                  `json:"status"`
	Created       bool                    `json:"created"`
	Ledger        *inventory.LedgerReport `json:"ledger,omitempty"`
	InvoiceNumber string                  `json:"invoice_number,omitempty"`
	Warnings      []string                `json:"warnings,omitempty"`
}

func (r *CheckoutResult) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// ShipNotifyPayload is the body ShipStation posts for SHIP_NOTIFY
type ShipNotifyPayload struct {
	ResourceURL  string                `json:"resource_url"`
	ResourceType string                `json:"resource_type"`
	Shipments    []ShipStationShipment `json:"shipments,omitempty"`
}

// ShipStationWeight is a shipment weight in the reported units
type ShipStationWeight struct {
	Value float64 `json:"value"`
	Units string  `json:"units"`
}

// ShipStationAdvancedOptions carries the custom fields set at order export
type ShipStationAdvancedOptions struct {
	CustomField1 string `json:"customField1"`
	CustomField2 string `json:"customField2"`
}

// ShipStationShipment is one shipment as returned by the ShipStation API
type ShipStationShipment struct {
	ShipmentID      int64                      `json:"shipmentId"`
	OrderID         int64                      `json:"orderId"`
	OrderKey        string                     `json:"orderKey"`
	OrderNumber     string                     `json:"orderNumber"`
	CarrierCode     string                     `json:"carrierCode"`
	ServiceCode     string                     `json:"serviceCode"`
	TrackingNumber  string                     `json:"trackingNumber"`
	ShipDate        string                     `json:"shipDate"`
	Voided          bool                       `json:"voided"`
	LabelData       string                     `json:"labelData,omitempty"`
	Weight          *ShipStationWeight         `json:"weight,omitempty"`
	AdvancedOptions ShipStationAdvancedOptions `json:"advancedOptions"`
}

// ShipmentOutcome is the result for one shipment of a notification
type ShipmentOutcome struct {
	Reference     string    `json:"reference"`
	OrderID       uuid.UUID `json:"order_id,omitempty"`
	OrderNumber   string    `json:"order_number,omitempty"`
	Patched       []string  `json:"patched,omitempty"`
	LabelArchived bool      `json:"label_archived,omitempty"`
	Resolved      bool      `json:"resolved"`
}

// ShipNotifyResult is the outcome of a carrier notification
type ShipNotifyResult struct {
	Status    string            `json:"status"`
	Shipments []ShipmentOutcome `json:"shipments"`
	Patched   []string          `json:"patched,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
}

// TrackerPayload is a tracking-status event from the polling carrier tracker
type TrackerPayload struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`
	Result      TrackerResult `json:"result"`
}

// TrackerResult is the tracker object inside a tracking event
type TrackerResult struct {
	ID              string `json:"id"`
	TrackingCode    string `json:"tracking_code"`
	Status          string `json:"status"`
	StatusDetail    string `json:"status_detail"`
	EstDeliveryDate string `json:"est_delivery_date"`
	Carrier         string `json:"carrier"`
	PublicURL       string `json:"public_url"`
}

// TrackingResult is the outcome of a tracking-status event
type TrackingResult struct {
	Status            string    `json:"status"`
	TrackingCode      string    `json:"tracking_code"`
	OrderID           uuid.UUID `json:"order_id,omitempty"`
	FulfillmentStatus string    `json:"fulfillment_status,omitempty"`
	Patched           []string  `json:"patched,omitempty"`
	Warnings          []string  `json:"warnings,omitempty"`
}
