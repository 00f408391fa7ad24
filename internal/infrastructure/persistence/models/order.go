package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/order"
	"github.com/storefront/fulfillment/internal/domain/shipping"
)

// OrderModel is the persistence model for the Order aggregate root.
// Fulfillment fields are flattened onto the orders row.
type OrderModel struct {
	AggregateModel
	OrderNumber          string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	Status               order.Status        `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentStatus        order.PaymentStatus `gorm:"type:varchar(20);not null;default:'unpaid'"`
	Items                []order.LineItem    `gorm:"type:text;serializer:json"`
	CustomerID           *uuid.UUID          `gorm:"type:uuid;index"`
	CustomerEmail        string              `gorm:"type:varchar(255)"`
	CustomerName         string              `gorm:"type:varchar(200)"`
	ShippingAddress      *shipping.Address   `gorm:"type:text;serializer:json"`
	ShippingLabel        string              `gorm:"type:varchar(200)"`
	SubtotalCents        int64               `gorm:"not null;default:0"`
	ShippingCents        int64               `gorm:"not null;default:0"`
	TotalCents           int64               `gorm:"not null;default:0"`
	Currency             string              `gorm:"type:varchar(3);not null;default:'usd'"`
	StripeSessionID      *string             `gorm:"type:varchar(255);uniqueIndex"`
	PaymentIntentID      string              `gorm:"type:varchar(255)"`
	PaidAt               *time.Time
	ReservationExpiresAt *time.Time `gorm:"index"`

	FulfillmentStatus   order.FulfillmentStatus `gorm:"type:varchar(30)"`
	ShipMethod          string                  `gorm:"type:varchar(30)"`
	Carrier             string                  `gorm:"type:varchar(100)"`
	Service             string                  `gorm:"type:varchar(100)"`
	TrackingNumber      string                  `gorm:"type:varchar(100);index"`
	TrackingURL         string                  `gorm:"type:text"`
	LabelURL            string                  `gorm:"type:text"`
	WeightOz            *float64
	ShipDate            *time.Time
	EstimatedDelivery   *time.Time
	DeliveredAt         *time.Time
	ShipStationOrderID  string `gorm:"column:shipstation_order_id;type:varchar(50)"`
	ShipStationOrderKey string `gorm:"column:shipstation_order_key;type:varchar(100)"`

	TrackingEvents []TrackingEventModel    `gorm:"foreignKey:OrderID;references:ID"`
	ShippingLog    []ShippingLogEntryModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot:    m.ToAggregateRoot(),
		OrderNumber:          m.OrderNumber,
		Status:               m.Status,
		PaymentStatus:        m.PaymentStatus,
		Items:                m.Items,
		CustomerID:           m.CustomerID,
		CustomerEmail:        m.CustomerEmail,
		CustomerName:         m.CustomerName,
		ShippingAddress:      m.ShippingAddress,
		ShippingLabel:        m.ShippingLabel,
		SubtotalCents:        m.SubtotalCents,
		ShippingCents:        m.ShippingCents,
		TotalCents:           m.TotalCents,
		Currency:             m.Currency,
		StripeSessionID:      m.StripeSessionID,
		PaymentIntentID:      m.PaymentIntentID,
		PaidAt:               m.PaidAt,
		ReservationExpiresAt: m.ReservationExpiresAt,
		Fulfillment: order.Fulfillment{
			Status:              m.FulfillmentStatus,
			ShipMethod:          m.ShipMethod,
			Carrier:             m.Carrier,
			Service:             m.Service,
			TrackingNumber:      m.TrackingNumber,
			TrackingURL:         m.TrackingURL,
			LabelURL:            m.LabelURL,
			WeightOz:            m.WeightOz,
			ShipDate:            m.ShipDate,
			EstimatedDelivery:   m.EstimatedDelivery,
			DeliveredAt:         m.DeliveredAt,
			ShipStationOrderID:  m.ShipStationOrderID,
			ShipStationOrderKey: m.ShipStationOrderKey,
		},
	}
	for i := range m.TrackingEvents {
		o.TrackingEvents = append(o.TrackingEvents, m.TrackingEvents[i].ToDomain())
	}
	for i := range m.ShippingLog {
		o.ShippingLog = append(o.ShippingLog, m.ShippingLog[i].ToDomain())
	}
	return o
}

// FromDomain populates the persistence model from a domain Order. Tracking
// events and the shipping log are appended separately and are not copied.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.Status = o.Status
	m.PaymentStatus = o.PaymentStatus
	m.Items = o.Items
	m.CustomerID = o.CustomerID
	m.CustomerEmail = o.CustomerEmail
	m.CustomerName = o.CustomerName
	m.ShippingAddress = o.ShippingAddress
	m.ShippingLabel = o.ShippingLabel
	m.SubtotalCents = o.SubtotalCents
	m.ShippingCents = o.ShippingCents
	m.TotalCents = o.TotalCents
	m.Currency = o.Currency
	m.StripeSessionID = o.StripeSessionID
	m.PaymentIntentID = o.PaymentIntentID
	m.PaidAt = o.PaidAt
	m.ReservationExpiresAt = o.ReservationExpiresAt

	f := o.Fulfillment
	m.FulfillmentStatus = f.Status
	m.ShipMethod = f.ShipMethod
	m.Carrier = f.Carrier
	m.Service = f.Service
	m.TrackingNumber = f.TrackingNumber
	m.TrackingURL = f.TrackingURL
	m.LabelURL = f.LabelURL
	m.WeightOz = f.WeightOz
	m.ShipDate = f.ShipDate
	m.EstimatedDelivery = f.EstimatedDelivery
	m.DeliveredAt = f.DeliveredAt
	m.ShipStationOrderID = f.ShipStationOrderID
	m.ShipStationOrderKey = f.ShipStationOrderKey
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// TrackingEventModel is the persistence model for a carrier tracking event.
type TrackingEventModel struct {
	ID         uuid.UUID               `gorm:"type:uuid;primary_key"`
	OrderID    uuid.UUID               `gorm:"type:uuid;not null;index"`
	Code       string                  `gorm:"type:varchar(50);not null"`
	Status     order.FulfillmentStatus `gorm:"type:varchar(30);not null"`
	Detail     string                  `gorm:"type:text"`
	Source     string                  `gorm:"type:varchar(30);not null"`
	OccurredAt time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TrackingEventModel) TableName() string {
	return "order_tracking_events"
}

// ToDomain converts the persistence model to a domain TrackingEvent.
func (m *TrackingEventModel) ToDomain() order.TrackingEvent {
	return order.TrackingEvent{
		ID:         m.ID,
		OrderID:    m.OrderID,
		Code:       m.Code,
		Status:     m.Status,
		Detail:     m.Detail,
		Source:     m.Source,
		OccurredAt: m.OccurredAt,
	}
}

// TrackingEventModelFromDomain creates a persistence model from a domain TrackingEvent.
func TrackingEventModelFromDomain(ev order.TrackingEvent) *TrackingEventModel {
	return &TrackingEventModel{
		ID:         ev.ID,
		OrderID:    ev.OrderID,
		Code:       ev.Code,
		Status:     ev.Status,
		Detail:     ev.Detail,
		Source:     ev.Source,
		OccurredAt: ev.OccurredAt,
	}
}

// ShippingLogEntryModel is the persistence model for a shipping log entry.
type ShippingLogEntryModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Source    string    `gorm:"type:varchar(30);not null"`
	Event     string    `gorm:"type:varchar(100);not null"`
	Message   string    `gorm:"type:text"`
	Fields    []string  `gorm:"type:text;serializer:json"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ShippingLogEntryModel) TableName() string {
	return "order_shipping_log"
}

// ToDomain converts the persistence model to a domain ShippingLogEntry.
func (m *ShippingLogEntryModel) ToDomain() order.ShippingLogEntry {
	return order.ShippingLogEntry{
		ID:        m.ID,
		OrderID:   m.OrderID,
		Source:    m.Source,
		Event:     m.Event,
		Message:   m.Message,
		Fields:    m.Fields,
		CreatedAt: m.CreatedAt,
	}
}

// ShippingLogEntryModelFromDomain creates a persistence model from a domain ShippingLogEntry.
func ShippingLogEntryModelFromDomain(e order.ShippingLogEntry) *ShippingLogEntryModel {
	return &ShippingLogEntryModel{
		ID:        e.ID,
		OrderID:   e.OrderID,
		Source:    e.Source,
		Event:     e.Event,
		Message:   e.Message,
		Fields:    e.Fields,
		CreatedAt: e.CreatedAt,
	}
}
