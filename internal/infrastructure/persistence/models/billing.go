package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/billing"
	"github.com/storefront/fulfillment/internal/domain/shared"
)

// CustomerModel is the persistence model for a buyer.
type CustomerModel struct {
	BaseModel
	Email            string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Name             string `gorm:"type:varchar(200)"`
	Phone            string `gorm:"type:varchar(50)"`
	StripeCustomerID string `gorm:"type:varchar(255);index"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer.
func (m *CustomerModel) ToDomain() *billing.Customer {
	return &billing.Customer{
		BaseEntity:       m.BaseModel.ToDomain(),
		Email:            m.Email,
		Name:             m.Name,
		Phone:            m.Phone,
		StripeCustomerID: m.StripeCustomerID,
	}
}

// CustomerModelFromDomain creates a new persistence model from a domain Customer.
func CustomerModelFromDomain(c *billing.Customer) *CustomerModel {
	m := &CustomerModel{
		Email:            c.Email,
		Name:             c.Name,
		Phone:            c.Phone,
		StripeCustomerID: c.StripeCustomerID,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// InvoiceModel is the persistence model for an invoice. One row exists per
// payment session.
type InvoiceModel struct {
	BaseModel
	InvoiceNumber string                `gorm:"type:varchar(60);not null;uniqueIndex"`
	OrderID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	CustomerID    *uuid.UUID            `gorm:"type:uuid;index"`
	SessionID     string                `gorm:"type:varchar(255);not null;uniqueIndex"`
	AmountCents   int64                 `gorm:"not null"`
	Currency      string                `gorm:"type:varchar(3);not null"`
	Status        billing.InvoiceStatus `gorm:"type:varchar(20);not null"`
	IssuedAt      time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		InvoiceNumber: m.InvoiceNumber,
		OrderID:       m.OrderID,
		CustomerID:    m.CustomerID,
		SessionID:     m.SessionID,
		AmountCents:   m.AmountCents,
		Currency:      m.Currency,
		Status:        m.Status,
		IssuedAt:      m.IssuedAt,
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		InvoiceNumber: inv.InvoiceNumber,
		OrderID:       inv.OrderID,
		CustomerID:    inv.CustomerID,
		SessionID:     inv.SessionID,
		AmountCents:   inv.AmountCents,
		Currency:      inv.Currency,
		Status:        inv.Status,
		IssuedAt:      inv.IssuedAt,
	}
	m.FromDomainBaseEntity(inv.BaseEntity)
	return m
}
