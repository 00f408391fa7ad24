package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/fulfillment/internal/domain/catalog"
	"github.com/storefront/fulfillment/internal/domain/shared"
)

// ProductModel is the persistence model for the Product aggregate root.
type ProductModel struct {
	AggregateModel
	Name             string          `gorm:"type:varchar(200);not null"`
	SKU              string          `gorm:"type:varchar(100);index"`
	PriceCents       int64           `gorm:"not null;default:0"`
	ShippingWeightLb *float64        `gorm:"type:decimal(10,3)"`
	BoxDimensions    string          `gorm:"type:varchar(50)"`
	ShippingClass    string          `gorm:"type:varchar(30)"`
	ShipsAlone       bool            `gorm:"not null;default:false"`
	QuantityInStock  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityReserved decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	OnSale           bool            `gorm:"not null;default:false;index"`
	SalePriceCents   *int64
	SaleStartsAt     *time.Time
	SaleEndsAt       *time.Time
	Variants         []VariantModel `gorm:"foreignKey:ProductID;references:ID"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		SKU:               m.SKU,
		PriceCents:        m.PriceCents,
		ShippingWeightLb:  m.ShippingWeightLb,
		BoxDimensions:     m.BoxDimensions,
		ShippingClass:     m.ShippingClass,
		ShipsAlone:        m.ShipsAlone,
		QuantityInStock:   m.QuantityInStock,
		QuantityReserved:  m.QuantityReserved,
		OnSale:            m.OnSale,
		SalePriceCents:    m.SalePriceCents,
		SaleStartsAt:      m.SaleStartsAt,
		SaleEndsAt:        m.SaleEndsAt,
		Variants:          make([]catalog.Variant, len(m.Variants)),
	}
	for i := range m.Variants {
		p.Variants[i] = m.Variants[i].ToDomain()
	}
	return p
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Name = p.Name
	m.SKU = p.SKU
	m.PriceCents = p.PriceCents
	m.ShippingWeightLb = p.ShippingWeightLb
	m.BoxDimensions = p.BoxDimensions
	m.ShippingClass = p.ShippingClass
	m.ShipsAlone = p.ShipsAlone
	m.QuantityInStock = p.QuantityInStock
	m.QuantityReserved = p.QuantityReserved
	m.OnSale = p.OnSale
	m.SalePriceCents = p.SalePriceCents
	m.SaleStartsAt = p.SaleStartsAt
	m.SaleEndsAt = p.SaleEndsAt
	m.Variants = make([]VariantModel, len(p.Variants))
	for i := range p.Variants {
		m.Variants[i].FromDomain(&p.Variants[i], p.BaseEntity)
	}
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// VariantModel is the persistence model for a product variant.
// Variant SKUs are unique across the catalog.
type VariantModel struct {
	BaseModel
	ProductID        uuid.UUID `gorm:"type:uuid;not null;index"`
	SKU              string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name             string    `gorm:"type:varchar(200)"`
	ShippingWeightLb *float64  `gorm:"type:decimal(10,3)"`
	BoxDimensions    string    `gorm:"type:varchar(50)"`
	ShippingClass    string    `gorm:"type:varchar(30)"`
	ShipsAlone       *bool
	QuantityInStock  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityReserved decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (VariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the persistence model to a domain Variant.
func (m *VariantModel) ToDomain() catalog.Variant {
	return catalog.Variant{
		ID:               m.ID,
		ProductID:        m.ProductID,
		SKU:              m.SKU,
		Name:             m.Name,
		ShippingWeightLb: m.ShippingWeightLb,
		BoxDimensions:    m.BoxDimensions,
		ShippingClass:    m.ShippingClass,
		ShipsAlone:       m.ShipsAlone,
		QuantityInStock:  m.QuantityInStock,
		QuantityReserved: m.QuantityReserved,
	}
}

// FromDomain populates the persistence model from a domain Variant. Variants
// carry no timestamps of their own and take the parent's.
func (m *VariantModel) FromDomain(v *catalog.Variant, parent shared.BaseEntity) {
	m.ID = v.ID
	m.CreatedAt = parent.CreatedAt
	m.UpdatedAt = parent.UpdatedAt
	m.ProductID = parent.ID
	m.SKU = v.SKU
	m.Name = v.Name
	m.ShippingWeightLb = v.ShippingWeightLb
	m.BoxDimensions = v.BoxDimensions
	m.ShippingClass = v.ShippingClass
	m.ShipsAlone = v.ShipsAlone
	m.QuantityInStock = v.QuantityInStock
	m.QuantityReserved = v.QuantityReserved
}
