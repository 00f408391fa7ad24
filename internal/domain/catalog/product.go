package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/fulfillment/internal/domain/shared"
)

// Product is a sellable catalog item. Stock counters live on the product
// unless a matching Variant carries its own.
type Product struct {
	shared.BaseAggregateRoot
	Name             string
	SKU              string
	PriceCents       int64
	ShippingWeightLb *float64
	BoxDimensions    string
	ShippingClass    string
	ShipsAlone       bool
	QuantityInStock  decimal.Decimal
	QuantityReserved decimal.Decimal
	OnSale           bool
	SalePriceCents   *int64
	SaleStartsAt     *time.Time
	SaleEndsAt       *time.Time
	Variants         []Variant
}

// Variant is a purchasable option of a product (size, color).
// Unset physical attributes inherit from the parent product.
type Variant struct {
	ID               uuid.UUID
	ProductID        uuid.UUID
	SKU              string
	Name             string
	ShippingWeightLb *float64
	BoxDimensions    string
	ShippingClass    string
	ShipsAlone       *bool
	QuantityInStock  decimal.Decimal
	QuantityReserved decimal.Decimal
}

// NewProduct creates a new product
func NewProduct(name, sku string, priceCents int64) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if priceCents < 0 {
		return nil, shared.NewDomainError("INVALID_PRICE", "Product price cannot be negative")
	}
	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		SKU:               strings.TrimSpace(sku),
		PriceCents:        priceCents,
		QuantityInStock:   decimal.Zero,
		QuantityReserved:  decimal.Zero,
	}, nil
}

// AddVariant attaches a new variant to the product
func (p *Product) AddVariant(sku, name string) (*Variant, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "Variant SKU cannot be empty")
	}
	if p.FindVariant(sku) != nil {
		return nil, shared.ErrAlreadyExists
	}
	p.Variants = append(p.Variants, Variant{
		ID:               uuid.New(),
		ProductID:        p.ID,
		SKU:              sku,
		Name:             name,
		QuantityInStock:  decimal.Zero,
		QuantityReserved: decimal.Zero,
	})
	p.Touch()
	return &p.Variants[len(p.Variants)-1], nil
}

// QuantityAvailable returns in-stock minus reserved. It may be negative.
func (p *Product) QuantityAvailable() decimal.Decimal {
	return p.QuantityInStock.Sub(p.QuantityReserved)
}

// FindVariant returns the variant with the given SKU (case-insensitive), or nil.
func (p *Product) FindVariant(sku string) *Variant {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil
	}
	for i := range p.Variants {
		if strings.EqualFold(p.Variants[i].SKU, sku) {
			return &p.Variants[i]
		}
	}
	return nil
}

// QuantityAvailable returns in-stock minus reserved for the variant.
func (v *Variant) QuantityAvailable() decimal.Decimal {
	return v.QuantityInStock.Sub(v.QuantityReserved)
}

// SetSaleWindow configures a sale price active between startsAt and endsAt.
// A nil bound leaves that side open.
func (p *Product) SetSaleWindow(priceCents int64, startsAt, endsAt *time.Time) error {
	if priceCents < 0 {
		return shared.NewDomainError("INVALID_PRICE", "Sale price cannot be negative")
	}
	if startsAt != nil && endsAt != nil && !endsAt.After(*startsAt) {
		return shared.NewDomainError("INVALID_SALE_WINDOW", "Sale end must be after sale start")
	}
	p.SalePriceCents = &priceCents
	p.SaleStartsAt = startsAt
	p.SaleEndsAt = endsAt
	p.Touch()
	return nil
}

// SaleActiveAt reports whether the configured sale window covers now.
// Products without any window are never on sale.
func (p *Product) SaleActiveAt(now time.Time) bool {
	if p.SaleStartsAt == nil && p.SaleEndsAt == nil {
		return false
	}
	if p.SaleStartsAt != nil && now.Before(*p.SaleStartsAt) {
		return false
	}
	if p.SaleEndsAt != nil && !now.Before(*p.SaleEndsAt) {
		return false
	}
	return true
}

// SaleFlagDue returns the on-sale value the product should have at now and
// whether it differs from the stored flag.
func (p *Product) SaleFlagDue(now time.Time) (want bool, changed bool) {
	want = p.SaleActiveAt(now)
	return want, want != p.OnSale
}

// EffectivePriceCents returns the sale price while the flag is set, else the list price.
func (p *Product) EffectivePriceCents() int64 {
	if p.OnSale && p.SalePriceCents != nil {
		return *p.SalePriceCents
	}
	return p.PriceCents
}
