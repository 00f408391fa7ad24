package handler

import (
	"strings"

	"github.com/google/uuid"
	appshipping "github.com/storefront/fulfillment/internal/application/shipping"
	"github.com/storefront/fulfillment/internal/domain/shipping"
)

// CartLineRequest is a cart line identified by product id or SKU
type CartLineRequest struct {
	ProductID  uuid.UUID `json:"product_id" binding:"required_without=SKU"`
	SKU        string    `json:"sku" binding:"max=64"`
	VariantSKU string    `json:"variant_sku" binding:"max=64"`
	Quantity   int       `json:"quantity" binding:"required,min=1,max=999"`
}

// QuoteRequest asks for a formula shipping quote
type QuoteRequest struct {
	Items []CartLineRequest `json:"items" binding:"required,min=1,max=100,dive"`
}

// ShipToRequest is the destination of a live rate request
type ShipToRequest struct {
	Name        string `json:"name" binding:"max=200"`
	Line1       string `json:"line1" binding:"max=200"`
	Line2       string `json:"line2" binding:"max=200"`
	City        string `json:"city" binding:"max=100"`
	State       string `json:"state" binding:"max=50"`
	PostalCode  string `json:"postal_code" binding:"required,postal_code"`
	Country     string `json:"country" binding:"omitempty,iso3166_1_alpha2"`
	Residential bool   `json:"residential"`
}

// RatesRequest asks for live carrier rates. Unknown carrier ids are dropped.
type RatesRequest struct {
	Items      []CartLineRequest `json:"items" binding:"required,min=1,max=100,dive"`
	ShipTo     ShipToRequest     `json:"ship_to"`
	CarrierIDs []string          `json:"carrier_ids" binding:"max=10"`
}

// QuoteResponse is a planned and priced cart
type QuoteResponse struct {
	Plan  shipping.Plan  `json:"plan"`
	Quote shipping.Quote `json:"quote"`
}

// RatesResponse carries live rates. Fallback is set when no live rate came
// back and holds the formula price.
type RatesResponse struct {
	Plan     shipping.Plan         `json:"plan"`
	Estimate shipping.RateEstimate `json:"estimate"`
	Fallback *shipping.Quote       `json:"fallback,omitempty"`
}

func toCartLines(items []CartLineRequest) []appshipping.CartLine {
	lines := make([]appshipping.CartLine, len(items))
	for i, item := range items {
		lines[i] = appshipping.CartLine{
			ProductID:  item.ProductID,
			SKU:        strings.TrimSpace(item.SKU),
			VariantSKU: strings.TrimSpace(item.VariantSKU),
			Quantity:   item.Quantity,
		}
	}
	return lines
}

func (r ShipToRequest) toAddress() shipping.Address {
	country := strings.ToUpper(strings.TrimSpace(r.Country))
	if country == "" {
		country = "US"
	}
	return shipping.Address{
		Name:        strings.TrimSpace(r.Name),
		Line1:       strings.TrimSpace(r.Line1),
		Line2:       strings.TrimSpace(r.Line2),
		City:        strings.TrimSpace(r.City),
		State:       strings.TrimSpace(r.State),
		PostalCode:  strings.TrimSpace(r.PostalCode),
		Country:     country,
		Residential: r.Residential,
	}
}
