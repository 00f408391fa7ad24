package shipping

import (
	"github.com/storefront/fulfillment/internal/domain/catalog"
)

// PackagingDefaults fill in missing catalog data.
type PackagingDefaults struct {
	DimDivisor      float64
	DefaultWeightLb float64
	DefaultDims     Dimensions
}

// DefaultPackagingDefaults returns the stock packaging defaults
func DefaultPackagingDefaults() PackagingDefaults {
	return PackagingDefaults{
		DimDivisor:      139,
		DefaultWeightLb: 1,
		DefaultDims:     Dimensions{Length: 12, Width: 10, Height: 4},
	}
}

func (d PackagingDefaults) withFallbacks() PackagingDefaults {
	base := DefaultPackagingDefaults()
	if d.DimDivisor <= 0 {
		d.DimDivisor = base.DimDivisor
	}
	if d.DefaultWeightLb <= 0 {
		d.DefaultWeightLb = base.DefaultWeightLb
	}
	if d.DefaultDims.LongestSide() <= 0 {
		d.DefaultDims = base.DefaultDims
	}
	return d
}

// Attributes are the physical properties of a single unit of a cart line.
type Attributes struct {
	WeightLb   float64    `json:"weight_lb"`
	Dims       Dimensions `json:"dims"`
	Class      Class      `json:"class"`
	ShipsAlone bool       `json:"ships_alone"`
	// Defaulted is set when any value came from PackagingDefaults.
	Defaulted bool `json:"defaulted"`
}

// Resolve derives unit attributes for a product (and optional variant SKU).
// Variant values override product values when present. A nil product,
// missing weight or unparsable dimensions fall back to defaults.
func Resolve(product *catalog.Product, variantSKU string, defaults PackagingDefaults) Attributes {
	defaults = defaults.withFallbacks()
	attrs := Attributes{
		WeightLb:  defaults.DefaultWeightLb,
		Dims:      defaults.DefaultDims,
		Class:     ClassStandard,
		Defaulted: true,
	}
	if product == nil {
		return attrs
	}

	weight := product.ShippingWeightLb
	dims := product.BoxDimensions
	class := product.ShippingClass
	shipsAlone := product.ShipsAlone

	if v := product.FindVariant(variantSKU); v != nil {
		if v.ShippingWeightLb != nil && *v.ShippingWeightLb > 0 {
			weight = v.ShippingWeightLb
		}
		if v.BoxDimensions != "" {
			dims = v.BoxDimensions
		}
		if v.ShippingClass != "" {
			class = v.ShippingClass
		}
		if v.ShipsAlone != nil {
			shipsAlone = *v.ShipsAlone
		}
	}

	attrs.Defaulted = false
	if weight != nil && *weight > 0 {
		attrs.WeightLb = *weight
	} else {
		attrs.Defaulted = true
	}
	if parsed, ok := ParseDimensions(dims); ok {
		attrs.Dims = parsed
	} else {
		attrs.Defaulted = true
	}
	attrs.Class = NormalizeClass(class)
	attrs.ShipsAlone = shipsAlone
	return attrs
}
