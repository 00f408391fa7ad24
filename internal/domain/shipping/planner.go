package shipping

import "math"

// PlannerConfig holds the thresholds used to classify a shipment.
type PlannerConfig struct {
	Packaging           PackagingDefaults
	FreightDimensionIn  float64
	SinglePieceLimitLb  float64
	FreightWeightLb     float64
	OversizeDimensionIn float64
}

// DefaultPlannerConfig returns carrier-typical thresholds
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Packaging:           DefaultPackagingDefaults(),
		FreightDimensionIn:  60,
		SinglePieceLimitLb:  70,
		FreightWeightLb:     150,
		OversizeDimensionIn: 40,
	}
}

// ResolvedLine is a cart line with its unit attributes already resolved.
type ResolvedLine struct {
	SKU        string
	Quantity   int
	Attributes Attributes
}

// Package is one shippable box.
type Package struct {
	SKU          string     `json:"sku,omitempty"`
	WeightLb     float64    `json:"weight_lb"`
	ActualWeight float64    `json:"actual_weight_lb"`
	Dims         Dimensions `json:"dims"`
	Chargeable   bool       `json:"chargeable"`
	Hazardous    bool       `json:"hazardous"`
}

// Plan is the package breakdown of a cart. It is computed per checkout
// attempt and never stored.
type Plan struct {
	Packages         []Package `json:"packages"`
	RequiresShipping bool      `json:"requires_shipping"`
	InstallOnlyCart  bool      `json:"install_only_cart"`
	InstallOnlyCount int       `json:"install_only_count"`
	PackageCount     int       `json:"package_count"`
	TotalWeight      float64   `json:"total_weight_lb"`
	ChargeableWeight float64   `json:"chargeable_weight_lb"`
	Freight          bool      `json:"freight"`
	Oversize         bool      `json:"oversize"`
	Hazardous        bool      `json:"hazardous"`
}

// Planner turns resolved cart lines into packages.
type Planner struct {
	config PlannerConfig
}

// NewPlanner creates a planner; zero thresholds take the defaults.
func NewPlanner(config PlannerConfig) *Planner {
	def := DefaultPlannerConfig()
	config.Packaging = config.Packaging.withFallbacks()
	if config.FreightDimensionIn <= 0 {
		config.FreightDimensionIn = def.FreightDimensionIn
	}
	if config.SinglePieceLimitLb <= 0 {
		config.SinglePieceLimitLb = def.SinglePieceLimitLb
	}
	if config.FreightWeightLb <= 0 {
		config.FreightWeightLb = def.FreightWeightLb
	}
	if config.OversizeDimensionIn <= 0 {
		config.OversizeDimensionIn = def.OversizeDimensionIn
	}
	return &Planner{config: config}
}

// Config returns the effective configuration
func (p *Planner) Config() PlannerConfig {
	return p.config
}

// BillableWeight returns max(actual, volumetric) for one unit.
func (p *Planner) BillableWeight(attrs Attributes) float64 {
	volumetric := attrs.Dims.Volume() / p.config.Packaging.DimDivisor
	return math.Max(attrs.WeightLb, volumetric)
}

// Plan builds the package plan. Lines ship one package per line unless
// marked ships-alone, in which case every unit is its own package.
func (p *Planner) Plan(lines []ResolvedLine) Plan {
	plan := Plan{Packages: make([]Package, 0, len(lines))}

	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		attrs := line.Attributes
		if attrs.Class == ClassInstallOnly {
			plan.InstallOnlyCount += line.Quantity
			continue
		}

		unitBillable := p.BillableWeight(attrs)
		longest := attrs.Dims.LongestSide()
		chargeable := attrs.Class != ClassFreeShipping
		hazardous := attrs.Class == ClassHazardous

		var linePackages []Package
		if attrs.ShipsAlone {
			for i := 0; i < line.Quantity; i++ {
				linePackages = append(linePackages, Package{
					SKU:          line.SKU,
					WeightLb:     unitBillable,
					ActualWeight: attrs.WeightLb,
					Dims:         attrs.Dims,
					Chargeable:   chargeable,
					Hazardous:    hazardous,
				})
			}
		} else {
			qty := float64(line.Quantity)
			linePackages = append(linePackages, Package{
				SKU:          line.SKU,
				WeightLb:     unitBillable * qty,
				ActualWeight: attrs.WeightLb * qty,
				Dims:         attrs.Dims,
				Chargeable:   chargeable,
				Hazardous:    hazardous,
			})
		}

		var lineWeight, heaviest float64
		for _, pkg := range linePackages {
			lineWeight += pkg.WeightLb
			heaviest = math.Max(heaviest, pkg.WeightLb)
		}

		if attrs.Class == ClassFreight ||
			longest >= p.config.FreightDimensionIn ||
			heaviest >= p.config.SinglePieceLimitLb ||
			lineWeight >= p.config.FreightWeightLb {
			plan.Freight = true
		}
		if longest >= p.config.OversizeDimensionIn {
			plan.Oversize = true
		}
		if hazardous {
			plan.Hazardous = true
		}

		plan.TotalWeight += lineWeight
		if chargeable {
			plan.ChargeableWeight += lineWeight
		}
		plan.Packages = append(plan.Packages, linePackages...)
	}

	plan.PackageCount = len(plan.Packages)
	plan.RequiresShipping = plan.PackageCount > 0
	plan.InstallOnlyCart = plan.PackageCount == 0 && plan.InstallOnlyCount > 0
	return plan
}
