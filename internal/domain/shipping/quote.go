package shipping

import "math"

// Quote labels
const (
	LabelGround      = "Ground Shipping"
	LabelFreight     = "Freight Shipping"
	LabelFree        = "Free Shipping"
	LabelInstallOnly = "Installation Only"
)

// RateFormulaConfig prices a plan without calling a carrier.
type RateFormulaConfig struct {
	GroundBaseCents        int64
	GroundBaseWeightLb     float64
	GroundPerLbCents       int64
	OversizeSurchargeCents int64
	HazmatSurchargeCents   int64
	FreightBaseCents       int64
	FreightPerLbCents      int64
}

// DefaultRateFormulaConfig returns the stock ground/freight table
func DefaultRateFormulaConfig() RateFormulaConfig {
	return RateFormulaConfig{
		GroundBaseCents:        995,
		GroundBaseWeightLb:     5,
		GroundPerLbCents:       75,
		OversizeSurchargeCents: 2500,
		HazmatSurchargeCents:   3500,
		FreightBaseCents:       14900,
		FreightPerLbCents:      85,
	}
}

// Quote is a single priced shipping option.
type Quote struct {
	AmountCents      int64  `json:"amount_cents"`
	Label            string `json:"label"`
	MinDays          int    `json:"min_days"`
	MaxDays          int    `json:"max_days"`
	Freight          bool   `json:"freight"`
	RequiresShipping bool   `json:"requires_shipping"`
}

// FormulaQuote prices a plan with the static formula. It never fails.
func FormulaQuote(plan Plan, cfg RateFormulaConfig) Quote {
	if !plan.RequiresShipping {
		return Quote{Label: LabelInstallOnly, RequiresShipping: false}
	}

	cw := plan.ChargeableWeight
	if plan.Freight {
		amount := int64(math.Round(cw * float64(cfg.FreightPerLbCents)))
		return Quote{
			AmountCents:      max(cfg.FreightBaseCents, amount),
			Label:            LabelFreight,
			MinDays:          5,
			MaxDays:          10,
			Freight:          true,
			RequiresShipping: true,
		}
	}

	if cw <= 0 {
		return Quote{Label: LabelFree, MinDays: 3, MaxDays: 5, RequiresShipping: true}
	}

	over := math.Max(0, cw-cfg.GroundBaseWeightLb)
	amount := cfg.GroundBaseCents + int64(math.Round(over*float64(cfg.GroundPerLbCents)))
	if plan.Oversize {
		amount += cfg.OversizeSurchargeCents
	}
	if plan.Hazardous {
		amount += cfg.HazmatSurchargeCents
	}
	return Quote{
		AmountCents:      amount,
		Label:            LabelGround,
		MinDays:          3,
		MaxDays:          5,
		RequiresShipping: true,
	}
}
