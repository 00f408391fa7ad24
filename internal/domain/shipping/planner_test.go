package shipping

import (
	"math"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(sku string, qty int, weight float64, dims Dimensions, class Class) ResolvedLine {
	return ResolvedLine{
		SKU:      sku,
		Quantity: qty,
		Attributes: Attributes{
			WeightLb: weight,
			Dims:     dims,
			Class:    class,
		},
	}
}

func cube(side float64) Dimensions {
	return Dimensions{Length: side, Width: side, Height: side}
}

func TestPlanner_Plan(t *testing.T) {
	planner := NewPlanner(DefaultPlannerConfig())

	t.Run("volumetric weight dominates a light box", func(t *testing.T) {
		plan := planner.Plan([]ResolvedLine{line("A", 1, 5, cube(10), ClassStandard)})

		require.Len(t, plan.Packages, 1)
		assert.InDelta(t, 1000.0/139.0, plan.ChargeableWeight, 1e-9)
		assert.InDelta(t, 5.0, plan.Packages[0].ActualWeight, 1e-9)
		assert.False(t, plan.Freight)
		assert.False(t, plan.Oversize)
		assert.True(t, plan.RequiresShipping)
	})

	t.Run("one package per line unless ships alone", func(t *testing.T) {
		standard := line("A", 3, 2, cube(4), ClassStandard)
		alone := line("B", 3, 2, cube(4), ClassStandard)
		alone.Attributes.ShipsAlone = true

		plan := planner.Plan([]ResolvedLine{standard, alone})
		assert.Equal(t, 4, plan.PackageCount)
		assert.InDelta(t, 6.0, plan.Packages[0].WeightLb, 1e-9)
		assert.InDelta(t, 12.0, plan.TotalWeight, 1e-9)
	})

	t.Run("install only lines are counted not packed", func(t *testing.T) {
		plan := planner.Plan([]ResolvedLine{
			line("INSTALL", 2, 0, Dimensions{}, ClassInstallOnly),
			line("A", 1, 3, cube(4), ClassStandard),
		})
		assert.Equal(t, 2, plan.InstallOnlyCount)
		assert.Equal(t, 1, plan.PackageCount)
		assert.False(t, plan.InstallOnlyCart)
	})

	t.Run("install only cart needs no shipment", func(t *testing.T) {
		plan := planner.Plan([]ResolvedLine{line("INSTALL", 1, 0, Dimensions{}, ClassInstallOnly)})
		assert.False(t, plan.RequiresShipping)
		assert.True(t, plan.InstallOnlyCart)
		assert.Zero(t, plan.TotalWeight)
	})

	t.Run("empty cart is not an install only cart", func(t *testing.T) {
		plan := planner.Plan(nil)
		assert.False(t, plan.RequiresShipping)
		assert.False(t, plan.InstallOnlyCart)
	})

	t.Run("free shipping weight is not chargeable", func(t *testing.T) {
		plan := planner.Plan([]ResolvedLine{
			line("FREE", 1, 10, cube(2), ClassFreeShipping),
			line("A", 1, 4, cube(2), ClassStandard),
		})
		assert.InDelta(t, 14.0, plan.TotalWeight, 1e-9)
		assert.InDelta(t, 4.0, plan.ChargeableWeight, 1e-9)
	})

	t.Run("freight class flips shipment", func(t *testing.T) {
		plan := planner.Plan([]ResolvedLine{line("A", 1, 1, cube(2), ClassFreight)})
		assert.True(t, plan.Freight)
	})

	t.Run("single piece over carrier limit is freight", func(t *testing.T) {
		plan := planner.Plan([]ResolvedLine{line("A", 1, 70, cube(10), ClassStandard)})
		assert.True(t, plan.Freight)
	})

	t.Run("line total over freight weight is freight", func(t *testing.T) {
		l := line("A", 3, 55, cube(10), ClassStandard)
		l.Attributes.ShipsAlone = true
		plan := planner.Plan([]ResolvedLine{l})
		assert.Equal(t, 3, plan.PackageCount)
		assert.True(t, plan.Freight)
	})

	t.Run("oversize without freight", func(t *testing.T) {
		plan := planner.Plan([]ResolvedLine{line("A", 1, 30, Dimensions{Length: 45, Width: 2, Height: 2}, ClassStandard)})
		assert.True(t, plan.Oversize)
		assert.False(t, plan.Freight)
	})

	t.Run("hazardous flag on package and plan", func(t *testing.T) {
		plan := planner.Plan([]ResolvedLine{line("A", 1, 1, cube(2), ClassHazardous)})
		assert.True(t, plan.Hazardous)
		assert.True(t, plan.Packages[0].Hazardous)
	})

	t.Run("non-positive quantities are ignored", func(t *testing.T) {
		plan := planner.Plan([]ResolvedLine{line("A", 0, 1, cube(2), ClassStandard), line("B", -2, 1, cube(2), ClassStandard)})
		assert.Zero(t, plan.PackageCount)
	})
}

func TestPlanner_LongSideAlwaysFreight(t *testing.T) {
	faker := gofakeit.New(42)
	planner := NewPlanner(DefaultPlannerConfig())

	for i := 0; i < 200; i++ {
		long := faker.Float64Range(60, 120)
		lines := []ResolvedLine{
			line("LONG", faker.IntRange(1, 4), faker.Float64Range(0.1, 5), Dimensions{Length: long, Width: 1, Height: 1}, ClassStandard),
			line("SMALL", faker.IntRange(1, 4), faker.Float64Range(0.1, 5), cube(faker.Float64Range(1, 10)), ClassStandard),
		}
		plan := planner.Plan(lines)
		assert.True(t, plan.Freight, "longest side %.2f must be freight", long)
	}
}

func TestPlanner_AllInstallOnly(t *testing.T) {
	faker := gofakeit.New(7)
	planner := NewPlanner(DefaultPlannerConfig())

	for i := 0; i < 100; i++ {
		n := faker.IntRange(1, 6)
		lines := make([]ResolvedLine, 0, n)
		for j := 0; j < n; j++ {
			lines = append(lines, line(faker.LetterN(6), faker.IntRange(1, 3), faker.Float64Range(0, 50), cube(faker.Float64Range(1, 80)), ClassInstallOnly))
		}
		plan := planner.Plan(lines)
		assert.False(t, plan.RequiresShipping)
		assert.True(t, plan.InstallOnlyCart)
	}
}

func TestPlanner_GroundFormulaProperty(t *testing.T) {
	faker := gofakeit.New(99)
	planner := NewPlanner(DefaultPlannerConfig())
	cfg := DefaultRateFormulaConfig()

	for i := 0; i < 200; i++ {
		lines := []ResolvedLine{
			line("A", faker.IntRange(1, 3), faker.Float64Range(0.5, 15), cube(faker.Float64Range(2, 12)), ClassStandard),
		}
		plan := planner.Plan(lines)
		if plan.Freight {
			continue
		}
		quote := FormulaQuote(plan, cfg)
		over := math.Max(0, plan.ChargeableWeight-cfg.GroundBaseWeightLb)
		want := cfg.GroundBaseCents + int64(math.Round(over*float64(cfg.GroundPerLbCents)))
		assert.Equal(t, want, quote.AmountCents)
		assert.Equal(t, LabelGround, quote.Label)
	}
}
