package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormulaQuote(t *testing.T) {
	cfg := DefaultRateFormulaConfig()

	t.Run("ground under base weight pays base", func(t *testing.T) {
		q := FormulaQuote(Plan{RequiresShipping: true, PackageCount: 1, ChargeableWeight: 3}, cfg)
		assert.Equal(t, int64(995), q.AmountCents)
		assert.Equal(t, LabelGround, q.Label)
		assert.Equal(t, 3, q.MinDays)
		assert.Equal(t, 5, q.MaxDays)
	})

	t.Run("ground adds per pound over base", func(t *testing.T) {
		q := FormulaQuote(Plan{RequiresShipping: true, PackageCount: 1, ChargeableWeight: 1000.0 / 139.0}, cfg)
		// 7.194 - 5 = 2.194 lb * 75 = 164.57 -> 165
		assert.Equal(t, int64(995+165), q.AmountCents)
	})

	t.Run("surcharges stack", func(t *testing.T) {
		q := FormulaQuote(Plan{RequiresShipping: true, PackageCount: 1, ChargeableWeight: 5, Oversize: true, Hazardous: true}, cfg)
		assert.Equal(t, int64(995+2500+3500), q.AmountCents)
	})

	t.Run("freight uses floor price", func(t *testing.T) {
		q := FormulaQuote(Plan{RequiresShipping: true, PackageCount: 1, ChargeableWeight: 10, Freight: true}, cfg)
		assert.Equal(t, int64(14900), q.AmountCents)
		assert.Equal(t, LabelFreight, q.Label)
		assert.Equal(t, 5, q.MinDays)
		assert.Equal(t, 10, q.MaxDays)
		assert.True(t, q.Freight)
	})

	t.Run("heavy freight uses per pound", func(t *testing.T) {
		q := FormulaQuote(Plan{RequiresShipping: true, PackageCount: 1, ChargeableWeight: 400, Freight: true}, cfg)
		assert.Equal(t, int64(34000), q.AmountCents)
	})

	t.Run("zero chargeable weight is free", func(t *testing.T) {
		q := FormulaQuote(Plan{RequiresShipping: true, PackageCount: 1, TotalWeight: 8}, cfg)
		assert.Zero(t, q.AmountCents)
		assert.Equal(t, LabelFree, q.Label)
	})

	t.Run("install only has no shipment", func(t *testing.T) {
		q := FormulaQuote(Plan{InstallOnlyCart: true, InstallOnlyCount: 1}, cfg)
		assert.False(t, q.RequiresShipping)
		assert.Equal(t, LabelInstallOnly, q.Label)
	})
}
