package catalog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	t.Run("creates product with zero counters", func(t *testing.T) {
		p, err := NewProduct("  Oak Bench ", "BENCH-1", 25000)
		require.NoError(t, err)
		assert.Equal(t, "Oak Bench", p.Name)
		assert.True(t, p.QuantityInStock.IsZero())
		assert.True(t, p.QuantityReserved.IsZero())
		assert.Equal(t, 1, p.Version)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewProduct(" ", "X", 1)
		assert.Error(t, err)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := NewProduct("Bench", "X", -1)
		assert.Error(t, err)
	})
}

func TestProduct_QuantityAvailable(t *testing.T) {
	p, _ := NewProduct("Bench", "B", 100)
	p.QuantityInStock = decimal.NewFromInt(2)
	p.QuantityReserved = decimal.NewFromInt(5)

	assert.True(t, p.QuantityAvailable().Equal(decimal.NewFromInt(-3)))
}

func TestProduct_Variants(t *testing.T) {
	p, _ := NewProduct("Shirt", "SHIRT", 2000)

	v, err := p.AddVariant("SHIRT-S", "Small")
	require.NoError(t, err)
	assert.Equal(t, p.ID, v.ProductID)

	_, err = p.AddVariant("SHIRT-L", "Large")
	require.NoError(t, err)

	t.Run("duplicate sku rejected", func(t *testing.T) {
		_, err := p.AddVariant("shirt-s", "Small again")
		assert.Error(t, err)
	})

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		assert.NotNil(t, p.FindVariant("shirt-l"))
		assert.Nil(t, p.FindVariant("SHIRT-XL"))
		assert.Nil(t, p.FindVariant(""))
	})
}

func TestProduct_SaleWindow(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)

	t.Run("window covering now is active", func(t *testing.T) {
		p, _ := NewProduct("Lamp", "L", 5000)
		require.NoError(t, p.SetSaleWindow(4000, &start, &end))

		want, changed := p.SaleFlagDue(now)
		assert.True(t, want)
		assert.True(t, changed)
	})

	t.Run("closed window turns flag off", func(t *testing.T) {
		p, _ := NewProduct("Lamp", "L", 5000)
		require.NoError(t, p.SetSaleWindow(4000, &start, &end))
		p.OnSale = true

		want, changed := p.SaleFlagDue(end)
		assert.False(t, want)
		assert.True(t, changed)
	})

	t.Run("open-ended start keeps flag", func(t *testing.T) {
		p, _ := NewProduct("Lamp", "L", 5000)
		require.NoError(t, p.SetSaleWindow(4000, nil, &end))
		p.OnSale = true

		_, changed := p.SaleFlagDue(now)
		assert.False(t, changed)
	})

	t.Run("no window is never on sale", func(t *testing.T) {
		p, _ := NewProduct("Lamp", "L", 5000)
		assert.False(t, p.SaleActiveAt(now))
	})

	t.Run("rejects inverted window", func(t *testing.T) {
		p, _ := NewProduct("Lamp", "L", 5000)
		assert.Error(t, p.SetSaleWindow(4000, &end, &start))
	})

	t.Run("effective price follows flag", func(t *testing.T) {
		p, _ := NewProduct("Lamp", "L", 5000)
		require.NoError(t, p.SetSaleWindow(4000, &start, &end))
		assert.Equal(t, int64(5000), p.EffectivePriceCents())
		p.OnSale = true
		assert.Equal(t, int64(4000), p.EffectivePriceCents())
	})
}
