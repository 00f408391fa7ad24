package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	db := NewMockDB(t)
	require.NotNil(t, db.DB)
	require.NotNil(t, db.Mock)
	db.ExpectationsWereMet(t)
}

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("order"), NewTestUUID("order"))
	assert.NotEqual(t, NewTestUUID("order"), NewTestUUID("product"))
}

func TestFakeSKU(t *testing.T) {
	assert.Regexp(t, `^SKU-[A-Z]{2}[0-9]{4}$`, FakeSKU())
}

func TestNewTestProduct(t *testing.T) {
	p := NewTestProduct(t, 2599, 12)

	assert.NotEmpty(t, p.Name)
	assert.Equal(t, int64(2599), p.PriceCents)
	assert.Equal(t, "12", p.QuantityInStock.String())
	require.NotNil(t, p.ShippingWeightLb)
	assert.Greater(t, *p.ShippingWeightLb, 0.0)
}

func TestNewTestOrder(t *testing.T) {
	p := NewTestProduct(t, 1000, 5)
	o := NewTestOrder(t, OrderLine(p, 3))

	assert.Equal(t, int64(3000), o.SubtotalCents)
	assert.Contains(t, o.CustomerEmail, "@")
	assert.Equal(t, "US", o.ShippingAddress.Country)
	assert.Empty(t, o.GetDomainEvents())
}

func TestSessionID(t *testing.T) {
	assert.Regexp(t, `^cs_test_[A-Za-z]{24}$`, SessionID())
}

func TestContextWithTimeout(t *testing.T) {
	ctx := ContextWithTimeout(t, time.Second)
	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)
}
