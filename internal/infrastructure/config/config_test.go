package config

import (
	"testing"
	"time"

	"github.com/storefront/fulfillment/internal/domain/shipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "fulfillment", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "fulfillment", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, "usd", cfg.Stripe.Currency)
		assert.Equal(t, time.Hour, cfg.Stripe.ReservationTTL)
		assert.Equal(t, 72*time.Hour, cfg.Webhook.IdempotencyTTL)
		assert.Equal(t, "https://api.shipengine.com", cfg.ShipEngine.BaseURL)
		assert.Equal(t, "log", cfg.Email.Provider)
		assert.Equal(t, "order-events", cfg.Kafka.Topic)
		assert.False(t, cfg.Kafka.Enabled())
		assert.False(t, cfg.Storage.Enabled())
		assert.Equal(t, "fulfillment", cfg.Telemetry.ServiceName)
	})

	t.Run("loads values from environment variables with FULFILLMENT prefix", func(t *testing.T) {
		t.Setenv("FULFILLMENT_APP_PORT", "9000")
		t.Setenv("FULFILLMENT_DATABASE_HOST", "db.internal")
		t.Setenv("FULFILLMENT_STRIPE_RESERVATION_TTL", "45m")
		t.Setenv("FULFILLMENT_SHIPENGINE_CARRIER_ID", "se-123456")
		t.Setenv("FULFILLMENT_SHIPPING_DEFAULT_DIMS", "10x8x6")
		t.Setenv("FULFILLMENT_SHIPPING_FROM_POSTAL_CODE", "78701")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 45*time.Minute, cfg.Stripe.ReservationTTL)
		assert.Equal(t, "se-123456", cfg.ShipEngine.CarrierID)
		assert.Equal(t, "78701", cfg.Shipping.ShipFrom.PostalCode)
		assert.Equal(t, shipping.Dimensions{Length: 10, Width: 8, Height: 6}, cfg.Shipping.PlannerConfig().Packaging.DefaultDims)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("FULFILLMENT_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("FULFILLMENT_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects reservation ttl below the processor minimum", func(t *testing.T) {
		t.Setenv("FULFILLMENT_STRIPE_RESERVATION_TTL", "10m")

		_, err := Load()
		assert.ErrorContains(t, err, "reservation_ttl")
	})

	t.Run("rejects malformed default dims", func(t *testing.T) {
		t.Setenv("FULFILLMENT_SHIPPING_DEFAULT_DIMS", "big")

		_, err := Load()
		assert.ErrorContains(t, err, "default_dims")
	})

	t.Run("http email provider needs a url", func(t *testing.T) {
		t.Setenv("FULFILLMENT_EMAIL_PROVIDER", "http")

		_, err := Load()
		assert.ErrorContains(t, err, "email.api_url")
	})

	t.Run("production requires secrets", func(t *testing.T) {
		t.Setenv("FULFILLMENT_APP_ENV", "production")
		t.Setenv("FULFILLMENT_JWT_SECRET", "short")

		_, err := Load()
		assert.ErrorContains(t, err, "jwt.secret")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "fulfillment", SSLMode: "require"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/fulfillment?sslmode=require", d.DSN())
}

func TestShippingConfig_RateFormula(t *testing.T) {
	assert.Equal(t, shipping.DefaultRateFormulaConfig(), ShippingConfig{}.RateFormula())

	f := ShippingConfig{GroundBaseCents: 1200, GroundPerLbCents: 90}.RateFormula()
	assert.Equal(t, int64(1200), f.GroundBaseCents)
	assert.Equal(t, int64(90), f.GroundPerLbCents)
	assert.Equal(t, 5.0, f.GroundBaseWeightLb)
	assert.Equal(t, int64(14900), f.FreightBaseCents)
}
