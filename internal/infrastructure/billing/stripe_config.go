package billing

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
)

// StripeConfig holds configuration for the Stripe checkout integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`

	// DefaultCurrency is used when a session request carries none
	DefaultCurrency string `json:"default_currency" mapstructure:"default_currency"`

	// SuccessURL and CancelURL are used when a session request carries none
	SuccessURL string `json:"success_url" mapstructure:"success_url"`
	CancelURL  string `json:"cancel_url" mapstructure:"cancel_url"`

	// AllowedShippingCountries limits the address form on the checkout page
	AllowedShippingCountries []string `json:"allowed_shipping_countries" mapstructure:"allowed_shipping_countries"`
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}
	if !strings.HasPrefix(c.SecretKey, "sk_") && !strings.HasPrefix(c.SecretKey, "rk_") {
		return fmt.Errorf("stripe: secret key must be a secret or restricted key")
	}
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = "usd"
	}
	if len(c.AllowedShippingCountries) == 0 {
		c.AllowedShippingCountries = []string{"US"}
	}
	return nil
}

// IsTestMode reports whether the key is a test key
func (c *StripeConfig) IsTestMode() bool {
	return strings.Contains(c.SecretKey, "_test_")
}

// InitStripeClient initializes the Stripe client with the configured API key
func (c *StripeConfig) InitStripeClient() {
	stripe.Key = c.SecretKey
}
