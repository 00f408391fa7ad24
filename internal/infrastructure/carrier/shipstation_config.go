package carrier

import (
	"errors"
	"time"
)

// ShipStationProductionURL is the production API endpoint
const ShipStationProductionURL = "https://ssapi.shipstation.com"

// ShipStationConfig holds configuration for the ShipStation API
type ShipStationConfig struct {
	APIKey    string
	APISecret string
	// BaseURL is the API root; webhook resource urls must share its host
	BaseURL string
	Timeout time.Duration
	// MaxPages caps how many result pages one resource url may expand to
	MaxPages int
}

// Errors for ShipStation configuration
var (
	ErrShipStationConfigMissingAPIKey    = errors.New("shipstation: api key is required")
	ErrShipStationConfigMissingAPISecret = errors.New("shipstation: api secret is required")
)

// Validate validates the configuration and fills defaults
func (c *ShipStationConfig) Validate() error {
	if c.APIKey == "" {
		return ErrShipStationConfigMissingAPIKey
	}
	if c.APISecret == "" {
		return ErrShipStationConfigMissingAPISecret
	}
	if c.BaseURL == "" {
		c.BaseURL = ShipStationProductionURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 10
	}
	return nil
}
