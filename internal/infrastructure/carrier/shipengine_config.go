package carrier

import (
	"errors"
	"time"
)

// ShipEngineProductionURL is the production API endpoint
const ShipEngineProductionURL = "https://api.shipengine.com"

// ShipEngineConfig holds configuration for the ShipEngine rates API
type ShipEngineConfig struct {
	// APIKey is sent in the API-Key header
	APIKey string
	// BaseURL is the API root, without the /v1 suffix
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// RequestsPerSec throttles outgoing calls; zero disables throttling
	RequestsPerSec float64
	// CarrierCacheTTL is how long the carrier list is reused
	CarrierCacheTTL time.Duration
}

// Errors for ShipEngine configuration
var (
	ErrShipEngineConfigMissingAPIKey = errors.New("shipengine: api key is required")
)

// Validate validates the configuration and fills defaults
func (c *ShipEngineConfig) Validate() error {
	if c.APIKey == "" {
		return ErrShipEngineConfigMissingAPIKey
	}
	if c.BaseURL == "" {
		c.BaseURL = ShipEngineProductionURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.CarrierCacheTTL <= 0 {
		c.CarrierCacheTTL = time.Hour
	}
	return nil
}
