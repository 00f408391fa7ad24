package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/fulfillment/internal/domain/shipping"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ShipEngineAdapter implements shipping.RateProvider on the ShipEngine API
type ShipEngineAdapter struct {
	config     *ShipEngineConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	now        func() time.Time

	mu             sync.Mutex
	carriers       []shipping.CarrierAccount
	carriersExpire time.Time
}

// NewShipEngineAdapter creates a new ShipEngine adapter
func NewShipEngineAdapter(config *ShipEngineConfig, logger *zap.Logger) (*ShipEngineAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &ShipEngineAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
		now:    time.Now,
	}
	if config.RequestsPerSec > 0 {
		burst := int(config.RequestsPerSec)
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSec), burst)
	}
	return a, nil
}

// GetRates requests rates for every package of the request. Rates that the
// API flags as invalid are dropped.
func (a *ShipEngineAdapter) GetRates(ctx context.Context, req shipping.RateRequest) ([]shipping.Rate, error) {
	body := ShipEngineRatesRequest{
		RateOptions: shipEngineRateOptions{CarrierIDs: req.CarrierIDs},
		Shipment: shipEngineShipment{
			ShipFrom: toShipEngineAddress(req.ShipFrom),
			ShipTo:   toShipEngineAddress(req.ShipTo),
			Packages: toShipEnginePackages(req.Packages),
		},
	}
	if body.RateOptions.CarrierIDs == nil {
		body.RateOptions.CarrierIDs = []string{}
	}

	var resp ShipEngineRatesResponse
	if err := a.doJSON(ctx, http.MethodPost, "/v1/rates", body, &resp); err != nil {
		return nil, err
	}

	if len(resp.RateResponse.Errors) > 0 {
		a.logger.Warn("ShipEngine returned rate errors",
			zap.Int("count", len(resp.RateResponse.Errors)),
			zap.String("first", resp.RateResponse.Errors[0].Message),
		)
	}

	rates := make([]shipping.Rate, 0, len(resp.RateResponse.Rates))
	for _, r := range resp.RateResponse.Rates {
		if strings.EqualFold(r.ValidationStatus, "invalid") {
			continue
		}
		rates = append(rates, convertShipEngineRate(r))
	}
	return rates, nil
}

// ListCarriers returns the connected carrier accounts, cached for
// CarrierCacheTTL
func (a *ShipEngineAdapter) ListCarriers(ctx context.Context) ([]shipping.CarrierAccount, error) {
	a.mu.Lock()
	if a.carriers != nil && a.now().Before(a.carriersExpire) {
		cached := a.carriers
		a.mu.Unlock()
		return cached, nil
	}
	a.mu.Unlock()

	var resp ShipEngineCarriersResponse
	if err := a.doJSON(ctx, http.MethodGet, "/v1/carriers", nil, &resp); err != nil {
		return nil, err
	}

	accounts := make([]shipping.CarrierAccount, 0, len(resp.Carriers))
	for _, c := range resp.Carriers {
		accounts = append(accounts, shipping.CarrierAccount{
			ID:   c.CarrierID,
			Code: c.CarrierCode,
			Name: c.FriendlyName,
		})
	}

	a.mu.Lock()
	a.carriers = accounts
	a.carriersExpire = a.now().Add(a.config.CarrierCacheTTL)
	a.mu.Unlock()

	return accounts, nil
}

// doJSON performs a JSON request against the ShipEngine API
func (a *ShipEngineAdapter) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("shipengine: rate limiter: %w", err)
		}
	}

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("shipengine: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(a.config.BaseURL, "/")+path, reader)
	if err != nil {
		return fmt.Errorf("shipengine: failed to create request: %w", err)
	}
	req.Header.Set("API-Key", a.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCarrierUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("shipengine: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Errors []ShipEngineError `json:"errors"`
		}
		msg := ""
		if json.Unmarshal(body, &apiErr) == nil && len(apiErr.Errors) > 0 {
			msg = apiErr.Errors[0].Message
		}
		return fmt.Errorf("%w: HTTP %d %s", ErrCarrierRequestFailed, resp.StatusCode, msg)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("shipengine: failed to decode response: %w", err)
	}
	return nil
}

func toShipEngineAddress(addr shipping.Address) shipEngineAddress {
	country := strings.ToUpper(addr.Country)
	if country == "" {
		country = "US"
	}
	out := shipEngineAddress{
		Name:          addr.Name,
		CompanyName:   addr.Company,
		Phone:         addr.Phone,
		AddressLine1:  addr.Line1,
		AddressLine2:  addr.Line2,
		CityLocality:  addr.City,
		StateProvince: addr.State,
		PostalCode:    addr.PostalCode,
		CountryCode:   country,
	}
	if out.Name == "" {
		out.Name = "Customer"
	}
	if addr.Residential {
		out.AddressResidentialIndicator = "yes"
	} else {
		out.AddressResidentialIndicator = "unknown"
	}
	return out
}

func toShipEnginePackages(pkgs []shipping.Package) []shipEnginePackage {
	out := make([]shipEnginePackage, 0, len(pkgs))
	for _, p := range pkgs {
		pkg := shipEnginePackage{
			Weight: shipEngineWeight{Value: p.WeightLb, Unit: "pound"},
		}
		if p.Dims.Length > 0 && p.Dims.Width > 0 && p.Dims.Height > 0 {
			pkg.Dimensions = &shipEngineDimensions{
				Unit:   "inch",
				Length: p.Dims.Length,
				Width:  p.Dims.Width,
				Height: p.Dims.Height,
			}
		}
		out = append(out, pkg)
	}
	return out
}

// convertShipEngineRate sums every charge of a rate into cents
func convertShipEngineRate(r ShipEngineRate) shipping.Rate {
	total := decimal.NewFromFloat(r.ShippingAmount.Amount)
	for _, extra := range []*ShipEngineAmount{r.InsuranceAmount, r.ConfirmationAmount, r.OtherAmount} {
		if extra != nil {
			total = total.Add(decimal.NewFromFloat(extra.Amount))
		}
	}

	out := shipping.Rate{
		Carrier:     r.CarrierFriendlyName,
		CarrierID:   r.CarrierID,
		ServiceCode: r.ServiceCode,
		ServiceName: r.ServiceType,
		AmountCents: total.Shift(2).Round(0).IntPart(),
		Currency:    strings.ToLower(r.ShippingAmount.Currency),
	}
	if out.Carrier == "" {
		out.Carrier = strings.ToUpper(r.CarrierCode)
	}
	if r.DeliveryDays != nil {
		out.DeliveryDays = *r.DeliveryDays
	}
	return out
}

var _ shipping.RateProvider = (*ShipEngineAdapter)(nil)
