package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/storefront/fulfillment/internal/application/webhook"
	"go.uber.org/zap"
)

// shipStationShipmentsPage is one page of GET /shipments
type shipStationShipmentsPage struct {
	Shipments []webhook.ShipStationShipment `json:"shipments"`
	Total     int                           `json:"total"`
	Page      int                           `json:"page"`
	Pages     int                           `json:"pages"`
}

// ShipStationAdapter fetches shipments referenced by SHIP_NOTIFY webhooks
type ShipStationAdapter struct {
	config     *ShipStationConfig
	httpClient *http.Client
	apiHost    string
	logger     *zap.Logger
}

// NewShipStationAdapter creates a new ShipStation adapter
func NewShipStationAdapter(config *ShipStationConfig, logger *zap.Logger) (*ShipStationAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(config.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("shipstation: invalid base url %q", config.BaseURL)
	}

	return &ShipStationAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		apiHost: strings.ToLower(base.Host),
		logger:  logger,
	}, nil
}

// FetchShipments loads every shipment behind resourceURL, following result
// pages up to MaxPages. Only urls on the configured API host are fetched.
func (a *ShipStationAdapter) FetchShipments(ctx context.Context, resourceURL string) ([]webhook.ShipStationShipment, error) {
	u, err := url.Parse(resourceURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrResourceURLNotAllowed, resourceURL)
	}
	if strings.ToLower(u.Host) != a.apiHost || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, fmt.Errorf("%w: host %s", ErrResourceURLNotAllowed, u.Host)
	}

	var shipments []webhook.ShipStationShipment
	for page := 1; page <= a.config.MaxPages; page++ {
		if page > 1 {
			q := u.Query()
			q.Set("page", strconv.Itoa(page))
			u.RawQuery = q.Encode()
		}

		result, err := a.getPage(ctx, u.String())
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, result.Shipments...)

		if result.Pages <= page {
			return shipments, nil
		}
	}

	a.logger.Warn("ShipStation resource has more pages than allowed",
		zap.String("resource_url", resourceURL),
		zap.Int("max_pages", a.config.MaxPages),
	)
	return shipments, nil
}

func (a *ShipStationAdapter) getPage(ctx context.Context, pageURL string) (*shipStationShipmentsPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("shipstation: failed to create request: %w", err)
	}
	req.SetBasicAuth(a.config.APIKey, a.config.APISecret)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCarrierUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("shipstation: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrCarrierRequestFailed, resp.StatusCode)
	}

	var page shipStationShipmentsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("shipstation: failed to decode response: %w", err)
	}
	return &page, nil
}

var _ webhook.ShipmentFetcher = (*ShipStationAdapter)(nil)
