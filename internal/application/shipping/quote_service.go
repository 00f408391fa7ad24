package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/catalog"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/storefront/fulfillment/internal/domain/shipping"
	"go.uber.org/zap"
)

// Quote strategies reported to the recorder
const (
	StrategyFormula = "formula"
	StrategyLive    = "live"
)

// CartLine is a cart line as submitted by the storefront
type CartLine struct {
	ProductID  uuid.UUID `json:"product_id"`
	SKU        string    `json:"sku,omitempty"`
	VariantSKU string    `json:"variant_sku,omitempty"`
	Quantity   int       `json:"quantity"`
}

// QuoteRecorder receives quote outcomes
type QuoteRecorder interface {
	RecordQuote(ctx context.Context, strategy string, empty bool)
}

// Config wires the shipping thresholds and carrier settings into the service
type Config struct {
	Planner          shipping.PlannerConfig
	Formula          shipping.RateFormulaConfig
	ShipFrom         shipping.Address
	CarrierIDs       []string
	CarrierID        string
	FallbackCarriers []shipping.CarrierAccount
	RateTimeout      time.Duration
}

// QuoteService resolves cart lines against the catalog, plans packages and
// prices them
type QuoteService struct {
	products catalog.ProductRepository
	rates    shipping.RateProvider
	planner  *shipping.Planner
	config   Config
	recorder QuoteRecorder
	logger   *zap.Logger
}

// NewQuoteService creates a new QuoteService. Zero thresholds and an empty
// formula take the defaults. rates may be nil, in which case live estimates
// are always empty.
func NewQuoteService(
	products catalog.ProductRepository,
	rates shipping.RateProvider,
	config Config,
	logger *zap.Logger,
) *QuoteService {
	if config.Formula == (shipping.RateFormulaConfig{}) {
		config.Formula = shipping.DefaultRateFormulaConfig()
	}
	planner := shipping.NewPlanner(config.Planner)
	config.Planner = planner.Config()

	return &QuoteService{
		products: products,
		rates:    rates,
		planner:  planner,
		config:   config,
		logger:   logger,
	}
}

// SetRecorder sets the metrics recorder
func (s *QuoteService) SetRecorder(recorder QuoteRecorder) {
	s.recorder = recorder
}

// ResolveLines looks up every line in the catalog and resolves its unit
// attributes. Lines whose product cannot be loaded use packaging defaults.
func (s *QuoteService) ResolveLines(ctx context.Context, lines []CartLine) []shipping.ResolvedLine {
	cache := make(map[uuid.UUID]*catalog.Product)
	resolved := make([]shipping.ResolvedLine, 0, len(lines))

	for _, line := range lines {
		product, variantSKU := s.lookup(ctx, line, cache)
		sku := line.SKU
		if sku == "" && product != nil {
			sku = product.SKU
		}
		resolved = append(resolved, shipping.ResolvedLine{
			SKU:        sku,
			Quantity:   line.Quantity,
			Attributes: shipping.Resolve(product, variantSKU, s.config.Planner.Packaging),
		})
	}
	return resolved
}

func (s *QuoteService) lookup(ctx context.Context, line CartLine, cache map[uuid.UUID]*catalog.Product) (*catalog.Product, string) {
	variantSKU := line.VariantSKU

	if line.ProductID != uuid.Nil {
		if p, ok := cache[line.ProductID]; ok {
			return p, variantSKU
		}
		p, err := s.products.FindByID(ctx, line.ProductID)
		if err == nil {
			cache[line.ProductID] = p
			return p, variantSKU
		}
		s.logLookupFailure(line, err)
		if line.SKU == "" {
			return nil, variantSKU
		}
	}

	if line.SKU == "" {
		return nil, variantSKU
	}
	p, err := s.products.FindBySKU(ctx, line.SKU)
	if err != nil {
		s.logLookupFailure(line, err)
		return nil, variantSKU
	}
	cache[p.ID] = p
	if variantSKU == "" && p.FindVariant(line.SKU) != nil {
		variantSKU = line.SKU
	}
	return p, variantSKU
}

func (s *QuoteService) logLookupFailure(line CartLine, err error) {
	level := s.logger.Warn
	if errors.Is(err, shared.ErrNotFound) {
		level = s.logger.Debug
	}
	level("Product lookup failed, using packaging defaults",
		zap.String("product_id", line.ProductID.String()),
		zap.String("sku", line.SKU),
		zap.Error(err),
	)
}

// PlanCart builds the package plan of a cart
func (s *QuoteService) PlanCart(ctx context.Context, lines []CartLine) shipping.Plan {
	return s.planner.Plan(s.ResolveLines(ctx, lines))
}

// QuoteCart plans the cart and prices it with the static formula
func (s *QuoteService) QuoteCart(ctx context.Context, lines []CartLine) (shipping.Plan, shipping.Quote) {
	plan := s.PlanCart(ctx, lines)
	quote := shipping.FormulaQuote(plan, s.config.Formula)
	if s.recorder != nil {
		s.recorder.RecordQuote(ctx, StrategyFormula, false)
	}
	return plan, quote
}

// RateEstimateRequest asks for live carrier rates on a cart
type RateEstimateRequest struct {
	Lines      []CartLine
	ShipTo     shipping.Address
	CarrierIDs []string
}

// EstimateRates fetches live carrier rates. Any provider failure, timeout or
// empty answer yields an empty estimate so callers can fall back to a flat
// price; it never returns an error.
func (s *QuoteService) EstimateRates(ctx context.Context, req RateEstimateRequest) (shipping.Plan, shipping.RateEstimate) {
	plan := s.PlanCart(ctx, req.Lines)
	empty := shipping.NewRateEstimate(nil)

	if s.rates == nil || !plan.RequiresShipping {
		s.recordLive(ctx, true)
		return plan, empty
	}

	carrierIDs := shipping.ResolveCarrierIDs(shipping.CarrierSelection{
		Requested:     req.CarrierIDs,
		ConfiguredIDs: s.config.CarrierIDs,
		ConfiguredID:  s.config.CarrierID,
		Fallback:      s.config.FallbackCarriers,
	})

	rateCtx := ctx
	if s.config.RateTimeout > 0 {
		var cancel context.CancelFunc
		rateCtx, cancel = context.WithTimeout(ctx, s.config.RateTimeout)
		defer cancel()
	}

	rates, err := s.rates.GetRates(rateCtx, shipping.RateRequest{
		ShipFrom:   s.config.ShipFrom,
		ShipTo:     req.ShipTo,
		Packages:   plan.Packages,
		CarrierIDs: carrierIDs,
	})
	if err != nil {
		s.logger.Warn("Live rate request failed, no rate available",
			zap.Int("packages", plan.PackageCount),
			zap.Strings("carrier_ids", carrierIDs),
			zap.Error(err),
		)
		s.recordLive(ctx, true)
		return plan, empty
	}
	if len(rates) == 0 {
		s.logger.Warn("Live rate request returned no rates",
			zap.Int("packages", plan.PackageCount),
			zap.Strings("carrier_ids", carrierIDs),
		)
		s.recordLive(ctx, true)
		return plan, empty
	}

	estimate := shipping.NewRateEstimate(rates)
	s.recordLive(ctx, false)
	return plan, estimate
}

func (s *QuoteService) recordLive(ctx context.Context, empty bool) {
	if s.recorder != nil {
		s.recorder.RecordQuote(ctx, StrategyLive, empty)
	}
}
