package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appinventory "github.com/storefront/fulfillment/internal/application/inventory"
	appshipping "github.com/storefront/fulfillment/internal/application/shipping"
	"github.com/storefront/fulfillment/internal/domain/billing"
	"github.com/storefront/fulfillment/internal/domain/catalog"
	"github.com/storefront/fulfillment/internal/domain/inventory"
	"github.com/storefront/fulfillment/internal/domain/order"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/storefront/fulfillment/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Config holds checkout defaults
type Config struct {
	Currency       string
	ReservationTTL time.Duration
	SuccessURL     string
	CancelURL      string
}

// DefaultConfig returns the checkout defaults
func DefaultConfig() Config {
	return Config{
		Currency:       "usd",
		ReservationTTL: time.Hour,
	}
}

// CheckoutService turns a cart into a pending order with a stock hold and a
// hosted payment session
type CheckoutService struct {
	products       catalog.ProductRepository
	quotes         *appshipping.QuoteService
	orderRepo      order.Repository
	ledger         *appinventory.LedgerService
	gateway        billing.PaymentGateway
	eventPublisher shared.EventPublisher
	config         Config
	now            func() time.Time
	logger         *zap.Logger
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(
	products catalog.ProductRepository,
	quotes *appshipping.QuoteService,
	orderRepo order.Repository,
	ledger *appinventory.LedgerService,
	gateway billing.PaymentGateway,
	config Config,
	logger *zap.Logger,
) *CheckoutService {
	def := DefaultConfig()
	if config.Currency == "" {
		config.Currency = def.Currency
	}
	if config.ReservationTTL <= 0 {
		config.ReservationTTL = def.ReservationTTL
	}
	return &CheckoutService{
		products:  products,
		quotes:    quotes,
		orderRepo: orderRepo,
		ledger:    ledger,
		gateway:   gateway,
		config:    config,
		now:       time.Now,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *CheckoutService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateSession prices the cart, captures it as a pending order, holds the
// stock and opens a hosted checkout session. If the session cannot be
// created the hold is released and the order cancelled.
func (s *CheckoutService) CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "create_session",
		telemetry.WithAttribute(telemetry.SpanAttrItemCount, len(req.Items)),
	)
	defer span.End()

	items, cartLines, err := s.priceItems(ctx, req.Items)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	_, quote := s.quotes.QuoteCart(ctx, cartLines)
	telemetry.SetAttribute(span, telemetry.SpanAttrCarrier, quote.Label)

	now := s.now()
	o, err := order.NewOrder(order.GenerateOrderNumber(now), items, s.config.Currency)
	if err != nil {
		return nil, err
	}
	o.SetShipping(quote.Label, quote.AmountCents)
	o.ShippingAddress = req.ShippingAddress
	o.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	o.CustomerName = strings.TrimSpace(req.CustomerName)
	expiresAt := now.Add(s.config.ReservationTTL)
	o.ReservationExpiresAt = &expiresAt

	if err := s.orderRepo.Create(ctx, o); err != nil {
		return nil, err
	}

	reservation := s.ledger.Reserve(ctx, o.ID.String(), o.LedgerItems())

	session, err := s.gateway.CreateCheckoutSession(ctx, s.sessionRequest(req, o, quote.Label, quote.MinDays, quote.MaxDays, expiresAt))
	if err != nil {
		s.logger.Error("Failed to create checkout session",
			zap.String("order_id", o.ID.String()),
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
		s.abandon(ctx, o)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("%w: create checkout session: %v", shared.ErrUpstream, err)
	}

	o.AttachCheckoutSession(session.ID, &expiresAt)
	if err := s.orderRepo.Save(ctx, o); err != nil {
		// The payment webhook can still resolve the order through the
		// order_id metadata.
		s.logger.Warn("Failed to store checkout session on order",
			zap.String("order_id", o.ID.String()),
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}

	s.publishEvents(ctx, o)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, o.ID,
		telemetry.SpanAttrOrderNumber, o.OrderNumber,
		telemetry.SpanAttrSessionID, session.ID,
		telemetry.SpanAttrTotalCents, o.TotalCents,
	)

	s.logger.Info("Checkout session created",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("session_id", session.ID),
		zap.Int64("total_cents", o.TotalCents),
	)

	return &CreateSessionResponse{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		SessionID:     session.ID,
		URL:           session.URL,
		ExpiresAt:     expiresAt,
		SubtotalCents: o.SubtotalCents,
		Shipping:      quote,
		TotalCents:    o.TotalCents,
		Currency:      o.Currency,
		Reservation:   reservation,
	}, nil
}

// priceItems loads each product and captures name, SKU and the current price
func (s *CheckoutService) priceItems(ctx context.Context, inputs []CheckoutItemInput) ([]order.LineItem, []appshipping.CartLine, error) {
	if len(inputs) == 0 {
		return nil, nil, shared.NewDomainError("EMPTY_CART", "Cart must contain at least one item")
	}

	items := make([]order.LineItem, 0, len(inputs))
	lines := make([]appshipping.CartLine, 0, len(inputs))
	for _, in := range inputs {
		if in.Quantity <= 0 {
			return nil, nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
		}
		p, err := s.products.FindByID(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, nil, shared.NewDomainError("PRODUCT_NOT_FOUND", fmt.Sprintf("Product %s not found", in.ProductID))
			}
			return nil, nil, err
		}

		sku, name := p.SKU, p.Name
		if in.VariantSKU != "" {
			v := p.FindVariant(in.VariantSKU)
			if v == nil {
				return nil, nil, shared.NewDomainError("VARIANT_NOT_FOUND",
					fmt.Sprintf("Variant %s not found on product %s", in.VariantSKU, p.SKU))
			}
			sku = v.SKU
			if v.Name != "" {
				name = p.Name + " - " + v.Name
			}
		}

		items = append(items, order.LineItem{
			ProductID:      p.ID,
			VariantSKU:     in.VariantSKU,
			SKU:            sku,
			Name:           name,
			Quantity:       in.Quantity,
			UnitPriceCents: p.EffectivePriceCents(),
		})
		lines = append(lines, appshipping.CartLine{
			ProductID:  p.ID,
			SKU:        sku,
			VariantSKU: in.VariantSKU,
			Quantity:   in.Quantity,
		})
	}
	return items, lines, nil
}

func (s *CheckoutService) sessionRequest(req CreateSessionRequest, o *order.Order, label string, minDays, maxDays int, expiresAt time.Time) billing.CheckoutSessionRequest {
	lines := make([]billing.CheckoutLine, 0, len(o.Items))
	meta := make([]billing.MetadataItem, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, billing.CheckoutLine{
			ProductID:       item.ProductID,
			VariantSKU:      item.VariantSKU,
			Name:            item.Name,
			Quantity:        int64(item.Quantity),
			UnitAmountCents: item.UnitPriceCents,
		})
		meta = append(meta, billing.MetadataItem{
			ProductID:  item.ProductID.String(),
			VariantSKU: item.VariantSKU,
			Quantity:   int64(item.Quantity),
		})
	}

	metadata := map[string]string{
		billing.MetadataOrderID:     o.ID.String(),
		billing.MetadataOrderNumber: o.OrderNumber,
	}
	if encoded := billing.EncodeMetadataItems(meta); encoded != "" {
		metadata[billing.MetadataItems] = encoded
	}

	successURL, cancelURL := req.SuccessURL, req.CancelURL
	if successURL == "" {
		successURL = s.config.SuccessURL
	}
	if cancelURL == "" {
		cancelURL = s.config.CancelURL
	}

	return billing.CheckoutSessionRequest{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerEmail: o.CustomerEmail,
		Currency:      o.Currency,
		Lines:         lines,
		Shipping: &billing.ShippingOption{
			Label:       label,
			AmountCents: o.ShippingCents,
			MinDays:     minDays,
			MaxDays:     maxDays,
		},
		Metadata:   metadata,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		ExpiresAt:  expiresAt,
	}
}

// abandon undoes the hold of an order whose session never opened
func (s *CheckoutService) abandon(ctx context.Context, o *order.Order) {
	if err := o.TransitionTo(order.StatusCancelled); err != nil {
		return
	}
	if err := s.orderRepo.Save(ctx, o); err != nil {
		s.logger.Error("Failed to cancel abandoned checkout order",
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
		return
	}
	s.ledger.Release(ctx, o.ID.String(), o.LedgerItems(), inventory.ReasonOrderCancelled)
	o.ClearDomainEvents()
}

func (s *CheckoutService) publishEvents(ctx context.Context, o *order.Order) {
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, o.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish order events",
				zap.String("order_id", o.ID.String()),
				zap.Error(err),
			)
		}
	}
	o.ClearDomainEvents()
}
