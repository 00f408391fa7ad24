package billing

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/billing"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"go.uber.org/zap"
)

// StripeAdapter implements billing.PaymentGateway with Stripe Checkout
type StripeAdapter struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.InitStripeClient()

	return &StripeAdapter{
		config: config,
		logger: logger,
	}, nil
}

// CreateCheckoutSession creates a hosted payment-mode checkout session. Each
// line carries its product id and variant sku in product metadata so the
// line-items API can be mapped back to the catalog.
func (a *StripeAdapter) CreateCheckoutSession(ctx context.Context, req billing.CheckoutSessionRequest) (*billing.CheckoutSession, error) {
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = a.config.DefaultCurrency
	}

	a.logger.Debug("Creating Stripe checkout session",
		zap.String("order_id", req.OrderID.String()),
		zap.String("order_number", req.OrderNumber),
		zap.Int("lines", len(req.Lines)))

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(firstNonEmpty(req.SuccessURL, a.config.SuccessURL)),
		CancelURL:         stripe.String(firstNonEmpty(req.CancelURL, a.config.CancelURL)),
		ClientReferenceID: stripe.String(req.OrderID.String()),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(a.config.AllowedShippingCountries),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + req.OrderID.String())

	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}

	for _, line := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(line.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(line.UnitAmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:     stripe.String(line.Name),
					Metadata: lineMetadata(line),
				},
			},
		})
	}

	if req.Shipping != nil {
		params.ShippingOptions = []*stripe.CheckoutSessionShippingOptionParams{
			{ShippingRateData: shippingRateData(*req.Shipping, currency)},
		}
	}

	metadata := map[string]string{
		billing.MetadataOrderID:     req.OrderID.String(),
		billing.MetadataOrderNumber: req.OrderNumber,
	}
	maps.Copy(metadata, req.Metadata)
	params.Metadata = metadata
	params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
		Metadata: map[string]string{
			billing.MetadataOrderID:     req.OrderID.String(),
			billing.MetadataOrderNumber: req.OrderNumber,
		},
	}

	sess, err := session.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe checkout session",
			zap.String("order_id", req.OrderID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	a.logger.Info("Created Stripe checkout session",
		zap.String("order_id", req.OrderID.String()),
		zap.String("session_id", sess.ID))

	out := &billing.CheckoutSession{
		ID:  sess.ID,
		URL: sess.URL,
	}
	if sess.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(sess.ExpiresAt, 0)
	}
	return out, nil
}

// ListSessionLineItems fetches every line item of a session with its product
// expanded
func (a *StripeAdapter) ListSessionLineItems(ctx context.Context, sessionID string) ([]billing.SessionLineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Context = ctx
	params.AddExpand("data.price.product")

	var items []billing.SessionLineItem
	iter := session.ListLineItems(params)
	for iter.Next() {
		items = append(items, convertLineItem(iter.LineItem()))
	}
	if err := iter.Err(); err != nil {
		a.logger.Error("Failed to list Stripe session line items",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to list line items: %w", err)
	}
	return items, nil
}

func convertLineItem(li *stripe.LineItem) billing.SessionLineItem {
	item := billing.SessionLineItem{
		Description:      li.Description,
		Quantity:         li.Quantity,
		AmountTotalCents: li.AmountTotal,
	}
	if li.Price == nil {
		return item
	}
	item.UnitAmountCents = li.Price.UnitAmount
	if li.Price.Product != nil && li.Price.Product.Metadata != nil {
		if id, err := uuid.Parse(li.Price.Product.Metadata[billing.MetadataProductID]); err == nil {
			item.ProductID = id
		}
		item.VariantSKU = li.Price.Product.Metadata[billing.MetadataVariantSKU]
	}
	return item
}

func lineMetadata(line billing.CheckoutLine) map[string]string {
	md := map[string]string{
		billing.MetadataProductID: line.ProductID.String(),
	}
	if line.VariantSKU != "" {
		md[billing.MetadataVariantSKU] = line.VariantSKU
	}
	return md
}

func shippingRateData(opt billing.ShippingOption, currency string) *stripe.CheckoutSessionShippingOptionShippingRateDataParams {
	data := &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
		Type:        stripe.String("fixed_amount"),
		DisplayName: stripe.String(opt.Label),
		FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
			Amount:   stripe.Int64(opt.AmountCents),
			Currency: stripe.String(currency),
		},
	}
	if opt.MinDays > 0 && opt.MaxDays >= opt.MinDays {
		data.DeliveryEstimate = &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateParams{
			Minimum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMinimumParams{
				Unit:  stripe.String("business_day"),
				Value: stripe.Int64(int64(opt.MinDays)),
			},
			Maximum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMaximumParams{
				Unit:  stripe.String("business_day"),
				Value: stripe.Int64(int64(opt.MaxDays)),
			},
		}
	}
	return data
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ billing.PaymentGateway = (*StripeAdapter)(nil)
