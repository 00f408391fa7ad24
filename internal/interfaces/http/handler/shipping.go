package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	appshipping "github.com/storefront/fulfillment/internal/application/shipping"
	"github.com/storefront/fulfillment/internal/domain/shipping"
	"go.uber.org/zap"
)

// ShippingQuoter plans and prices carts
type ShippingQuoter interface {
	QuoteCart(ctx context.Context, lines []appshipping.CartLine) (shipping.Plan, shipping.Quote)
	EstimateRates(ctx context.Context, req appshipping.RateEstimateRequest) (shipping.Plan, shipping.RateEstimate)
}

// ShippingHandler serves shipping quotes and live rates
type ShippingHandler struct {
	BaseHandler
	quoter ShippingQuoter
}

// NewShippingHandler creates a new ShippingHandler
func NewShippingHandler(quoter ShippingQuoter, logger *zap.Logger) *ShippingHandler {
	return &ShippingHandler{BaseHandler: newBaseHandler(logger), quoter: quoter}
}

// Quote prices a cart with the shipping formula
func (h *ShippingHandler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	plan, quote := h.quoter.QuoteCart(c.Request.Context(), toCartLines(req.Items))
	h.Success(c, QuoteResponse{Plan: plan, Quote: quote})
}

// Rates fetches live carrier rates for a cart, falling back to the formula
func (h *ShippingHandler) Rates(c *gin.Context) {
	var req RatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	ctx := c.Request.Context()
	lines := toCartLines(req.Items)
	plan, estimate := h.quoter.EstimateRates(ctx, appshipping.RateEstimateRequest{
		Lines:      lines,
		ShipTo:     req.ShipTo.toAddress(),
		CarrierIDs: req.CarrierIDs,
	})

	resp := RatesResponse{Plan: plan, Estimate: estimate}
	if estimate.IsEmpty() && plan.RequiresShipping {
		_, quote := h.quoter.QuoteCart(ctx, lines)
		resp.Fallback = &quote
	}
	h.Success(c, resp)
}
