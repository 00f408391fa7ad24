package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/storefront/fulfillment/internal/application/checkout"
	"go.uber.org/zap"
)

// CheckoutSessionCreator starts hosted checkout sessions
type CheckoutSessionCreator interface {
	CreateSession(ctx context.Context, req checkout.CreateSessionRequest) (*checkout.CreateSessionResponse, error)
}

// CheckoutHandler serves checkout session creation
type CheckoutHandler struct {
	BaseHandler
	checkout CheckoutSessionCreator
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(creator CheckoutSessionCreator, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{BaseHandler: newBaseHandler(logger), checkout: creator}
}

// CreateSession reserves stock for a cart and starts a payment checkout session
func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	var req checkout.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.checkout.CreateSession(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
