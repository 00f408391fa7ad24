package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/fulfillment/internal/application/webhook"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/storefront/fulfillment/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Webhook bodies are small; anything bigger is not from a carrier or processor.
const maxWebhookPayloadSize = 256 << 10

// PaymentWebhookProcessor verifies and applies payment processor events
type PaymentWebhookProcessor interface {
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (*webhook.WebhookResult, error)
}

// ShipNotifyProcessor verifies and applies carrier ship notifications
type ShipNotifyProcessor interface {
	VerifySignature(body []byte, header http.Header) error
	ProcessShipNotify(ctx context.Context, body []byte) (*webhook.ShipNotifyResult, error)
}

// TrackingEventProcessor verifies and applies tracking status events
type TrackingEventProcessor interface {
	VerifySignature(body []byte, header http.Header) error
	ProcessTrackingEvent(ctx context.Context, body []byte) (*webhook.TrackingResult, error)
}

// WebhookHandler receives payment and carrier webhooks. These endpoints are
// authenticated by signature, not by bearer token.
type WebhookHandler struct {
	BaseHandler
	payments   PaymentWebhookProcessor
	shipNotify ShipNotifyProcessor
	tracking   TrackingEventProcessor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(
	payments PaymentWebhookProcessor,
	shipNotify ShipNotifyProcessor,
	tracking TrackingEventProcessor,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: newBaseHandler(logger),
		payments:    payments,
		shipNotify:  shipNotify,
		tracking:    tracking,
	}
}

// StripeWebhookResponse is the acknowledgement sent to the payment processor
type StripeWebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Message   string `json:"message,omitempty"`
}

// readPayload reads the raw body for signature checks. It answers the request
// itself and returns false when the body is unreadable or too large.
func (h *WebhookHandler) readPayload(c *gin.Context) ([]byte, bool) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return nil, false
	}
	if len(payload) > maxWebhookPayloadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeBadRequest, "Payload too large")
		return nil, false
	}
	return payload, true
}

// Stripe receives payment processor events. Events whose order could not be
// recorded answer 500 so the processor redelivers them; side-effect warnings
// still answer 200.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, ok := h.readPayload(c)
	if !ok {
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusUnauthorized, StripeWebhookResponse{Message: "Missing Stripe-Signature header"})
		return
	}

	result, err := h.payments.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if result == nil || errors.Is(err, shared.ErrInvalidSignature) {
			c.JSON(http.StatusUnauthorized, StripeWebhookResponse{Message: "Webhook signature verification failed"})
			return
		}
		// The event marker was dropped, so a redelivery gets processed again.
		c.JSON(http.StatusInternalServerError, StripeWebhookResponse{
			Received:  true,
			EventID:   result.EventID,
			EventType: result.EventType,
			Message:   "Webhook processing failed",
		})
		return
	}

	c.JSON(http.StatusOK, StripeWebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Duplicate: result.Duplicate,
		Message:   result.Message,
	})
}

// ShipStation receives carrier ship notifications. Unresolvable shipments
// answer 202.
func (h *WebhookHandler) ShipStation(c *gin.Context) {
	payload, ok := h.readPayload(c)
	if !ok {
		return
	}
	if err := h.shipNotify.VerifySignature(payload, c.Request.Header); err != nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeInvalidSignature, "Webhook signature verification failed")
		return
	}

	result, err := h.shipNotify.ProcessShipNotify(c.Request.Context(), payload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(webhookStatus(result.Status), dto.NewSuccessResponse(result))
}

// Tracking receives tracking status events
func (h *WebhookHandler) Tracking(c *gin.Context) {
	payload, ok := h.readPayload(c)
	if !ok {
		return
	}
	if err := h.tracking.VerifySignature(payload, c.Request.Header); err != nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeInvalidSignature, "Webhook signature verification failed")
		return
	}

	result, err := h.tracking.ProcessTrackingEvent(c.Request.Context(), payload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(webhookStatus(result.Status), dto.NewSuccessResponse(result))
}

func webhookStatus(status string) int {
	if status == webhook.StatusPending {
		return http.StatusAccepted
	}
	return http.StatusOK
}
