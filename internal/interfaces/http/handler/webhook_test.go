package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/application/webhook"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*webhook.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhook.WebhookResult), args.Error(1)
}

type mockShipNotify struct {
	mock.Mock
}

func (m *mockShipNotify) VerifySignature(body []byte, header http.Header) error {
	return m.Called(body, header).Error(0)
}

func (m *mockShipNotify) ProcessShipNotify(ctx context.Context, body []byte) (*webhook.ShipNotifyResult, error) {
	args := m.Called(ctx, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhook.ShipNotifyResult), args.Error(1)
}

type mockTracking struct {
	mock.Mock
}

func (m *mockTracking) VerifySignature(body []byte, header http.Header) error {
	return m.Called(body, header).Error(0)
}

func (m *mockTracking) ProcessTrackingEvent(ctx context.Context, body []byte) (*webhook.TrackingResult, error) {
	args := m.Called(ctx, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhook.TrackingResult), args.Error(1)
}

type webhookFixture struct {
	payments   *mockPayments
	shipNotify *mockShipNotify
	tracking   *mockTracking
	router     *gin.Engine
}

func newWebhookFixture() *webhookFixture {
	f := &webhookFixture{
		payments:   new(mockPayments),
		shipNotify: new(mockShipNotify),
		tracking:   new(mockTracking),
	}
	h := NewWebhookHandler(f.payments, f.shipNotify, f.tracking, nil)
	f.router = gin.New()
	f.router.POST("/webhooks/stripe", h.Stripe)
	f.router.POST("/webhooks/shipstation", h.ShipStation)
	f.router.POST("/webhooks/tracking", h.Tracking)
	return f
}

func (f *webhookFixture) post(path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeStripeAck(t *testing.T, w *httptest.ResponseRecorder) StripeWebhookResponse {
	t.Helper()
	var resp StripeWebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWebhookHandler_Stripe(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	sig := map[string]string{"Stripe-Signature": "t=1,v1=abc"}

	t.Run("processed", func(t *testing.T) {
		f := newWebhookFixture()
		f.payments.On("ProcessWebhook", mock.Anything, payload, "t=1,v1=abc").
			Return(&webhook.WebhookResult{EventID: "evt_1", EventType: "checkout.session.completed", Processed: true}, nil)

		w := f.post("/webhooks/stripe", payload, sig)

		assert.Equal(t, http.StatusOK, w.Code)
		ack := decodeStripeAck(t, w)
		assert.True(t, ack.Received)
		assert.Equal(t, "evt_1", ack.EventID)
	})

	t.Run("duplicate", func(t *testing.T) {
		f := newWebhookFixture()
		f.payments.On("ProcessWebhook", mock.Anything, mock.Anything, mock.Anything).
			Return(&webhook.WebhookResult{EventID: "evt_1", Processed: true, Duplicate: true, Message: "Event already processed"}, nil)

		w := f.post("/webhooks/stripe", payload, sig)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeStripeAck(t, w).Duplicate)
	})

	t.Run("missing signature", func(t *testing.T) {
		f := newWebhookFixture()

		w := f.post("/webhooks/stripe", payload, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		f.payments.AssertNotCalled(t, "ProcessWebhook", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bad signature", func(t *testing.T) {
		f := newWebhookFixture()
		f.payments.On("ProcessWebhook", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: no matching v1", shared.ErrInvalidSignature))

		w := f.post("/webhooks/stripe", payload, sig)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, decodeStripeAck(t, w).Received)
	})

	t.Run("order not recorded asks for redelivery", func(t *testing.T) {
		f := newWebhookFixture()
		f.payments.On("ProcessWebhook", mock.Anything, mock.Anything, mock.Anything).
			Return(&webhook.WebhookResult{EventID: "evt_1", EventType: "checkout.session.completed", Processed: false, Message: "db down"},
				errors.New("failed to create order: db down"))

		w := f.post("/webhooks/stripe", payload, sig)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		ack := decodeStripeAck(t, w)
		assert.True(t, ack.Received)
		assert.Equal(t, "evt_1", ack.EventID)
		assert.NotContains(t, ack.Message, "db down")
	})

	t.Run("side-effect warnings still acknowledged", func(t *testing.T) {
		f := newWebhookFixture()
		f.payments.On("ProcessWebhook", mock.Anything, mock.Anything, mock.Anything).
			Return(&webhook.WebhookResult{
				EventID:   "evt_1",
				EventType: "checkout.session.completed",
				Processed: true,
				Checkout: &webhook.CheckoutResult{
					SessionID: "cs_1",
					Status:    "paid",
					Created:   true,
					Warnings:  []string{"confirmation email failed: smtp down"},
				},
			}, nil)

		w := f.post("/webhooks/stripe", payload, sig)

		assert.Equal(t, http.StatusOK, w.Code)
		ack := decodeStripeAck(t, w)
		assert.True(t, ack.Received)
		assert.Equal(t, "evt_1", ack.EventID)
	})

	t.Run("oversized body", func(t *testing.T) {
		f := newWebhookFixture()

		w := f.post("/webhooks/stripe", []byte(strings.Repeat("x", maxWebhookPayloadSize+1)), sig)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestWebhookHandler_ShipStation(t *testing.T) {
	body := []byte(`{"resource_type":"SHIP_NOTIFY","resource_url":"https://ssapi.shipstation.com/shipments?batchId=1"}`)

	t.Run("updated", func(t *testing.T) {
		f := newWebhookFixture()
		f.shipNotify.On("VerifySignature", body, mock.Anything).Return(nil)
		f.shipNotify.On("ProcessShipNotify", mock.Anything, body).Return(&webhook.ShipNotifyResult{
			Status:    webhook.StatusUpdated,
			Shipments: []webhook.ShipmentOutcome{{Reference: "ORD-1", OrderID: uuid.New(), Resolved: true}},
			Patched:   []string{"carrier", "tracking_number"},
		}, nil)

		w := f.post("/webhooks/shipstation", body, map[string]string{"X-SS-Signature": "sig"})

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, webhook.StatusUpdated, data["status"])
		assert.ElementsMatch(t, []any{"carrier", "tracking_number"}, data["patched"])
	})

	t.Run("unresolved order is pending", func(t *testing.T) {
		f := newWebhookFixture()
		f.shipNotify.On("VerifySignature", body, mock.Anything).Return(nil)
		f.shipNotify.On("ProcessShipNotify", mock.Anything, body).
			Return(&webhook.ShipNotifyResult{Status: webhook.StatusPending}, nil)

		w := f.post("/webhooks/shipstation", body, nil)

		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("bad signature", func(t *testing.T) {
		f := newWebhookFixture()
		f.shipNotify.On("VerifySignature", body, mock.Anything).Return(shared.ErrInvalidSignature)

		w := f.post("/webhooks/shipstation", body, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		f.shipNotify.AssertNotCalled(t, "ProcessShipNotify", mock.Anything, mock.Anything)
	})

	t.Run("malformed payload", func(t *testing.T) {
		f := newWebhookFixture()
		f.shipNotify.On("VerifySignature", mock.Anything, mock.Anything).Return(nil)
		f.shipNotify.On("ProcessShipNotify", mock.Anything, mock.Anything).
			Return(nil, shared.NewDomainError("INVALID_PAYLOAD", "Invalid ShipStation payload"))

		w := f.post("/webhooks/shipstation", []byte(`not json`), nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("fetch failure is retryable", func(t *testing.T) {
		f := newWebhookFixture()
		f.shipNotify.On("VerifySignature", mock.Anything, mock.Anything).Return(nil)
		f.shipNotify.On("ProcessShipNotify", mock.Anything, mock.Anything).
			Return(nil, errors.New("failed to fetch shipments: 503"))

		w := f.post("/webhooks/shipstation", body, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestWebhookHandler_Tracking(t *testing.T) {
	body := []byte(`{"result":{"tracking_code":"1Z999","status":"delivered"}}`)

	t.Run("updated", func(t *testing.T) {
		f := newWebhookFixture()
		f.tracking.On("VerifySignature", body, mock.Anything).Return(nil)
		f.tracking.On("ProcessTrackingEvent", mock.Anything, body).Return(&webhook.TrackingResult{
			Status:            webhook.StatusUpdated,
			TrackingCode:      "1Z999",
			FulfillmentStatus: "delivered",
		}, nil)

		w := f.post("/webhooks/tracking", body, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "delivered", decodeResponse(t, w).Data.(map[string]any)["fulfillment_status"])
	})

	t.Run("unknown tracking code is pending", func(t *testing.T) {
		f := newWebhookFixture()
		f.tracking.On("VerifySignature", body, mock.Anything).Return(nil)
		f.tracking.On("ProcessTrackingEvent", mock.Anything, body).
			Return(&webhook.TrackingResult{Status: webhook.StatusPending, TrackingCode: "1Z999"}, nil)

		w := f.post("/webhooks/tracking", body, nil)

		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("bad signature", func(t *testing.T) {
		f := newWebhookFixture()
		f.tracking.On("VerifySignature", body, mock.Anything).Return(shared.ErrInvalidSignature)

		w := f.post("/webhooks/tracking", body, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
