package webhook

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/storefront/fulfillment/internal/domain/order"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/storefront/fulfillment/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func trackerBody(t *testing.T, code, status string) []byte {
	return mustJSON(t, TrackerPayload{
		ID:          "evt_trk_1",
		Description: "tracker.updated",
		Result: TrackerResult{
			ID:              "trk_1",
			TrackingCode:    code,
			Status:          status,
			StatusDetail:    "arrived_at_destination",
			EstDeliveryDate: "2026-05-15T00:00:00Z",
			Carrier:         "USPS",
			PublicURL:       "https://track.example.com/trk_1",
		},
	})
}

func TestTrackingWebhookService_VerifySignature(t *testing.T) {
	body := []byte(`{"result":{}}`)

	open := NewTrackingWebhookService("", new(testutil.MockOrderRepository), zap.NewNop())
	assert.NoError(t, open.VerifySignature(body, http.Header{}))

	svc := NewTrackingWebhookService("trk-secret", new(testutil.MockOrderRepository), zap.NewNop())
	header := http.Header{}
	header.Set("x-hmac-signature", "hmac-sha256-hex="+hex.EncodeToString(sign("trk-secret", body)))
	assert.NoError(t, svc.VerifySignature(body, header))
	assert.ErrorIs(t, svc.VerifySignature(body, http.Header{}), shared.ErrInvalidSignature)
}

func TestTrackingWebhookService_ProcessTrackingEvent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 14, 16, 0, 0, 0, time.UTC)

	t.Run("delivered updates order", func(t *testing.T) {
		orders := new(testutil.MockOrderRepository)
		eventBus := new(testutil.MockEventBus)
		svc := NewTrackingWebhookService("", orders, zap.NewNop())
		svc.SetEventPublisher(eventBus)
		svc.now = func() time.Time { return now }

		o := paidOrder(t, "ORD-20260510-TRK00001")
		o.Fulfillment.TrackingNumber = "9400111"

		orders.On("FindByTrackingNumber", mock.Anything, "9400111").Return(o, nil).Once()
		orders.On("PatchFulfillment", mock.Anything, o.ID, mock.MatchedBy(func(p order.FulfillmentPatch) bool {
			return *p.Status == order.FulfillmentDelivered &&
				p.DeliveredAt.Equal(now) &&
				p.EstimatedDelivery != nil &&
				*p.TrackingURL == "https://track.example.com/trk_1"
		})).Return(nil).Once()
		orders.On("AppendTrackingEvent", mock.Anything, mock.MatchedBy(func(ev order.TrackingEvent) bool {
			return ev.Code == "delivered" && ev.Source == SourceTracker
		})).Return(nil).Once()
		orders.On("AppendShippingLog", mock.Anything, mock.Anything).Return(nil).Once()
		eventBus.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()

		result, err := svc.ProcessTrackingEvent(ctx, trackerBody(t, "9400111", "delivered"))

		require.NoError(t, err)
		assert.Equal(t, StatusUpdated, result.Status)
		assert.Equal(t, string(order.FulfillmentDelivered), result.FulfillmentStatus)
		assert.Contains(t, result.Patched, "delivered_at")
		assert.Equal(t, order.FulfillmentDelivered, o.Fulfillment.Status)
		require.Len(t, o.TrackingEvents, 1)
		orders.AssertExpectations(t)
	})

	t.Run("unknown code maps to exception", func(t *testing.T) {
		orders := new(testutil.MockOrderRepository)
		svc := NewTrackingWebhookService("", orders, zap.NewNop())
		o := paidOrder(t, "ORD-20260510-TRK00002")
		o.Fulfillment.TrackingURL = "https://carrier.example.com/x"

		orders.On("FindByTrackingNumber", mock.Anything, "ZZ1").Return(o, nil).Once()
		orders.On("PatchFulfillment", mock.Anything, o.ID, mock.MatchedBy(func(p order.FulfillmentPatch) bool {
			return *p.Status == order.FulfillmentException && p.TrackingURL == nil
		})).Return(nil).Once()
		orders.On("AppendTrackingEvent", mock.Anything, mock.Anything).Return(errors.New("dup")).Once()
		orders.On("AppendShippingLog", mock.Anything, mock.Anything).Return(nil).Once()

		result, err := svc.ProcessTrackingEvent(ctx, trackerBody(t, "ZZ1", "held_at_customs"))

		require.NoError(t, err)
		assert.Equal(t, string(order.FulfillmentException), result.FulfillmentStatus)
		assert.Equal(t, []string{"tracking event not stored"}, result.Warnings)
	})

	t.Run("unknown tracking number is pending", func(t *testing.T) {
		orders := new(testutil.MockOrderRepository)
		svc := NewTrackingWebhookService("", orders, zap.NewNop())
		orders.On("FindByTrackingNumber", mock.Anything, "NOPE").Return(nil, shared.ErrNotFound).Once()

		result, err := svc.ProcessTrackingEvent(ctx, trackerBody(t, "NOPE", "in_transit"))

		require.NoError(t, err)
		assert.Equal(t, StatusPending, result.Status)
	})

	t.Run("missing code is ignored", func(t *testing.T) {
		svc := NewTrackingWebhookService("", new(testutil.MockOrderRepository), zap.NewNop())

		result, err := svc.ProcessTrackingEvent(ctx, []byte(`{"result":{"status":"in_transit"}}`))

		require.NoError(t, err)
		assert.Equal(t, StatusIgnored, result.Status)
	})

	t.Run("repository error is returned", func(t *testing.T) {
		orders := new(testutil.MockOrderRepository)
		svc := NewTrackingWebhookService("", orders, zap.NewNop())
		orders.On("FindByTrackingNumber", mock.Anything, "ERR").Return(nil, errors.New("timeout")).Once()

		_, err := svc.ProcessTrackingEvent(ctx, trackerBody(t, "ERR", "in_transit"))

		assert.ErrorContains(t, err, "timeout")
	})
}
