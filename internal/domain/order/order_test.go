package order

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder("ORD-1", []LineItem{
		{ProductID: uuid.New(), SKU: "A", Quantity: 2, UnitPriceCents: 1500},
		{ProductID: uuid.New(), VariantSKU: "B-L", Quantity: 1, UnitPriceCents: 500},
	}, "USD")
	require.NoError(t, err)
	return o
}

func TestCanTransition(t *testing.T) {
	all := []Status{StatusPending, StatusPaid, StatusUnfulfilled, StatusProcessing, StatusFulfilled, StatusCancelled, StatusRefunded}

	t.Run("new order accepts any status", func(t *testing.T) {
		for _, next := range all {
			assert.NoError(t, CanTransition("", next), next)
		}
	})

	t.Run("cancelled only to cancelled", func(t *testing.T) {
		for _, next := range all {
			err := CanTransition(StatusCancelled, next)
			if next == StatusCancelled {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsInvalidTransition(err), next)
			}
		}
	})

	t.Run("refunded only to refunded", func(t *testing.T) {
		for _, next := range all {
			err := CanTransition(StatusRefunded, next)
			if next == StatusRefunded {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err, next)
			}
		}
	})

	t.Run("blacklisted jumps", func(t *testing.T) {
		assert.Error(t, CanTransition(StatusFulfilled, StatusPending))
		assert.Error(t, CanTransition(StatusPending, StatusFulfilled))
	})

	t.Run("unlisted jumps are allowed", func(t *testing.T) {
		assert.NoError(t, CanTransition(StatusFulfilled, StatusRefunded))
		assert.NoError(t, CanTransition(StatusProcessing, StatusPending))
		assert.NoError(t, CanTransition(StatusPending, StatusCancelled))
	})
}

func TestNewOrder(t *testing.T) {
	o := newTestOrder(t)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentStatusUnpaid, o.PaymentStatus)
	assert.Equal(t, "usd", o.Currency)
	assert.Equal(t, int64(3500), o.SubtotalCents)
	assert.Len(t, o.GetDomainEvents(), 1)

	t.Run("requires items", func(t *testing.T) {
		_, err := NewOrder("ORD-2", nil, "usd")
		assert.Error(t, err)
	})

	t.Run("requires order number", func(t *testing.T) {
		_, err := NewOrder(" ", []LineItem{{Quantity: 1}}, "usd")
		assert.Error(t, err)
	})
}

func TestGenerateOrderNumber(t *testing.T) {
	n := GenerateOrderNumber(time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC))
	assert.Regexp(t, `^ORD-20260510-[0-9A-F]{8}$`, n)
}

func TestOrder_SetShipping(t *testing.T) {
	o := newTestOrder(t)
	o.SetShipping("Ground Shipping", 995)
	assert.Equal(t, int64(4495), o.TotalCents)
}

func TestOrder_MarkPaid(t *testing.T) {
	now := time.Now()

	t.Run("pending order becomes paid", func(t *testing.T) {
		o := newTestOrder(t)
		o.ClearDomainEvents()

		changed, err := o.MarkPaid("pi_123", 4495, now)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StatusPaid, o.Status)
		assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)
		assert.Equal(t, "pi_123", o.PaymentIntentID)
		assert.Equal(t, int64(4495), o.TotalCents)
		assert.Len(t, o.GetDomainEvents(), 2)
	})

	t.Run("second payment is a no-op", func(t *testing.T) {
		o := newTestOrder(t)
		_, err := o.MarkPaid("pi_1", 0, now)
		require.NoError(t, err)

		changed, err := o.MarkPaid("pi_2", 0, now)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, "pi_1", o.PaymentIntentID)
	})

	t.Run("cancelled order is not revived", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.TransitionTo(StatusCancelled))

		changed, err := o.MarkPaid("pi_1", 0, now)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, StatusCancelled, o.Status)
	})
}

func TestOrder_Expire(t *testing.T) {
	o := newTestOrder(t)
	exp := time.Now().Add(-time.Minute)
	o.AttachCheckoutSession("cs_test", &exp)

	require.NoError(t, o.Expire())
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, PaymentStatusExpired, o.PaymentStatus)
	assert.Nil(t, o.ReservationExpiresAt)
	assert.Equal(t, "cs_test", o.SessionID())
}

func TestOrder_TransitionTo(t *testing.T) {
	o := newTestOrder(t)

	assert.Error(t, o.TransitionTo("shipped"))
	assert.Error(t, o.TransitionTo(StatusFulfilled))
	require.NoError(t, o.TransitionTo(StatusProcessing))
	require.NoError(t, o.TransitionTo(StatusFulfilled))
	assert.Error(t, o.TransitionTo(StatusPending))
}

func TestOrder_LedgerItems(t *testing.T) {
	o := newTestOrder(t)
	items := o.LedgerItems()
	require.Len(t, items, 2)
	assert.Equal(t, 2.0, items[0].Quantity)
	assert.Equal(t, "B-L", items[1].VariantSKU)
}

func TestOrder_InitFulfillment(t *testing.T) {
	o := newTestOrder(t)
	o.Fulfillment.ShipMethod = "pickup"
	o.InitFulfillment()
	assert.Equal(t, FulfillmentUnfulfilled, o.Fulfillment.Status)
	assert.Equal(t, "pickup", o.Fulfillment.ShipMethod)
}

func TestOrder_RecordShipment(t *testing.T) {
	o := newTestOrder(t)
	o.ClearDomainEvents()

	assert.Nil(t, o.RecordShipment(FulfillmentPatch{}))
	assert.Empty(t, o.GetDomainEvents())

	carrier := "ups"
	tracking := "1Z999AA10123456784"
	fields := o.RecordShipment(FulfillmentPatch{Carrier: &carrier, TrackingNumber: &tracking})

	assert.Equal(t, []string{"carrier", "tracking_number"}, fields)
	assert.Equal(t, "ups", o.Fulfillment.Carrier)
	require.Len(t, o.GetDomainEvents(), 1)
	ev, ok := o.GetDomainEvents()[0].(*ShipmentRecordedEvent)
	require.True(t, ok)
	assert.Equal(t, tracking, ev.TrackingNumber)
	assert.Equal(t, EventTypeShipmentRecorded, ev.EventType())
}
