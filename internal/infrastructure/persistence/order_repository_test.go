package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/order"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/storefront/fulfillment/internal/domain/shipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T, number string) *order.Order {
	t.Helper()
	o, err := order.NewOrder(number, []order.LineItem{
		{ProductID: uuid.New(), SKU: "TEE", Name: "Tee", Quantity: 2, UnitPriceCents: 1800},
		{ProductID: uuid.New(), VariantSKU: "MUG-BLUE", Quantity: 1, UnitPriceCents: 1200},
	}, "usd")
	require.NoError(t, err)
	o.ShippingAddress = &shipping.Address{Line1: "1 Main St", City: "Austin", State: "TX", PostalCode: "78701", Country: "US"}
	o.SetShipping("Ground", 895)
	return o
}

func TestGormOrderRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "ORD-20260510-00000001")
	expires := time.Now().Add(time.Hour)
	o.AttachCheckoutSession("cs_test_a", &expires)
	require.NoError(t, repo.Create(ctx, o))

	t.Run("by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.OrderNumber, found.OrderNumber)
		assert.Equal(t, order.StatusPending, found.Status)
		assert.Equal(t, order.PaymentStatusUnpaid, found.PaymentStatus)
		assert.Equal(t, o.Items, found.Items)
		require.NotNil(t, found.ShippingAddress)
		assert.Equal(t, "78701", found.ShippingAddress.PostalCode)
		assert.Equal(t, int64(4800+895), found.TotalCents)
		assert.Equal(t, 1, found.Version)
	})

	t.Run("by session and number", func(t *testing.T) {
		bySession, err := repo.FindByStripeSessionID(ctx, "cs_test_a")
		require.NoError(t, err)
		assert.Equal(t, o.ID, bySession.ID)

		byNumber, err := repo.FindByOrderNumber(ctx, o.OrderNumber)
		require.NoError(t, err)
		assert.Equal(t, o.ID, byNumber.ID)

		_, err = repo.FindByStripeSessionID(ctx, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("duplicate session is rejected", func(t *testing.T) {
		dup := newTestOrder(t, "ORD-20260510-00000002")
		dup.AttachCheckoutSession("cs_test_a", nil)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("duplicate number is rejected", func(t *testing.T) {
		dup := newTestOrder(t, o.OrderNumber)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
	})
}

func TestGormOrderRepository_Save(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "ORD-20260510-00000010")
	require.NoError(t, repo.Create(ctx, o))

	paidAt := time.Now()
	changed, err := o.MarkPaid("pi_123", 5695, paidAt)
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, repo.Save(ctx, o))
	assert.Equal(t, 2, o.Version)

	found, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, found.Status)
	assert.Equal(t, order.PaymentStatusPaid, found.PaymentStatus)
	assert.Equal(t, "pi_123", found.PaymentIntentID)
	assert.Equal(t, 2, found.Version)
	require.NotNil(t, found.PaidAt)
	assert.Nil(t, found.ReservationExpiresAt)

	t.Run("stale version conflicts", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, o))

		stale.CustomerName = "Late Writer"
		assert.ErrorIs(t, repo.Save(ctx, stale), shared.ErrConcurrencyConflict)
	})

	t.Run("missing order", func(t *testing.T) {
		ghost := newTestOrder(t, "ORD-20260510-GHOST001")
		assert.ErrorIs(t, repo.Save(ctx, ghost), shared.ErrNotFound)
	})
}

func TestGormOrderRepository_Fulfillment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "ORD-20260510-00000020")
	require.NoError(t, repo.Create(ctx, o))

	require.NoError(t, repo.InitFulfillment(ctx, o.ID))
	found, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.FulfillmentUnfulfilled, found.Fulfillment.Status)
	assert.Equal(t, order.ShipMethodShip, found.Fulfillment.ShipMethod)

	status := order.FulfillmentLabelCreated
	carrier := "UPS"
	tracking := "1Z999"
	weight := 32.0
	require.NoError(t, repo.PatchFulfillment(ctx, o.ID, order.FulfillmentPatch{
		Status:         &status,
		Carrier:        &carrier,
		TrackingNumber: &tracking,
		WeightOz:       &weight,
	}))

	// a second init leaves the patched status alone
	require.NoError(t, repo.InitFulfillment(ctx, o.ID))

	found, err = repo.FindByTrackingNumber(ctx, "1Z999")
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)
	assert.Equal(t, order.FulfillmentLabelCreated, found.Fulfillment.Status)
	assert.Equal(t, "UPS", found.Fulfillment.Carrier)
	require.NotNil(t, found.Fulfillment.WeightOz)
	assert.Equal(t, 32.0, *found.Fulfillment.WeightOz)
	assert.Empty(t, found.Fulfillment.Service)

	require.NoError(t, repo.PatchFulfillment(ctx, o.ID, order.FulfillmentPatch{}))
	assert.ErrorIs(t, repo.PatchFulfillment(ctx, uuid.New(), order.FulfillmentPatch{Carrier: &carrier}), shared.ErrNotFound)
	assert.ErrorIs(t, repo.InitFulfillment(ctx, uuid.New()), shared.ErrNotFound)

	_, err = repo.FindByTrackingNumber(ctx, "unknown")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_History(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "ORD-20260510-00000030")
	require.NoError(t, repo.Create(ctx, o))

	at := time.Now().Add(-time.Hour)
	ev, _ := o.ApplyTrackingStatus("in_transit", "departed facility", "tracker", at)
	require.NoError(t, repo.AppendTrackingEvent(ctx, ev))
	assert.ErrorIs(t, repo.AppendTrackingEvent(ctx, ev), shared.ErrAlreadyExists)

	entry := order.NewShippingLogEntry(o.ID, "shipstation", "SHIP_NOTIFY", "label created", []string{"carrier", "tracking_number"})
	require.NoError(t, repo.AppendShippingLog(ctx, entry))

	found, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, found.TrackingEvents, 1)
	assert.Equal(t, order.FulfillmentInTransit, found.TrackingEvents[0].Status)
	assert.Equal(t, "departed facility", found.TrackingEvents[0].Detail)
	require.Len(t, found.ShippingLog, 1)
	assert.Equal(t, []string{"carrier", "tracking_number"}, found.ShippingLog[0].Fields)
}

func TestGormOrderRepository_FindExpiredReservations(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()
	now := time.Now()

	expiredAt := now.Add(-10 * time.Minute)
	expired := newTestOrder(t, "ORD-20260510-00000040")
	expired.AttachCheckoutSession("cs_expired", &expiredAt)
	require.NoError(t, repo.Create(ctx, expired))

	olderAt := now.Add(-time.Hour)
	older := newTestOrder(t, "ORD-20260510-00000041")
	older.AttachCheckoutSession("cs_older", &olderAt)
	require.NoError(t, repo.Create(ctx, older))

	liveAt := now.Add(time.Hour)
	live := newTestOrder(t, "ORD-20260510-00000042")
	live.AttachCheckoutSession("cs_live", &liveAt)
	require.NoError(t, repo.Create(ctx, live))

	paid := newTestOrder(t, "ORD-20260510-00000043")
	paid.AttachCheckoutSession("cs_paid", &expiredAt)
	paid.Status = order.StatusPaid
	require.NoError(t, repo.Create(ctx, paid))

	orders, err := repo.FindExpiredReservations(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, older.ID, orders[0].ID)
	assert.Equal(t, expired.ID, orders[1].ID)

	limited, err := repo.FindExpiredReservations(ctx, now, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormOrderRepository_FindAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, number := range []string{"ORD-20260510-00000051", "ORD-20260510-00000052", "ORD-20260510-00000053"} {
		o := newTestOrder(t, number)
		o.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, o))
	}

	filter := shared.DefaultFilter()
	filter.PageSize = 2

	page, total, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "ORD-20260510-00000053", page[0].OrderNumber)

	filter.Page = 2
	page, _, err = repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "ORD-20260510-00000051", page[0].OrderNumber)
}
