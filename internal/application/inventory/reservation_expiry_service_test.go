package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/inventory"
	"github.com/storefront/fulfillment/internal/domain/order"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/storefront/fulfillment/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPendingOrder(t *testing.T, number string, productID uuid.UUID, qty int) order.Order {
	t.Helper()
	o, err := order.NewOrder(number, []order.LineItem{{ProductID: productID, Quantity: qty, UnitPriceCents: 1000}}, "usd")
	require.NoError(t, err)
	expires := time.Now().Add(-time.Minute)
	o.AttachCheckoutSession("cs_test_"+number, &expires)
	o.ClearDomainEvents()
	return *o
}

func TestReservationExpiryService_ReleaseExpiredReservations(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	t.Run("no expired reservations", func(t *testing.T) {
		f := newLedgerFixture()
		bus := new(testutil.MockEventBus)
		svc := NewReservationExpiryService(f.orders, f.svc, bus, zap.NewNop())
		svc.now = func() time.Time { return now }

		f.orders.On("FindExpiredReservations", ctx, now, defaultExpiryBatchSize).Return([]order.Order{}, nil)

		stats, err := svc.ReleaseExpiredReservations(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.TotalExpired)
		assert.Equal(t, now, stats.ProcessedAt)
		f.stock.AssertNotCalled(t, "Adjust", mock.Anything, mock.Anything)
	})

	t.Run("cancels and releases", func(t *testing.T) {
		f := newLedgerFixture()
		bus := new(testutil.MockEventBus)
		svc := NewReservationExpiryService(f.orders, f.svc, bus, zap.NewNop())
		svc.now = func() time.Time { return now }
		svc.SetBatchSize(10)

		productID := uuid.New()
		expired := newPendingOrder(t, "ORD-20260510-AAAA0001", productID, 2)

		f.orders.On("FindExpiredReservations", ctx, now, 10).Return([]order.Order{expired}, nil)
		f.orders.On("Save", ctx, mock.MatchedBy(func(o *order.Order) bool {
			return o.Status == order.StatusCancelled &&
				o.PaymentStatus == order.PaymentStatusExpired &&
				o.ReservationExpiresAt == nil
		})).Return(nil).Once()
		f.stock.On("Adjust", ctx, adjustmentOf(productID, "", 2, -2)).Return(nil).Once()
		f.txs.On("Append", ctx, mock.MatchedBy(func(tx *inventory.Transaction) bool {
			return tx.Type == inventory.TransactionTypeRelease &&
				tx.Reason == inventory.ReasonExpired &&
				tx.OrderRef == expired.ID.String()
		})).Return(nil).Once()
		bus.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return len(events) == 1 && events[0].EventType() == order.EventTypeOrderStatusChanged
		})).Return(nil).Once()

		stats, err := svc.ReleaseExpiredReservations(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalExpired)
		assert.Equal(t, 1, stats.SuccessReleased)
		assert.Equal(t, 0, stats.FailedReleases)
		assert.Equal(t, 0, stats.SkippedLines)

		f.orders.AssertExpectations(t)
		f.stock.AssertExpectations(t)
		f.txs.AssertExpectations(t)
		bus.AssertExpectations(t)
	})

	t.Run("save conflict skips release", func(t *testing.T) {
		f := newLedgerFixture()
		svc := NewReservationExpiryService(f.orders, f.svc, nil, zap.NewNop())
		svc.now = func() time.Time { return now }

		first := newPendingOrder(t, "ORD-20260510-AAAA0002", uuid.New(), 1)
		second := newPendingOrder(t, "ORD-20260510-AAAA0003", uuid.New(), 1)

		f.orders.On("FindExpiredReservations", ctx, now, defaultExpiryBatchSize).
			Return([]order.Order{first, second}, nil)
		f.orders.On("Save", ctx, mock.MatchedBy(func(o *order.Order) bool { return o.ID == first.ID })).
			Return(shared.ErrConcurrencyConflict)
		f.orders.On("Save", ctx, mock.MatchedBy(func(o *order.Order) bool { return o.ID == second.ID })).
			Return(nil)
		f.stock.On("Adjust", ctx, mock.Anything).Return(nil)
		f.txs.On("Append", ctx, mock.Anything).Return(nil)

		stats, err := svc.ReleaseExpiredReservations(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalExpired)
		assert.Equal(t, 1, stats.SuccessReleased)
		assert.Equal(t, 1, stats.FailedReleases)
		f.stock.AssertNumberOfCalls(t, "Adjust", 1)
	})

	t.Run("skipped lines are counted", func(t *testing.T) {
		f := newLedgerFixture()
		svc := NewReservationExpiryService(f.orders, f.svc, nil, zap.NewNop())
		svc.now = func() time.Time { return now }

		broken := newPendingOrder(t, "ORD-20260510-AAAA0004", uuid.New(), 1)
		broken.Items = append(broken.Items, order.LineItem{ProductID: uuid.Nil, Quantity: 1})

		f.orders.On("FindExpiredReservations", ctx, now, defaultExpiryBatchSize).Return([]order.Order{broken}, nil)
		f.orders.On("Save", ctx, mock.Anything).Return(nil)
		f.stock.On("Adjust", ctx, mock.Anything).Return(nil)
		f.txs.On("Append", ctx, mock.Anything).Return(nil)

		stats, err := svc.ReleaseExpiredReservations(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.SuccessReleased)
		assert.Equal(t, 1, stats.SkippedLines)
	})

	t.Run("repository error", func(t *testing.T) {
		f := newLedgerFixture()
		svc := NewReservationExpiryService(f.orders, f.svc, nil, zap.NewNop())
		svc.now = func() time.Time { return now }

		f.orders.On("FindExpiredReservations", ctx, now, defaultExpiryBatchSize).
			Return(nil, errors.New("database unavailable"))

		stats, err := svc.ReleaseExpiredReservations(ctx)
		assert.Error(t, err)
		assert.Nil(t, stats)
	})
}
