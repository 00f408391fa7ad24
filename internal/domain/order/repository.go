package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/shared"
)

// Repository defines the interface for order persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindByStripeSessionID looks up the order created for a payment session
	FindByStripeSessionID(ctx context.Context, sessionID string) (*Order, error)

	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*Order, error)

	// FindAll lists orders, newest first
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, int64, error)

	// Create inserts a new order. Returns shared.ErrAlreadyExists when the
	// session id or order number is already taken.
	Create(ctx context.Context, o *Order) error

	// Save updates scalar and fulfillment fields with optimistic locking.
	// Returns shared.ErrConcurrencyConflict on a version mismatch.
	Save(ctx context.Context, o *Order) error

	// PatchFulfillment writes only the fields set on the patch
	PatchFulfillment(ctx context.Context, id uuid.UUID, patch FulfillmentPatch) error

	AppendShippingLog(ctx context.Context, entry ShippingLogEntry) error
	AppendTrackingEvent(ctx context.Context, ev TrackingEvent) error

	// InitFulfillment sets fulfillment status unfulfilled and ship method
	// "ship" where they are not already set
	InitFulfillment(ctx context.Context, id uuid.UUID) error

	// FindExpiredReservations returns pending orders whose reservation
	// expired before the given time
	FindExpiredReservations(ctx context.Context, before time.Time, limit int) ([]Order, error)
}
