package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed event IDs to prevent duplicate processing
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL
	// Returns true if the event was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an event has already been processed
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Forget removes a marker so the event can be retried
	Forget(ctx context.Context, eventID string) error

	// Close closes the store and releases resources
	Close() error
}

// KeyedLocker serializes work on a single key (e.g. one checkout session)
// across goroutines or processes.
type KeyedLocker interface {
	// Lock blocks until the key is held or ctx is done.
	// The returned func releases the lock and is safe to call once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is the time-to-live for processed event IDs
	TTL time.Duration

	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     72 * time.Hour,
		Enabled: true,
	}
}
