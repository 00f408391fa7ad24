package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID loads a product with its variants
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindBySKU matches the product SKU or any of its variant SKUs
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// Save creates or updates a product and its variants
	Save(ctx context.Context, product *Product) error

	// FindSaleFlagCandidates returns products whose on-sale flag may be stale at now:
	// windows that opened while the flag is off, or closed while it is on.
	FindSaleFlagCandidates(ctx context.Context, now time.Time, limit int) ([]Product, error)

	// SetOnSale updates only the on-sale flag
	SetOnSale(ctx context.Context, id uuid.UUID, onSale bool) error
}
