package inventory

import (
	"context"
)

// StockRepository applies counter deltas. Each call is atomic for one row;
// there is no cross-row transaction.
type StockRepository interface {
	// Adjust applies the deltas to the variant row matching VariantSKU when
	// one exists, otherwise to the product row. Returns shared.ErrNotFound
	// when the product does not exist.
	Adjust(ctx context.Context, adj StockAdjustment) error
}

// TransactionRepository persists the audit trail
type TransactionRepository interface {
	// Append stores an entry. An entry whose DedupeKey already exists is
	// ignored without error.
	Append(ctx context.Context, tx *Transaction) error

	// FindByOrderRef lists entries for an order, oldest first
	FindByOrderRef(ctx context.Context, orderRef string) ([]Transaction, error)
}
