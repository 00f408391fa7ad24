package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/fulfillment/internal/domain/inventory"
	"go.uber.org/zap"
)

// FulfillmentInitializer sets the initial fulfillment record of a committed order
type FulfillmentInitializer interface {
	InitFulfillment(ctx context.Context, orderID uuid.UUID) error
}

// LedgerRecorder receives per-operation line counts
type LedgerRecorder interface {
	RecordLedgerLines(ctx context.Context, operation string, applied, skipped int)
}

// LedgerService moves stock counters for order lines and keeps the audit trail.
// Every line is applied on its own; a failed line is logged and reported as
// skipped while the remaining lines still go through.
type LedgerService struct {
	stockRepo inventory.StockRepository
	txRepo    inventory.TransactionRepository
	orders    FulfillmentInitializer
	recorder  LedgerRecorder
	logger    *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	stockRepo inventory.StockRepository,
	txRepo inventory.TransactionRepository,
	orders FulfillmentInitializer,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		stockRepo: stockRepo,
		txRepo:    txRepo,
		orders:    orders,
		logger:    logger,
	}
}

// SetRecorder sets the metrics recorder
func (s *LedgerService) SetRecorder(recorder LedgerRecorder) {
	s.recorder = recorder
}

// Reserve places a checkout hold: reserved += qty for each line
func (s *LedgerService) Reserve(ctx context.Context, ref string, items []inventory.LineItem) *inventory.LedgerReport {
	return s.apply(ctx, inventory.OperationReserve, items, func(item inventory.LineItem, qty decimal.Decimal) (inventory.StockAdjustment, *inventory.Transaction) {
		return inventory.ReserveAdjustment(item, qty),
			inventory.NewTransaction(inventory.TransactionTypeReservation, item.ProductID, item.VariantSKU, qty, ref, inventory.ReasonCheckoutHold)
	})
}

// Commit turns holds into sales: in-stock and reserved both drop by qty.
// Counters are not idempotent; calling Commit twice for an order decrements
// twice. The audit trail keeps one sale entry per order line.
func (s *LedgerService) Commit(ctx context.Context, orderID uuid.UUID, items []inventory.LineItem) *inventory.LedgerReport {
	report := s.apply(ctx, inventory.OperationCommit, items, func(item inventory.LineItem, qty decimal.Decimal) (inventory.StockAdjustment, *inventory.Transaction) {
		return inventory.CommitAdjustment(item, qty),
			inventory.NewSaleTransaction(orderID, item.ProductID, item.VariantSKU, qty)
	})

	if s.orders != nil {
		if err := s.orders.InitFulfillment(ctx, orderID); err != nil {
			s.logger.Warn("Failed to initialize order fulfillment",
				zap.String("order_id", orderID.String()),
				zap.Error(err),
			)
		}
	}
	return report
}

// Release hands held stock back: in-stock += qty, reserved -= qty.
// An empty reason defaults to the cancellation reason.
func (s *LedgerService) Release(ctx context.Context, orderRef string, items []inventory.LineItem, reason string) *inventory.LedgerReport {
	if reason == "" {
		reason = inventory.ReasonOrderCancelled
	}
	return s.apply(ctx, inventory.OperationRelease, items, func(item inventory.LineItem, qty decimal.Decimal) (inventory.StockAdjustment, *inventory.Transaction) {
		return inventory.ReleaseAdjustment(item, qty),
			inventory.NewTransaction(inventory.TransactionTypeRelease, item.ProductID, item.VariantSKU, qty, orderRef, reason)
	})
}

// Restock returns units of an already committed sale to stock (in-stock += qty)
// and records them as returns.
func (s *LedgerService) Restock(ctx context.Context, orderRef string, items []inventory.LineItem, reason string) *inventory.LedgerReport {
	if reason == "" {
		reason = inventory.ReasonOrderCancelled
	}
	return s.apply(ctx, inventory.OperationRestock, items, func(item inventory.LineItem, qty decimal.Decimal) (inventory.StockAdjustment, *inventory.Transaction) {
		return inventory.RestockAdjustment(item, qty),
			inventory.NewTransaction(inventory.TransactionTypeReturn, item.ProductID, item.VariantSKU, qty, orderRef, reason)
	})
}

type lineMovement func(item inventory.LineItem, qty decimal.Decimal) (inventory.StockAdjustment, *inventory.Transaction)

func (s *LedgerService) apply(ctx context.Context, op inventory.Operation, items []inventory.LineItem, move lineMovement) *inventory.LedgerReport {
	report := inventory.NewLedgerReport(op)

	for i, item := range items {
		qty, reason := item.Validate()
		if reason != "" {
			s.logger.Debug("Skipping ledger line",
				zap.String("operation", string(op)),
				zap.Int("index", i),
				zap.String("reason", reason),
			)
			report.Skip(i, item, reason)
			continue
		}

		adj, tx := move(item, qty)
		if err := s.stockRepo.Adjust(ctx, adj); err != nil {
			s.logger.Error("Failed to adjust stock",
				zap.String("operation", string(op)),
				zap.String("product_id", item.ProductID.String()),
				zap.String("variant_sku", item.VariantSKU),
				zap.String("quantity", qty.String()),
				zap.Error(err),
			)
			report.Skip(i, item, inventory.SkipStoreFailure)
			continue
		}

		if err := s.txRepo.Append(ctx, tx); err != nil {
			// Counters already moved; the line counts as applied.
			s.logger.Warn("Failed to append inventory transaction",
				zap.String("operation", string(op)),
				zap.String("product_id", item.ProductID.String()),
				zap.String("type", tx.Type.String()),
				zap.Error(err),
			)
		}
		report.Applied++
	}

	if s.recorder != nil {
		s.recorder.RecordLedgerLines(ctx, string(op), report.Applied, len(report.Skipped))
	}
	if len(report.Skipped) > 0 {
		s.logger.Warn("Ledger operation completed with skipped lines",
			zap.String("operation", string(op)),
			zap.Int("applied", report.Applied),
			zap.Int("skipped", len(report.Skipped)),
		)
	}
	return report
}
