package inventory

import (
	"context"
	"time"

	"github.com/storefront/fulfillment/internal/domain/inventory"
	"github.com/storefront/fulfillment/internal/domain/order"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

const defaultExpiryBatchSize = 100

// ReservationExpiryService cancels abandoned checkouts and releases their holds
type ReservationExpiryService struct {
	orderRepo order.Repository
	ledger    *LedgerService
	eventBus  shared.EventBus
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

// NewReservationExpiryService creates a new ReservationExpiryService
func NewReservationExpiryService(
	orderRepo order.Repository,
	ledger *LedgerService,
	eventBus shared.EventBus,
	logger *zap.Logger,
) *ReservationExpiryService {
	return &ReservationExpiryService{
		orderRepo: orderRepo,
		ledger:    ledger,
		eventBus:  eventBus,
		batchSize: defaultExpiryBatchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// SetBatchSize limits how many orders one sweep considers
func (s *ReservationExpiryService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// ExpiredReservationStats contains statistics about one sweep
type ExpiredReservationStats struct {
	TotalExpired    int       `json:"total_expired"`
	SuccessReleased int       `json:"success_released"`
	FailedReleases  int       `json:"failed_releases"`
	SkippedLines    int       `json:"skipped_lines"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// ReleaseExpiredReservations cancels pending orders whose reservation window
// has passed and releases their stock. A failure on one order is logged and
// the sweep moves on; the next run picks up anything still matching.
func (s *ReservationExpiryService) ReleaseExpiredReservations(ctx context.Context) (*ExpiredReservationStats, error) {
	stats := &ExpiredReservationStats{
		ProcessedAt: s.now(),
	}

	orders, err := s.orderRepo.FindExpiredReservations(ctx, stats.ProcessedAt, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to find expired reservations", zap.Error(err))
		return nil, err
	}

	stats.TotalExpired = len(orders)
	if stats.TotalExpired == 0 {
		s.logger.Debug("No expired reservations found")
		return stats, nil
	}

	s.logger.Info("Found expired reservations", zap.Int("count", stats.TotalExpired))

	for i := range orders {
		skipped, err := s.ExpireOrder(ctx, &orders[i])
		if err != nil {
			s.logger.Error("Failed to expire order",
				zap.String("order_id", orders[i].ID.String()),
				zap.String("order_number", orders[i].OrderNumber),
				zap.Error(err),
			)
			stats.FailedReleases++
			continue
		}
		stats.SkippedLines += skipped
		stats.SuccessReleased++
	}

	s.logger.Info("Completed expired reservation release",
		zap.Int("total", stats.TotalExpired),
		zap.Int("released", stats.SuccessReleased),
		zap.Int("failed", stats.FailedReleases),
	)

	return stats, nil
}

// ExpireOrder cancels one abandoned order and releases its hold. The cancelled
// state is saved first so that a concurrent caller losing the version check
// never releases the same stock twice. It returns the number of skipped lines.
func (s *ReservationExpiryService) ExpireOrder(ctx context.Context, o *order.Order) (int, error) {
	if err := o.Expire(); err != nil {
		return 0, err
	}
	if err := s.orderRepo.Save(ctx, o); err != nil {
		return 0, err
	}

	report := s.ledger.Release(ctx, o.ID.String(), o.LedgerItems(), inventory.ReasonExpired)

	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, o.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish order events",
				zap.String("order_id", o.ID.String()),
				zap.Error(err),
			)
		}
	}
	o.ClearDomainEvents()

	return len(report.Skipped), nil
}
