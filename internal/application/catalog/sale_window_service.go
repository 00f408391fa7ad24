package catalog

import (
	"context"
	"time"

	"github.com/storefront/fulfillment/internal/domain/catalog"
	"go.uber.org/zap"
)

const defaultSaleSweepBatchSize = 500

// SaleWindowService keeps the on-sale flag of products in line with their
// configured sale windows
type SaleWindowService struct {
	productRepo catalog.ProductRepository
	batchSize   int
	now         func() time.Time
	logger      *zap.Logger
}

// NewSaleWindowService creates a new SaleWindowService
func NewSaleWindowService(productRepo catalog.ProductRepository, logger *zap.Logger) *SaleWindowService {
	return &SaleWindowService{
		productRepo: productRepo,
		batchSize:   defaultSaleSweepBatchSize,
		now:         time.Now,
		logger:      logger,
	}
}

// SaleSweepStats contains statistics about one sale flag sweep
type SaleSweepStats struct {
	Candidates  int       `json:"candidates"`
	Activated   int       `json:"activated"`
	Deactivated int       `json:"deactivated"`
	Failed      int       `json:"failed"`
	ProcessedAt time.Time `json:"processed_at"`
}

// SyncSaleFlags flips the on-sale flag of every product whose window opened
// or closed since the last run. Products are handled independently.
func (s *SaleWindowService) SyncSaleFlags(ctx context.Context) (*SaleSweepStats, error) {
	stats := &SaleSweepStats{ProcessedAt: s.now()}

	products, err := s.productRepo.FindSaleFlagCandidates(ctx, stats.ProcessedAt, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to find sale flag candidates", zap.Error(err))
		return nil, err
	}
	stats.Candidates = len(products)

	for i := range products {
		p := &products[i]
		want, changed := p.SaleFlagDue(stats.ProcessedAt)
		if !changed {
			continue
		}
		if err := s.productRepo.SetOnSale(ctx, p.ID, want); err != nil {
			s.logger.Error("Failed to update sale flag",
				zap.String("product_id", p.ID.String()),
				zap.String("sku", p.SKU),
				zap.Bool("on_sale", want),
				zap.Error(err),
			)
			stats.Failed++
			continue
		}
		if want {
			stats.Activated++
		} else {
			stats.Deactivated++
		}
	}

	if stats.Activated+stats.Deactivated+stats.Failed > 0 {
		s.logger.Info("Sale flags synchronized",
			zap.Int("activated", stats.Activated),
			zap.Int("deactivated", stats.Deactivated),
			zap.Int("failed", stats.Failed),
		)
	}
	return stats, nil
}
