package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/storefront/fulfillment/internal/domain/inventory"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/storefront/fulfillment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStockRepository implements inventory.StockRepository with atomic
// increments, so concurrent adjustments to one row never lose an update.
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// Adjust applies the deltas to the matching variant row, falling back to the
// product row when the SKU names no variant of the product.
func (r *GormStockRepository) Adjust(ctx context.Context, adj inventory.StockAdjustment) error {
	updates := map[string]interface{}{
		"quantity_in_stock": gorm.Expr("quantity_in_stock + ?", adj.InStockDelta),
		"quantity_reserved": gorm.Expr("quantity_reserved + ?", adj.ReservedDelta),
		"updated_at":        time.Now(),
	}

	if sku := strings.TrimSpace(adj.VariantSKU); sku != "" {
		result := r.db.WithContext(ctx).
			Model(&models.VariantModel{}).
			Where("product_id = ? AND LOWER(sku) = LOWER(?)", adj.ProductID, sku).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}
	}

	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ?", adj.ProductID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
