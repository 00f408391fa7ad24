package persistence

import (
	"context"

	"github.com/storefront/fulfillment/internal/domain/inventory"
	"github.com/storefront/fulfillment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryTransactionRepository implements inventory.TransactionRepository using GORM
type GormInventoryTransactionRepository struct {
	db *gorm.DB
}

// NewGormInventoryTransactionRepository creates a new GormInventoryTransactionRepository
func NewGormInventoryTransactionRepository(db *gorm.DB) *GormInventoryTransactionRepository {
	return &GormInventoryTransactionRepository{db: db}
}

// Append inserts an audit entry. A conflicting dedupe key is skipped.
func (r *GormInventoryTransactionRepository) Append(ctx context.Context, tx *inventory.Transaction) error {
	model := models.InventoryTransactionModelFromDomain(tx)
	query := r.db.WithContext(ctx)
	if tx.DedupeKey != nil {
		query = query.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		})
	}
	return query.Create(model).Error
}

// FindByOrderRef lists the entries recorded for an order, oldest first
func (r *GormInventoryTransactionRepository) FindByOrderRef(ctx context.Context, orderRef string) ([]inventory.Transaction, error) {
	var rows []models.InventoryTransactionModel
	if err := r.db.WithContext(ctx).
		Where("order_ref = ?", orderRef).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	txs := make([]inventory.Transaction, len(rows))
	for i := range rows {
		txs[i] = *rows[i].ToDomain()
	}
	return txs, nil
}
