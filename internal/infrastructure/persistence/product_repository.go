package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/catalog"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/storefront/fulfillment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// productColumns are rewritten by Save on an existing row. Stock counters are
// left out: they only move through GormStockRepository.Adjust.
var productColumns = []string{
	"name", "sku", "price_cents", "shipping_weight_lb", "box_dimensions",
	"shipping_class", "ships_alone", "on_sale", "sale_price_cents",
	"sale_starts_at", "sale_ends_at", "version", "updated_at",
}

var variantColumns = []string{
	"sku", "name", "shipping_weight_lb", "box_dimensions", "shipping_class",
	"ships_alone", "updated_at",
}

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID, with variants
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Preload("Variants").
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindBySKU matches the product SKU first, then variant SKUs. Matching is
// case-insensitive.
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	var model models.ProductModel
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("LOWER(sku) = LOWER(?)", sku).
		First(&model).Error
	if err == nil {
		return model.ToDomain(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var variant models.VariantModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(sku) = LOWER(?)", sku).
		First(&variant).Error; err != nil {
		return nil, translateError(err)
	}
	return r.FindByID(ctx, variant.ProductID)
}

// Save creates or updates a product and its variants in one transaction
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	variants := model.Variants
	model.Variants = nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(productColumns),
		}).Create(model).Error; err != nil {
			return err
		}
		for i := range variants {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns(variantColumns),
			}).Create(&variants[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translateError(err)
}

// FindSaleFlagCandidates returns products whose stored on-sale flag disagrees
// with their sale window at now.
func (r *GormProductRepository) FindSaleFlagCandidates(ctx context.Context, now time.Time, limit int) ([]catalog.Product, error) {
	opened := r.db.
		Where("on_sale = ?", false).
		Where("(sale_starts_at IS NOT NULL OR sale_ends_at IS NOT NULL)").
		Where("(sale_starts_at IS NULL OR sale_starts_at <= ?)", now).
		Where("(sale_ends_at IS NULL OR sale_ends_at > ?)", now)
	closed := r.db.
		Where("on_sale = ?", true).
		Where("((sale_starts_at IS NULL AND sale_ends_at IS NULL) OR sale_starts_at > ? OR sale_ends_at <= ?)", now, now)

	query := r.db.WithContext(ctx).
		Preload("Variants").
		Where(opened).Or(closed).
		Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.ProductModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, nil
}

// SetOnSale updates only the on-sale flag
func (r *GormProductRepository) SetOnSale(ctx context.Context, id uuid.UUID, onSale bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"on_sale":    onSale,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
