package persistence

import (
	"context"

	"github.com/storefront/fulfillment/internal/domain/billing"
	"github.com/storefront/fulfillment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindBySessionID finds the invoice issued for a checkout session
func (r *GormInvoiceRepository) FindBySessionID(ctx context.Context, sessionID string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts an invoice. A second invoice for the same session is
// rejected by the unique index and reported as shared.ErrAlreadyExists.
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *billing.Invoice) error {
	err := r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(inv)).Error
	return translateError(err)
}
