package persistence

import (
	"context"

	"github.com/storefront/fulfillment/internal/domain/billing"
	"github.com/storefront/fulfillment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCustomerRepository implements billing.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByEmail finds a customer by normalized email
func (r *GormCustomerRepository) FindByEmail(ctx context.Context, email string) (*billing.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).
		Where("email = ?", billing.NormalizeEmail(email)).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a customer; the unique email index rejects duplicates
func (r *GormCustomerRepository) Create(ctx context.Context, c *billing.Customer) error {
	err := r.db.WithContext(ctx).Create(models.CustomerModelFromDomain(c)).Error
	return translateError(err)
}
