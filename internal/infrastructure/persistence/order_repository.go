package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/order"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/storefront/fulfillment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// orderColumns are written by Save. Identity columns (id, order_number,
// created_at) never change after Create.
var orderColumns = []string{
	"status", "payment_status", "items", "customer_id", "customer_email",
	"customer_name", "shipping_address", "shipping_label", "subtotal_cents",
	"shipping_cents", "total_cents", "currency", "stripe_session_id",
	"payment_intent_id", "paid_at", "reservation_expires_at",
	"fulfillment_status", "ship_method", "carrier", "service",
	"tracking_number", "tracking_url", "label_url", "weight_oz", "ship_date",
	"estimated_delivery", "delivered_at", "shipstation_order_id",
	"shipstation_order_key", "version", "updated_at",
}

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// withHistory preloads tracking events and the shipping log, oldest first
func withHistory(db *gorm.DB) *gorm.DB {
	return db.
		Preload("TrackingEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("occurred_at ASC")
		}).
		Preload("ShippingLog", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
}

func (r *GormOrderRepository) findOne(ctx context.Context, query string, args ...interface{}) (*order.Order, error) {
	var model models.OrderModel
	if err := withHistory(r.db.WithContext(ctx)).
		Where(query, args...).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByOrderNumber finds an order by its human-readable number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return r.findOne(ctx, "order_number = ?", orderNumber)
}

// FindByStripeSessionID finds the order created for a checkout session
func (r *GormOrderRepository) FindByStripeSessionID(ctx context.Context, sessionID string) (*order.Order, error) {
	if sessionID == "" {
		return nil, shared.ErrNotFound
	}
	return r.findOne(ctx, "stripe_session_id = ?", sessionID)
}

// FindByTrackingNumber finds the most recent order shipped under a tracking number
func (r *GormOrderRepository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*order.Order, error) {
	if trackingNumber == "" {
		return nil, shared.ErrNotFound
	}
	var model models.OrderModel
	if err := withHistory(r.db.WithContext(ctx)).
		Where("tracking_number = ?", trackingNumber).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists a page of orders along with the total count
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	if err := r.applyFilter(r.db.WithContext(ctx), filter).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	orders := make([]order.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, total, nil
}

// Create inserts a new order. Tracking events and log entries are appended
// through their own methods.
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error
	return translateError(err)
}

// Save writes the order with optimistic locking. The stored version must
// match o.Version; on success both are incremented.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	model.Version = o.Version + 1
	model.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).
		Model(model).
		Where("version = ?", o.Version).
		Select(orderColumns).
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("id = ?", o.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}

	o.Version = model.Version
	o.UpdatedAt = model.UpdatedAt
	return nil
}

// PatchFulfillment writes only the fields present on the patch. The order
// version is left alone: carriers patch disjoint shipping columns.
func (r *GormOrderRepository) PatchFulfillment(ctx context.Context, id uuid.UUID, patch order.FulfillmentPatch) error {
	updates := fulfillmentUpdates(patch)
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// fulfillmentUpdates maps the set patch fields to their columns
func fulfillmentUpdates(p order.FulfillmentPatch) map[string]interface{} {
	updates := make(map[string]interface{})
	if p.Status != nil {
		updates["fulfillment_status"] = string(*p.Status)
	}
	if p.Carrier != nil {
		updates["carrier"] = *p.Carrier
	}
	if p.Service != nil {
		updates["service"] = *p.Service
	}
	if p.TrackingNumber != nil {
		updates["tracking_number"] = *p.TrackingNumber
	}
	if p.TrackingURL != nil {
		updates["tracking_url"] = *p.TrackingURL
	}
	if p.LabelURL != nil {
		updates["label_url"] = *p.LabelURL
	}
	if p.WeightOz != nil {
		updates["weight_oz"] = *p.WeightOz
	}
	if p.ShipDate != nil {
		updates["ship_date"] = *p.ShipDate
	}
	if p.EstimatedDelivery != nil {
		updates["estimated_delivery"] = *p.EstimatedDelivery
	}
	if p.DeliveredAt != nil {
		updates["delivered_at"] = *p.DeliveredAt
	}
	if p.ShipStationOrderID != nil {
		updates["shipstation_order_id"] = *p.ShipStationOrderID
	}
	if p.ShipStationOrderKey != nil {
		updates["shipstation_order_key"] = *p.ShipStationOrderKey
	}
	return updates
}

// AppendShippingLog stores a shipping log entry
func (r *GormOrderRepository) AppendShippingLog(ctx context.Context, entry order.ShippingLogEntry) error {
	err := r.db.WithContext(ctx).Create(models.ShippingLogEntryModelFromDomain(entry)).Error
	return translateError(err)
}

// AppendTrackingEvent stores a carrier tracking event
func (r *GormOrderRepository) AppendTrackingEvent(ctx context.Context, ev order.TrackingEvent) error {
	err := r.db.WithContext(ctx).Create(models.TrackingEventModelFromDomain(ev)).Error
	return translateError(err)
}

// InitFulfillment sets the fulfillment status and ship method where unset
func (r *GormOrderRepository) InitFulfillment(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"fulfillment_status": gorm.Expr("COALESCE(NULLIF(fulfillment_status, ''), ?)", string(order.FulfillmentUnfulfilled)),
			"ship_method":        gorm.Expr("COALESCE(NULLIF(ship_method, ''), ?)", order.ShipMethodShip),
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindExpiredReservations returns pending orders whose hold lapsed before
// the given time, oldest expiry first
func (r *GormOrderRepository) FindExpiredReservations(ctx context.Context, before time.Time, limit int) ([]order.Order, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", order.StatusPending).
		Where("reservation_expires_at IS NOT NULL AND reservation_expires_at < ?", before).
		Order("reservation_expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.OrderModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	orders := make([]order.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, nil
}

// applyFilter applies ordering and pagination
func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	sortField := ValidateSortField(filter.OrderBy, OrderSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}
