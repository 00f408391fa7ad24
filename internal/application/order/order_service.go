package order

import (
	"context"

	"github.com/google/uuid"
	appinventory "github.com/storefront/fulfillment/internal/application/inventory"
	"github.com/storefront/fulfillment/internal/domain/inventory"
	"github.com/storefront/fulfillment/internal/domain/order"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// OrderService handles order lookups and human-driven status changes
type OrderService struct {
	orderRepo      order.Repository
	ledger         *appinventory.LedgerService
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(orderRepo order.Repository, ledger *appinventory.LedgerService, logger *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		ledger:    ledger,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetByID retrieves an order by ID
func (s *OrderService) GetByID(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(o)
	return &response, nil
}

// List retrieves a page of orders, newest first
func (s *OrderService) List(ctx context.Context, req ListOrdersRequest) ([]OrderListItemResponse, int64, error) {
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}

	orders, total, err := s.orderRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderListItemResponses(orders), total, nil
}

// UpdateStatus moves an order to a new status through the transition guard.
// Entering cancelled or refunded returns the order's stock: a pending order
// releases its checkout hold, a paid one puts the sold units back.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, req UpdateStatusRequest) (*OrderResponse, error) {
	next := order.Status(req.Status)
	if !next.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown order status: "+req.Status)
	}

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	prev := o.Status
	if err := o.TransitionTo(next); err != nil {
		return nil, err
	}
	if prev == next {
		response := ToOrderResponse(o)
		return &response, nil
	}
	if next == order.StatusRefunded {
		o.PaymentStatus = order.PaymentStatusRefunded
	}

	if err := s.orderRepo.Save(ctx, o); err != nil {
		return nil, err
	}

	if next.ReleasesStock() && !prev.ReleasesStock() {
		s.returnStock(ctx, o, prev, req.Reason)
	}

	s.publishEvents(ctx, o)

	s.logger.Info("Order status updated",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
	)

	response := ToOrderResponse(o)
	return &response, nil
}

func (s *OrderService) returnStock(ctx context.Context, o *order.Order, prev order.Status, reason string) {
	if s.ledger == nil {
		return
	}
	if reason == "" {
		reason = inventory.ReasonOrderCancelled
	}

	var report *inventory.LedgerReport
	if prev == order.StatusPending || prev == "" {
		report = s.ledger.Release(ctx, o.ID.String(), o.LedgerItems(), reason)
	} else {
		report = s.ledger.Restock(ctx, o.ID.String(), o.LedgerItems(), reason)
	}
	if !report.AllApplied() {
		s.logger.Warn("Stock return incomplete",
			zap.String("order_id", o.ID.String()),
			zap.String("operation", string(report.Operation)),
			zap.Int("skipped", len(report.Skipped)),
		)
	}
}

func (s *OrderService) publishEvents(ctx context.Context, o *order.Order) {
	if s.eventPublisher == nil {
		o.ClearDomainEvents()
		return
	}
	if err := s.eventPublisher.Publish(ctx, o.GetDomainEvents()...); err != nil {
		s.logger.Warn("Failed to publish order events",
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
	}
	o.ClearDomainEvents()
}
