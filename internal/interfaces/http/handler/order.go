package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apporder "github.com/storefront/fulfillment/internal/application/order"
	"github.com/storefront/fulfillment/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

const defaultOrderPageSize = 20

// OrderManager reads and updates orders
type OrderManager interface {
	GetByID(ctx context.Context, id uuid.UUID) (*apporder.OrderResponse, error)
	List(ctx context.Context, req apporder.ListOrdersRequest) ([]apporder.OrderListItemResponse, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req apporder.UpdateStatusRequest) (*apporder.OrderResponse, error)
}

// OrderHandler serves the admin order endpoints
type OrderHandler struct {
	BaseHandler
	orders OrderManager
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderManager, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{BaseHandler: newBaseHandler(logger), orders: orders}
}

// List returns orders newest first
func (h *OrderHandler) List(c *gin.Context) {
	var req apporder.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = defaultOrderPageSize
	}

	items, total, err := h.orders.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, req.Page, req.PageSize)
}

// Get returns one order
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	resp, err := h.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateStatus moves an order through the status guard
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req apporder.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.orders.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Order status changed by admin",
		zap.String("order_id", id.String()),
		zap.String("status", resp.Status),
		zap.String("admin", middleware.GetJWTUsername(c)),
	)
	h.Success(c, resp)
}
