package handler

import (
	"hbinterface/backend/internal/middleware"
	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/service"
	"hbinterface/backend/internal/util"

	"github.com/gin-gonic/gin"
)

// OrderHandler serves paper order routes
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates an order handler
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req model.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendBindError(c, err)
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendCreated(c, order, "Order created successfully")
}

// ListOrders handles GET /api/orders?status=&symbol=
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var filter model.OrderFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		util.SendBindError(c, err)
		return
	}

	orders, err := h.orderService.List(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccess(c, orders)
}

// GetOrder handles GET /api/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccess(c, order)
}

// CancelOrder handles DELETE /api/orders/:id
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	order, err := h.orderService.Cancel(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccessWithMessage(c, order, "Order cancelled")
}
