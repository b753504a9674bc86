package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/internal/repository"
	"hbinterface/backend/internal/util"
	"hbinterface/backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderService manages paper orders kept in redis
type OrderService struct {
	repo     *repository.OrderRepository
	notifier Notifier
	log      *logger.Logger
}

// NewOrderService creates an order service
func NewOrderService(repo *repository.OrderRepository, notifier Notifier, log *logger.Logger) *OrderService {
	if log == nil {
		log = logger.GetLogger()
	}
	return &OrderService{
		repo:     repo,
		notifier: notifier,
		log:      log.WithComponent("order_service"),
	}
}

// Create validates and stores a pending order
func (s *OrderService) Create(ctx context.Context, userID string, req *model.CreateOrderRequest) (*model.Order, error) {
	symbol := strings.TrimSpace(req.Symbol)
	side := model.OrderSide(strings.ToLower(strings.TrimSpace(req.Side)))
	orderType := model.OrderType(strings.ToLower(strings.TrimSpace(req.Type)))

	if symbol == "" || side == "" || orderType == "" || !req.Quantity.IsSet() {
		return nil, util.ErrBadRequest("Missing required parameters")
	}
	if side != model.OrderSideBuy && side != model.OrderSideSell {
		return nil, util.ErrBadRequest("Side must be buy or sell")
	}
	if orderType != model.OrderTypeLimit && orderType != model.OrderTypeMarket {
		return nil, util.ErrBadRequest("Type must be limit or market")
	}

	quantity, err := model.ParseDecimal(req.Quantity.String())
	if err != nil {
		return nil, util.ErrBadRequest("Quantity must be a valid number")
	}
	if !quantity.IsPositive() {
		return nil, util.ErrBadRequest("Quantity must be greater than 0")
	}

	var price *decimal.Decimal
	if orderType == model.OrderTypeLimit {
		if !req.Price.IsSet() {
			return nil, util.ErrBadRequest("Price is required for limit orders")
		}
		p, err := model.ParseDecimal(req.Price.String())
		if err != nil {
			return nil, util.ErrBadRequest("Price must be a valid number")
		}
		if !p.IsPositive() {
			return nil, util.ErrBadRequest("Price must be greater than 0")
		}
		price = &p
	}

	exchange := strings.TrimSpace(req.Exchange)
	if exchange == "" {
		exchange = model.DefaultOrderExchange
	}

	now := time.Now().UTC()
	order := &model.Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Exchange:  exchange,
		Symbol:    util.NormalizeSymbol(symbol),
		Side:      side,
		Type:      orderType,
		Quantity:  quantity,
		Price:     price,
		Status:    model.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Save(ctx, order); err != nil {
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to create order", err)
	}

	s.notifier.NotifyOrderUpdate(ctx, userID, order)
	return order, nil
}

// List returns the user's orders matching filter, newest first
func (s *OrderService) List(ctx context.Context, userID string, filter model.OrderFilter) ([]*model.Order, error) {
	if filter.Symbol != "" {
		filter.Symbol = util.NormalizeSymbol(filter.Symbol)
	}
	orders, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to list orders", err)
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	return orders, nil
}

// Get returns one of the user's orders
func (s *OrderService) Get(ctx context.Context, userID, id string) (*model.Order, error) {
	order, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, util.NewAppError(http.StatusNotFound, util.ErrCodeOrderNotFound, "Order not found")
		}
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to get order", err)
	}
	return order, nil
}

// Cancel moves a pending order to cancelled. Filled and cancelled orders are
// left untouched.
func (s *OrderService) Cancel(ctx context.Context, userID, id string) (*model.Order, error) {
	order, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !order.Cancellable() {
		return nil, util.NewAppError(http.StatusBadRequest, util.ErrCodeOrderNotCancelable, "Order cannot be cancelled")
	}

	order.Status = model.OrderStatusCancelled
	order.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, order); err != nil {
		return nil, util.WrapError(http.StatusInternalServerError, util.ErrCodeInternal, "Failed to cancel order", err)
	}

	s.notifier.NotifyOrderUpdate(ctx, userID, order)
	return order, nil
}
