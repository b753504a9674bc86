package repository

import (
	"context"
	"encoding/json"
	"sort"

	"hbinterface/backend/internal/model"
	"hbinterface/backend/pkg/redis"
)

// OrderRepository keeps each user's orders in the hash orders:{userId}
type OrderRepository struct {
	redis *redis.Client
}

func NewOrderRepository(redisClient *redis.Client) *OrderRepository {
	return &OrderRepository{
		redis: redisClient,
	}
}

// Save writes the order under its id
func (r *OrderRepository) Save(ctx context.Context, order *model.Order) error {
	return r.redis.HSetJSON(ctx, redis.OrdersKey(order.UserID), order.ID, order)
}

// Get loads one order of userID
func (r *OrderRepository) Get(ctx context.Context, userID, orderID string) (*model.Order, error) {
	var order model.Order
	if err := r.redis.HGetJSON(ctx, redis.OrdersKey(userID), orderID, &order); err != nil {
		if redis.IsNil(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// List returns the user's orders matching filter, newest first.
// Entries that fail to decode are skipped.
func (r *OrderRepository) List(ctx context.Context, userID string, filter model.OrderFilter) ([]*model.Order, error) {
	raw, err := r.redis.HGetAll(ctx, redis.OrdersKey(userID))
	if err != nil {
		return nil, err
	}

	orders := make([]*model.Order, 0, len(raw))
	for _, data := range raw {
		order, err := decodeOrder(data)
		if err != nil {
			continue
		}
		if filter.Matches(order) {
			orders = append(orders, order)
		}
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// Delete removes an order
func (r *OrderRepository) Delete(ctx context.Context, userID, orderID string) error {
	return r.redis.HDel(ctx, redis.OrdersKey(userID), orderID)
}

func decodeOrder(data string) (*model.Order, error) {
	var order model.Order
	if err := json.Unmarshal([]byte(data), &order); err != nil {
		return nil, err
	}
	return &order, nil
}
