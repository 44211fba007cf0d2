package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"

	"novea_back_end/internal/models"
	"novea_back_end/internal/refund"
)

const OrderCacheTTL = 5 * time.Minute

// OrderCache met les commandes en cache Redis devant ScyllaDB. Les
// instantanés de prix étant immuables, seule la mutation de statut invalide
// l'entrée : le résumé de prix recalculé ne peut jamais diverger de la source.
type OrderCache struct {
	Redis *redis.Client
	Inner refund.OrderStore
}

func NewOrderCache(rdb *redis.Client, inner refund.OrderStore) *OrderCache {
	return &OrderCache{Redis: rdb, Inner: inner}
}

func orderKey(orderID gocql.UUID) string {
	return "order:" + orderID.String()
}

// GetByID récupère une commande depuis Redis ou ScyllaDB
func (c *OrderCache) GetByID(ctx context.Context, orderID gocql.UUID) (*models.Order, error) {
	key := orderKey(orderID)

	// 1. Essayer le cache Redis
	data, err := c.Redis.Get(ctx, key).Result()
	if err == nil {
		var order models.Order
		if json.Unmarshal([]byte(data), &order) == nil {
			return &order, nil
		}
	}

	// 2. Récupérer de ScyllaDB
	order, err := c.Inner.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// 3. Mettre en cache
	jsonData, _ := json.Marshal(order)
	c.Redis.Set(ctx, key, jsonData, OrderCacheTTL)

	return order, nil
}

// SetStatus propage la mutation de statut et invalide l'entrée cache
func (c *OrderCache) SetStatus(ctx context.Context, orderID gocql.UUID, status string) error {
	if err := c.Inner.SetStatus(ctx, orderID, status); err != nil {
		return err
	}
	c.Redis.Del(ctx, orderKey(orderID))
	return nil
}
