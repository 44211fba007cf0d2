package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novea_back_end/internal/models"
	"novea_back_end/internal/refund"
)

type countingStore struct {
	order *models.Order
	reads int
}

func (s *countingStore) GetByID(ctx context.Context, orderID gocql.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, fmt.Errorf("%w: commande %s", refund.ErrNotFound, orderID)
	}
	s.reads++
	cp := *s.order
	return &cp, nil
}

func (s *countingStore) SetStatus(ctx context.Context, orderID gocql.UUID, status string) error {
	s.order.Status = status
	return nil
}

func TestOrderCacheHitsRedisOnSecondRead(t *testing.T) {
	mr := miniredis.RunT(t)
	inner := &countingStore{order: &models.Order{ID: gocql.TimeUUID(), Status: models.OrderStatusPaid}}
	c := NewOrderCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), inner)
	ctx := context.Background()

	first, err := c.GetByID(ctx, inner.order.ID)
	require.NoError(t, err)

	second, err := c.GetByID(ctx, inner.order.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, inner.reads, "la seconde lecture doit venir de Redis")
}

func TestOrderCacheInvalidatedOnStatusChange(t *testing.T) {
	mr := miniredis.RunT(t)
	inner := &countingStore{order: &models.Order{ID: gocql.TimeUUID(), Status: models.OrderStatusPaid}}
	c := NewOrderCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), inner)
	ctx := context.Background()

	_, err := c.GetByID(ctx, inner.order.ID)
	require.NoError(t, err)

	require.NoError(t, c.SetStatus(ctx, inner.order.ID, models.OrderStatusRefunded))

	// L'entrée cache est invalidée : la lecture suivante voit le nouveau statut
	order, err := c.GetByID(ctx, inner.order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, order.Status)
}
