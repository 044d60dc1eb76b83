package service_test

import (
	"context"
	"testing"

	"orderhub/internal/identity"
	"orderhub/internal/models"
	"orderhub/internal/repository"
	"orderhub/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memOrderCache struct {
	data map[uuid.UUID]*models.Order
	sets int
}

func (c *memOrderCache) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	return c.data[id], nil
}

func (c *memOrderCache) SetOrder(_ context.Context, o *models.Order) error {
	c.sets++
	c.data[o.ID] = o
	return nil
}

func TestGetOrder_AccessAndCache(t *testing.T) {
	p := newParties()
	o := p.order(models.OrderStatusPending)
	orders := NewMockOrderRepo(o)
	reads := 0
	orders.GetByIDFunc = func(_ context.Context, id uuid.UUID) (*models.Order, error) {
		reads++
		if id == o.ID {
			cp := *o
			return &cp, nil
		}
		return nil, nil
	}
	cache := &memOrderCache{data: map[uuid.UUID]*models.Order{}}
	svc := service.NewOrderService(service.Deps{Orders: orders, OrderCache: cache}, zap.NewNop())
	ctx := context.Background()

	got, err := svc.GetOrder(ctx, p.actor(models.RoleCustomer), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = svc.GetOrder(ctx, p.actor(models.RoleSeller), o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reads, "second read served from cache")
	assert.Equal(t, 1, cache.sets)

	_, err = svc.GetOrder(ctx, identity.Actor{ID: uuid.New(), Role: models.RoleCustomer}, o.ID)
	assert.ErrorIs(t, err, service.ErrOrderNotFound, "foreign orders are hidden")

	_, err = svc.GetOrder(ctx, p.actor(models.RoleAdmin), uuid.New())
	assert.ErrorIs(t, err, service.ErrOrderNotFound)
}

func TestListOrders_ScopedByRole(t *testing.T) {
	p := newParties()
	var last repository.OrderListFilter
	orders := NewMockOrderRepo()
	orders.ListFunc = func(_ context.Context, f repository.OrderListFilter) ([]*models.Order, int64, error) {
		last = f
		return nil, 0, nil
	}
	svc := service.NewOrderService(service.Deps{Orders: orders}, zap.NewNop())
	ctx := context.Background()

	_, _, err := svc.ListOrders(ctx, p.actor(models.RoleCustomer), service.ListFilter{Limit: 500})
	require.NoError(t, err)
	require.NotNil(t, last.CustomerID)
	assert.Equal(t, p.customer, *last.CustomerID)
	assert.Equal(t, 20, last.Limit)

	_, _, err = svc.ListOrders(ctx, p.actor(models.RoleSeller), service.ListFilter{Limit: 5, Offset: -3})
	require.NoError(t, err)
	require.NotNil(t, last.SellerID)
	assert.Nil(t, last.CustomerID)
	assert.Equal(t, 5, last.Limit)
	assert.Equal(t, 0, last.Offset)

	_, _, err = svc.ListOrders(ctx, p.actor(models.RoleCourier), service.ListFilter{})
	require.NoError(t, err)
	require.NotNil(t, last.CourierID)

	_, _, err = svc.ListOrders(ctx, p.actor(models.RoleAdmin), service.ListFilter{})
	require.NoError(t, err)
	assert.Nil(t, last.CustomerID)
	assert.Nil(t, last.SellerID)
	assert.Nil(t, last.CourierID)

	bad := models.OrderStatus("nope")
	_, _, err = svc.ListOrders(ctx, p.actor(models.RoleAdmin), service.ListFilter{Status: &bad})
	assert.ErrorIs(t, err, service.ErrInvalidStatus)
}
