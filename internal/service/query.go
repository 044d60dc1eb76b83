package service

import (
	"context"

	"orderhub/internal/identity"
	"orderhub/internal/models"
	"orderhub/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func canView(actor identity.Actor, o *models.Order) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleSeller:
		return o.SellerID == actor.ID
	case models.RoleCourier:
		return o.CourierID != nil && *o.CourierID == actor.ID
	case models.RoleCustomer:
		return o.CustomerID == actor.ID
	}
	return false
}

// GetOrder читает заказ через кэш. Чужой заказ выглядит как несуществующий.
func (s *OrderService) GetOrder(ctx context.Context, actor identity.Actor, id uuid.UUID) (*models.Order, error) {
	if actor.ID == uuid.Nil {
		return nil, ErrUnauthorized
	}

	o, err := s.orderCache.GetOrder(ctx, id)
	if err != nil {
		s.log.Warn("order cache read failed", zap.String("order_id", id.String()), zap.Error(err))
		o = nil
	}
	if o == nil {
		o, err = s.orders.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, ErrOrderNotFound
		}
		if err := s.orderCache.SetOrder(ctx, o); err != nil {
			s.log.Warn("order cache write failed", zap.String("order_id", id.String()), zap.Error(err))
		}
	}

	if !canView(actor, o) {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// ListOrders ограничивает выборку ролью: покупатель видит свои, продавец — свои продажи, курьер — назначенные.
func (s *OrderService) ListOrders(ctx context.Context, actor identity.Actor, f ListFilter) ([]*models.Order, int64, error) {
	if actor.ID == uuid.Nil {
		return nil, 0, ErrUnauthorized
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	f = f.Normalized()

	rf := repository.OrderListFilter{Status: f.Status, Limit: f.Limit, Offset: f.Offset}
	id := actor.ID
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleSeller:
		rf.SellerID = &id
	case models.RoleCourier:
		rf.CourierID = &id
	case models.RoleCustomer:
		rf.CustomerID = &id
	default:
		return nil, 0, ErrUnauthorized
	}
	return s.orders.List(ctx, rf)
}
