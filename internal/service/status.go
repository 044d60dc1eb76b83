package service

import (
	"context"
	"fmt"

	"orderhub/internal/identity"
	"orderhub/internal/models"
	"orderhub/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const maxReasonLen = 500

func canTransition(actor identity.Actor, o *models.Order, target models.OrderStatus) bool {
	if !allowedTargets[actor.Role][target] {
		return false
	}
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

// UpdateOrderStatus меняет статус заказа с проверкой роли и владельца.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, in UpdateStatusInput, actor identity.Actor) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("order_id", orderID.String()),
		attribute.String("status", string(in.Status)),
		attribute.String("actor_role", string(actor.Role)),
	)

	if !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if actor.ID == uuid.Nil || !actor.Role.Valid() {
		return nil, ErrUnauthorized
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}

	if !canTransition(actor, o, in.Status) {
		return nil, ErrUnauthorized
	}
	if in.CourierID != nil {
		if !actor.IsAdmin() {
			return nil, ErrUnauthorized
		}
		courier, err := s.users.GetByID(ctx, *in.CourierID)
		if err != nil {
			return nil, err
		}
		if courier == nil || courier.Role != models.RoleCourier {
			return nil, ErrInvalidCourier
		}
	}
	if o.Status.Terminal() && !actor.IsAdmin() {
		return nil, ErrInvalidTransition
	}

	var reason *string
	if in.Status == models.OrderStatusCancelled && in.Reason != nil {
		r := *in.Reason
		if len(r) > maxReasonLen {
			r = r[:maxReasonLen]
		}
		reason = &r
	}

	prev := o.Status
	changed, err := s.orders.UpdateStatus(ctx, orderID, prev, in.Status, in.CourierID, reason)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !changed {
		// статус успели сменить между чтением и записью
		s.log.Info("order status changed concurrently",
			zap.String("order_id", orderID.String()),
			zap.String("expected", string(prev)),
			zap.String("to", string(in.Status)),
		)
		return nil, ErrInvalidTransition
	}
	updated, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrOrderNotFound
	}

	s.log.Info("order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(prev)),
		zap.String("to", string(updated.Status)),
		zap.String("actor_id", actor.ID.String()),
		zap.String("actor_role", string(actor.Role)),
	)

	s.afterStatusChange(ctx, updated, prev, actor)
	return updated, nil
}

func (s *OrderService) afterStatusChange(ctx context.Context, o *models.Order, prev models.OrderStatus, actor identity.Actor) {
	s.bestEffort("emit order.updated", o.ID, func() error {
		s.events.OrderUpdated(ctx, o, prev, actor)
		switch {
		case o.Status == models.OrderStatusCancelled && prev != models.OrderStatusCancelled:
			s.events.OrderCancelled(ctx, o, actor)
		case o.Status == models.OrderStatusDelivered && prev != models.OrderStatusDelivered:
			s.events.OrderCompleted(ctx, o)
		}
		return nil
	})
	s.bestEffort("push status to customer", o.ID, func() error {
		return s.realtime.EmitRealtimeEvent(ctx, ChannelOrderStatus, map[string]any{
			"order_id":        o.ID,
			"status":          o.Status,
			"previous_status": prev,
		}, &o.CustomerID)
	})
	s.bestEffort("invalidate caches", o.ID, func() error {
		if err := s.cache.InvalidateOrderCache(ctx, o.ID, &o.CustomerID); err != nil {
			return err
		}
		return s.cache.InvalidateRelatedCaches(ctx, "seller", o.SellerID, "orders")
	})
}

// UpdateOrderPaymentStatus фиксирует результат оплаты. Повторный webhook с тем же статусом ничего не меняет.
func (s *OrderService) UpdateOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, in PaymentUpdateInput) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateOrderPaymentStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("order_id", orderID.String()),
		attribute.String("payment_status", string(in.PaymentStatus)),
	)

	if !in.PaymentStatus.Valid() {
		return nil, ErrInvalidStatus
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}

	paidAt := in.PaidAt
	if in.PaymentStatus == models.PaymentStatusPaid && paidAt == nil {
		now := s.now()
		paidAt = &now
	}

	status := in.Status
	if status != nil && o.Status.Terminal() && *status != o.Status {
		s.log.Warn("payment webhook tried to move a finished order, status ignored",
			zap.String("order_id", orderID.String()),
			zap.String("status", string(o.Status)),
			zap.String("requested", string(*status)),
		)
		status = nil
	}

	changed, err := s.orders.UpdatePaymentStatus(ctx, orderID, repository.PaymentUpdate{
		PaymentStatus: in.PaymentStatus,
		Status:        status,
		PaidAt:        paidAt,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	if !changed {
		s.log.Info("payment status unchanged, webhook ignored",
			zap.String("order_id", orderID.String()),
			zap.String("payment_status", string(in.PaymentStatus)),
		)
		return o, nil
	}

	updated, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrOrderNotFound
	}

	s.log.Info("payment status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(o.PaymentStatus)),
		zap.String("to", string(updated.PaymentStatus)),
	)

	s.bestEffort("emit payment event", orderID, func() error {
		switch updated.PaymentStatus {
		case models.PaymentStatusPaid:
			s.events.PaymentSucceeded(ctx, updated)
		case models.PaymentStatusFailed:
			s.events.PaymentFailed(ctx, updated)
		}
		return nil
	})
	if updated.Status != o.Status {
		s.afterStatusChange(ctx, updated, o.Status, identity.Actor{})
	} else {
		s.bestEffort("invalidate caches", orderID, func() error {
			return s.cache.InvalidateOrderCache(ctx, orderID, &updated.CustomerID)
		})
	}
	return updated, nil
}
