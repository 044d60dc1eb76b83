package service

import (
	"context"
	"time"

	"orderhub/internal/identity"
	"orderhub/internal/models"

	"github.com/google/uuid"
)

// StockReserver — менеджер резервов. Reserve возвращает (nil, nil), если остатка не хватает.
type StockReserver interface {
	Reserve(ctx context.Context, productID uuid.UUID, qty uint32, ttl time.Duration, ownerID uuid.UUID) (*models.StockReservation, error)
	Confirm(ctx context.Context, reservationID uuid.UUID) error
	Cancel(ctx context.Context, reservationID uuid.UUID) error
}

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
	SendNewOrderEmailToSeller(ctx context.Context, order *models.Order, sellerEmail string) error
}

type CacheInvalidator interface {
	InvalidateOrderCache(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) error
	InvalidateRelatedCaches(ctx context.Context, kind string, id uuid.UUID, extra ...string) error
}

// OrderCache — кэш чтения заказов. (nil, nil) — промах.
type OrderCache interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	SetOrder(ctx context.Context, o *models.Order) error
}

type RealtimeChannel interface {
	EmitRealtimeEvent(ctx context.Context, channel string, payload any, targetUserID *uuid.UUID) error
}

type OrderEventEmitter interface {
	OrderCreated(ctx context.Context, o *models.Order)
	OrderUpdated(ctx context.Context, o *models.Order, previous models.OrderStatus, actor identity.Actor)
	OrderCancelled(ctx context.Context, o *models.Order, actor identity.Actor)
	OrderCompleted(ctx context.Context, o *models.Order)
	PaymentSucceeded(ctx context.Context, o *models.Order)
	PaymentFailed(ctx context.Context, o *models.Order)
}

type CartEventEmitter interface {
	CartCleared(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID)
}

type nopNotifier struct{}

func (nopNotifier) SendOrderConfirmation(context.Context, *models.Order) error             { return nil }
func (nopNotifier) SendNewOrderEmailToSeller(context.Context, *models.Order, string) error { return nil }

type nopCache struct{}

func (nopCache) InvalidateOrderCache(context.Context, uuid.UUID, *uuid.UUID) error { return nil }
func (nopCache) InvalidateRelatedCaches(context.Context, string, uuid.UUID, ...string) error {
	return nil
}
func (nopCache) GetOrder(context.Context, uuid.UUID) (*models.Order, error) { return nil, nil }
func (nopCache) SetOrder(context.Context, *models.Order) error              { return nil }

type nopRealtime struct{}

func (nopRealtime) EmitRealtimeEvent(context.Context, string, any, *uuid.UUID) error { return nil }

type nopEvents struct{}

func (nopEvents) OrderCreated(context.Context, *models.Order) {}
func (nopEvents) OrderUpdated(context.Context, *models.Order, models.OrderStatus, identity.Actor) {
}
func (nopEvents) OrderCancelled(context.Context, *models.Order, identity.Actor) {}
func (nopEvents) OrderCompleted(context.Context, *models.Order)                 {}
func (nopEvents) PaymentSucceeded(context.Context, *models.Order)               {}
func (nopEvents) PaymentFailed(context.Context, *models.Order)                  {}
func (nopEvents) CartCleared(context.Context, uuid.UUID, []uuid.UUID)           {}
