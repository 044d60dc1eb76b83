package service

import (
	"time"

	"orderhub/internal/models"

	"github.com/google/uuid"
)

type CreateOrderItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  uint32    `json:"quantity" validate:"gt=0,lte=1000"`
}

type CreateOrderInput struct {
	Items           []CreateOrderItem      `json:"items" validate:"required,min=1,max=100,dive"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	DiscountCents   int64                  `json:"discount_cents" validate:"gte=0"`
}

type UpdateStatusInput struct {
	Status    models.OrderStatus
	CourierID *uuid.UUID
	Reason    *string
}

type PaymentUpdateInput struct {
	Status        *models.OrderStatus
	PaymentStatus models.PaymentStatus
	PaidAt        *time.Time
}

type ListFilter struct {
	Status *models.OrderStatus
	Limit  int
	Offset int
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Normalized: limit вне (0, 100] сбрасывается на 20, offset не меньше 0.
func (f ListFilter) Normalized() ListFilter {
	if f.Limit <= 0 || f.Limit > maxListLimit {
		f.Limit = defaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Каналы realtime-уведомлений.
const (
	ChannelOrderStatus  = "orders:status"
	ChannelOrderPayment = "orders:payment"
)

// allowedTargets: какие статусы может выставлять каждая роль.
var allowedTargets = map[models.Role]map[models.OrderStatus]bool{
	models.RoleAdmin: {
		models.OrderStatusPending:   true,
		models.OrderStatusConfirmed: true,
		models.OrderStatusShipped:   true,
		models.OrderStatusDelivered: true,
		models.OrderStatusCancelled: true,
	},
	models.RoleSeller: {
		models.OrderStatusConfirmed: true,
		models.OrderStatusShipped:   true,
		models.OrderStatusCancelled: true,
	},
	models.RoleCourier: {
		models.OrderStatusShipped:   true,
		models.OrderStatusDelivered: true,
	},
	models.RoleCustomer: {
		models.OrderStatusCancelled: true,
	},
}
