package events

import (
	"time"

	"github.com/google/uuid"
)

// Payload: полезная нагрузка конкретного типа события. Обработчики различают их через type switch.
type Payload interface {
	EventType() Type
}

type OrderLine struct {
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       uint32    `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
}

type OrderCreatedPayload struct {
	OrderID       uuid.UUID   `json:"order_id"`
	CustomerID    uuid.UUID   `json:"customer_id"`
	SellerID      uuid.UUID   `json:"seller_id"`
	SubtotalCents int64       `json:"subtotal_cents"`
	DiscountCents int64       `json:"discount_cents"`
	TotalCents    int64       `json:"total_cents"`
	Currency      string      `json:"currency"`
	Items         []OrderLine `json:"items"`
	CreatedAt     time.Time   `json:"created_at"`
}

type OrderUpdatedPayload struct {
	OrderID        uuid.UUID  `json:"order_id"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	SellerID       uuid.UUID  `json:"seller_id"`
	CourierID      *uuid.UUID `json:"courier_id,omitempty"`
	PreviousStatus string     `json:"previous_status"`
	Status         string     `json:"status"`
	ActorID        uuid.UUID  `json:"actor_id"`
	ActorRole      string     `json:"actor_role"`
}

type OrderCancelledPayload struct {
	OrderID     uuid.UUID `json:"order_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	Reason      string    `json:"reason,omitempty"`
	CancelledBy uuid.UUID `json:"cancelled_by"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type OrderCompletedPayload struct {
	OrderID     uuid.UUID  `json:"order_id"`
	CustomerID  uuid.UUID  `json:"customer_id"`
	SellerID    uuid.UUID  `json:"seller_id"`
	CourierID   *uuid.UUID `json:"courier_id,omitempty"`
	DeliveredAt time.Time  `json:"delivered_at"`
}

type PaymentSucceededPayload struct {
	OrderID     uuid.UUID `json:"order_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	PaidAt      time.Time `json:"paid_at"`
}

type PaymentFailedPayload struct {
	OrderID     uuid.UUID `json:"order_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
}

type ProductCreatedPayload struct {
	ProductID  uuid.UUID `json:"product_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
}

type ProductUpdatedPayload struct {
	ProductID uuid.UUID `json:"product_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	Fields    []string  `json:"fields,omitempty"`
}

type ProductDeletedPayload struct {
	ProductID uuid.UUID `json:"product_id"`
	SellerID  uuid.UUID `json:"seller_id"`
}

type StockChangedPayload struct {
	ProductID uuid.UUID `json:"product_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	Previous  int32     `json:"previous"`
	Available int32     `json:"available"`
	Reason    string    `json:"reason"`
}

type UserRegisteredPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Role   string    `json:"role"`
}

type UserUpdatedPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Fields []string  `json:"fields,omitempty"`
}

type CartUpdatedPayload struct {
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  uint32    `json:"quantity"`
}

type CartClearedPayload struct {
	UserID     uuid.UUID   `json:"user_id"`
	ProductIDs []uuid.UUID `json:"product_ids"`
}

type WishlistItemAddedPayload struct {
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
}

type WishlistItemRemovedPayload struct {
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
}

func (OrderCreatedPayload) EventType() Type        { return OrderCreated }
func (OrderUpdatedPayload) EventType() Type        { return OrderUpdated }
func (OrderCancelledPayload) EventType() Type      { return OrderCancelled }
func (OrderCompletedPayload) EventType() Type      { return OrderCompleted }
func (PaymentSucceededPayload) EventType() Type    { return OrderPaymentSucceeded }
func (PaymentFailedPayload) EventType() Type       { return OrderPaymentFailed }
func (ProductCreatedPayload) EventType() Type      { return ProductCreated }
func (ProductUpdatedPayload) EventType() Type      { return ProductUpdated }
func (ProductDeletedPayload) EventType() Type      { return ProductDeleted }
func (StockChangedPayload) EventType() Type        { return ProductStockChanged }
func (UserRegisteredPayload) EventType() Type      { return UserRegistered }
func (UserUpdatedPayload) EventType() Type         { return UserUpdated }
func (CartUpdatedPayload) EventType() Type         { return CartUpdated }
func (CartClearedPayload) EventType() Type         { return CartCleared }
func (WishlistItemAddedPayload) EventType() Type   { return WishlistItemAdded }
func (WishlistItemRemovedPayload) EventType() Type { return WishlistItemRemoved }
