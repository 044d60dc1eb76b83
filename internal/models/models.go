package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer Role = "ROLE_CUSTOMER"
	RoleSeller   Role = "ROLE_SELLER"
	RoleCourier  Role = "ROLE_COURIER"
	RoleAdmin    Role = "ROLE_ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleCourier, RoleAdmin:
		return true
	}
	return false
}

// User — только чтение: регистрация живёт в auth сервисе.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string    `gorm:"not null"`
	Name      string    `gorm:"type:text;not null;default:''"`
	Role      Role      `gorm:"type:text;not null;default:'ROLE_CUSTOMER';index"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (User) TableName() string { return "users" }

type Product struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID     uuid.UUID `gorm:"type:uuid;not null;index"`
	SKU          string    `gorm:"type:text;not null"`
	Name         string    `gorm:"type:text;not null"`
	PriceCents   int64     `gorm:"not null;default:0"`
	CurrencyCode string    `gorm:"type:char(3);not null;default:'RUB'"`
	IsActive     bool      `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Product) TableName() string { return "products" }

type Inventory struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Available int32     `gorm:"not null;default:0"`
	Reserved  int32     `gorm:"not null;default:0"`

	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Inventory) TableName() string { return "inventories" }

type ReservationStatus string

// HELD -> CONFIRMED | CANCELLED, ровно один терминальный переход.
const (
	ReservationHeld      ReservationStatus = "HELD"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

type StockReservation struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	OwnerUserID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Quantity    int32             `gorm:"not null"`
	Status      ReservationStatus `gorm:"type:text;not null;default:'HELD';index"`
	ExpiresAt   time.Time         `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (StockReservation) TableName() string { return "stock_reservations" }

type CartItem struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Quantity  uint32    `gorm:"type:int;not null"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Product Product `gorm:"foreignKey:ProductID;references:ID"`
}

func (CartItem) TableName() string { return "cart_items" }

type WishlistItem struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (WishlistItem) TableName() string { return "wishlist_items" }

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "ORDER_STATUS_PENDING"
	OrderStatusConfirmed OrderStatus = "ORDER_STATUS_CONFIRMED"
	OrderStatusShipped   OrderStatus = "ORDER_STATUS_SHIPPED"
	OrderStatusDelivered OrderStatus = "ORDER_STATUS_DELIVERED"
	OrderStatusCancelled OrderStatus = "ORDER_STATUS_CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// TerminalOrderStatuses — статусы, из которых заказ уже не выходит без администратора.
var TerminalOrderStatuses = []OrderStatus{OrderStatusDelivered, OrderStatusCancelled}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PAYMENT_STATUS_PENDING"
	PaymentStatusPaid     PaymentStatus = "PAYMENT_STATUS_PAID"
	PaymentStatusFailed   PaymentStatus = "PAYMENT_STATUS_FAILED"
	PaymentStatusRefunded PaymentStatus = "PAYMENT_STATUS_REFUNDED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// ShippingAddress хранится колонками в orders (embedded).
type ShippingAddress struct {
	FullName   string `gorm:"type:text;not null;default:''" json:"full_name" validate:"required"`
	Phone      string `gorm:"type:text;not null;default:''" json:"phone" validate:"required"`
	Line1      string `gorm:"type:text;not null;default:''" json:"line1" validate:"required"`
	Line2      string `gorm:"type:text;not null;default:''" json:"line2"`
	City       string `gorm:"type:text;not null;default:''" json:"city" validate:"required"`
	PostalCode string `gorm:"type:text;not null;default:''" json:"postal_code" validate:"required"`
	Country    string `gorm:"type:char(2);not null;default:'RU'" json:"country" validate:"required,len=2"`
}

type Order struct {
	ID               uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID       uuid.UUID     `gorm:"type:uuid;not null;index"`
	SellerID         uuid.UUID     `gorm:"type:uuid;not null;index"`
	CourierID        *uuid.UUID    `gorm:"type:uuid;index"`
	Status           OrderStatus   `gorm:"type:text;not null;default:'ORDER_STATUS_PENDING';index"`
	PaymentStatus    PaymentStatus `gorm:"type:text;not null;default:'PAYMENT_STATUS_PENDING';index"`
	PaidAt           *time.Time
	SubtotalCents    int64   `gorm:"not null;default:0"`
	DiscountCents    int64   `gorm:"not null;default:0"`
	TotalAmountCents int64   `gorm:"not null;default:0"`
	CurrencyCode     string  `gorm:"type:char(3);not null"`
	CancelReason     *string `gorm:"type:text"`

	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:ship_"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_order_items_order_product"`
	ProductID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_order_items_order_product"`
	Quantity       uint32    `gorm:"type:int;not null"`
	UnitPriceCents int64     `gorm:"not null"`
	LineTotalCents int64     `gorm:"not null"`
	CurrencyCode   string    `gorm:"type:char(3);not null"`
	// резерв, из которого списан товар; фиксируется в той же транзакции, что и заказ
	ReservationID *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (OrderItem) TableName() string { return "order_items" }
