package dto

import (
	"time"

	"orderhub/internal/models"

	"github.com/google/uuid"
)

type AddressResponse struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type OrderItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       uint32    `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
}

type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	CustomerID      uuid.UUID           `json:"customer_id"`
	SellerID        uuid.UUID           `json:"seller_id"`
	CourierID       *uuid.UUID          `json:"courier_id,omitempty"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	SubtotalCents   int64               `json:"subtotal_cents"`
	DiscountCents   int64               `json:"discount_cents"`
	TotalCents      int64               `json:"total_amount_cents"`
	Currency        string              `json:"currency_code"`
	CancelReason    *string             `json:"cancel_reason,omitempty"`
	ShippingAddress AddressResponse     `json:"shipping_address"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type CreateOrderResponse struct {
	Orders []OrderResponse `json:"orders"`
}

type ListOrdersResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type UpdateStatusRequest struct {
	Status    string     `json:"status" binding:"required"`
	CourierID *uuid.UUID `json:"courier_id"`
	Reason    *string    `json:"reason"`
}

// PaymentWebhookRequest: сигнал платёжного провайдера.
type PaymentWebhookRequest struct {
	OrderID       uuid.UUID  `json:"order_id" binding:"required"`
	PaymentStatus string     `json:"payment_status" binding:"required"`
	Status        *string    `json:"status"`
	PaidAt        *time.Time `json:"paid_at"`
}

func ToOrderResponse(o *models.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			LineTotalCents: it.LineTotalCents,
		})
	}
	a := o.ShippingAddress
	return OrderResponse{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		SellerID:      o.SellerID,
		CourierID:     o.CourierID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		PaidAt:        o.PaidAt,
		SubtotalCents: o.SubtotalCents,
		DiscountCents: o.DiscountCents,
		TotalCents:    o.TotalAmountCents,
		Currency:      o.CurrencyCode,
		CancelReason:  o.CancelReason,
		ShippingAddress: AddressResponse{
			FullName: a.FullName, Phone: a.Phone, Line1: a.Line1, Line2: a.Line2,
			City: a.City, PostalCode: a.PostalCode, Country: a.Country,
		},
		Items:     items,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func ToOrderResponses(list []*models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, ToOrderResponse(o))
	}
	return out
}
