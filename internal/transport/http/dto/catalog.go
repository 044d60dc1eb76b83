package dto

import (
	"time"

	"orderhub/internal/models"

	"github.com/google/uuid"
)

type ProductResponse struct {
	ID           uuid.UUID `json:"id"`
	SellerID     uuid.UUID `json:"seller_id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	PriceCents   int64     `json:"price_cents"`
	CurrencyCode string    `json:"currency_code"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func ToProductResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		ID: p.ID, SellerID: p.SellerID, SKU: p.SKU, Name: p.Name,
		PriceCents: p.PriceCents, CurrencyCode: p.CurrencyCode, IsActive: p.IsActive, CreatedAt: p.CreatedAt,
	}
}

type StockRequest struct {
	Available *int32 `json:"available"`
	Delta     *int32 `json:"delta"`
}

type StockResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Available int32     `json:"available"`
	Reserved  int32     `json:"reserved"`
}

func ToStockResponse(inv *models.Inventory) StockResponse {
	return StockResponse{ProductID: inv.ProductID, Available: inv.Available, Reserved: inv.Reserved}
}

type CartItemRequest struct {
	Quantity uint32 `json:"quantity" binding:"required"`
}
