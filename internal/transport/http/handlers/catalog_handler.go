package handlers

import (
	"context"
	"net/http"

	"orderhub/internal/catalog"
	"orderhub/internal/models"
	"orderhub/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProductService interface {
	CreateProduct(ctx context.Context, in catalog.CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in catalog.UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type StockService interface {
	GetStock(ctx context.Context, productID uuid.UUID) (*models.Inventory, error)
	SetStock(ctx context.Context, productID uuid.UUID, available int32) (*models.Inventory, error)
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int32) (*models.Inventory, error)
}

type ShopperService interface {
	SetCartItem(ctx context.Context, userID, productID uuid.UUID, qty uint32) error
	RemoveCartItem(ctx context.Context, userID, productID uuid.UUID) error
	AddToWishlist(ctx context.Context, userID, productID uuid.UUID) error
	RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error
	SyncUser(ctx context.Context, in catalog.SyncUserInput) (*models.User, error)
}

type CatalogHandler struct {
	products ProductService
	stock    StockService
	shopper  ShopperService
	log      *zap.Logger
}

func NewCatalogHandler(products ProductService, stock StockService, shopper ShopperService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{products: products, stock: stock, shopper: shopper, log: log}
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req catalog.CreateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}
	p, err := h.products.CreateProduct(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToProductResponse(p))
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalog.UpdateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}
	p, err := h.products.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProductResponse(p))
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.products.DeleteProduct(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) GetStock(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	inv, err := h.stock.GetStock(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToStockResponse(inv))
}

// PutStock: либо абсолютное значение available, либо delta.
func (h *CatalogHandler) PutStock(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}
	if (req.Available == nil) == (req.Delta == nil) {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("exactly one of available or delta is required", nil))
		return
	}

	var (
		inv *models.Inventory
		err error
	)
	if req.Available != nil {
		inv, err = h.stock.SetStock(c.Request.Context(), id, *req.Available)
	} else {
		inv, err = h.stock.AdjustStock(c.Request.Context(), id, *req.Delta)
	}
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToStockResponse(inv))
}

func (h *CatalogHandler) PutCartItem(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "product_id")
	if !ok {
		return
	}
	var req dto.CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}
	if err := h.shopper.SetCartItem(c.Request.Context(), actor.ID, id, req.Quantity); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) DeleteCartItem(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "product_id")
	if !ok {
		return
	}
	if err := h.shopper.RemoveCartItem(c.Request.Context(), actor.ID, id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) PutWishlistItem(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "product_id")
	if !ok {
		return
	}
	if err := h.shopper.AddToWishlist(c.Request.Context(), actor.ID, id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) DeleteWishlistItem(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "product_id")
	if !ok {
		return
	}
	if err := h.shopper.RemoveFromWishlist(c.Request.Context(), actor.ID, id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SyncUser — служебный маршрут для auth сервиса.
func (h *CatalogHandler) SyncUser(c *gin.Context) {
	var req catalog.SyncUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}
	u, err := h.shopper.SyncUser(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": u.ID, "email": u.Email, "role": u.Role})
}
