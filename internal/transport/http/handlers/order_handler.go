package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"orderhub/internal/identity"
	"orderhub/internal/models"
	"orderhub/internal/service"
	"orderhub/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, in service.CreateOrderInput) ([]*models.Order, error)
	GetOrder(ctx context.Context, actor identity.Actor, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, actor identity.Actor, f service.ListFilter) ([]*models.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, in service.UpdateStatusInput, actor identity.Actor) (*models.Order, error)
	UpdateOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, in service.PaymentUpdateInput) (*models.Order, error)
}

type OrderHandler struct {
	orders OrderService
	log    *zap.Logger
}

func NewOrderHandler(orders OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

func actorOrAbort(c *gin.Context) (identity.Actor, bool) {
	actor, ok := identity.ActorFromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("unauthorized"))
	}
	return actor, ok
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid id", []dto.FieldError{{Field: name, Message: "must be a UUID"}}))
		return uuid.Nil, false
	}
	return id, true
}

// Checkout: корзина -> по заказу на продавца.
func (h *OrderHandler) Create(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req service.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}

	orders, err := h.orders.CreateOrder(c.Request.Context(), actor.ID, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CreateOrderResponse{Orders: dto.ToOrderResponses(orders)})
}

func (h *OrderHandler) Get(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.GetOrder(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(o))
}

func (h *OrderHandler) List(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	f := service.ListFilter{}
	f.Limit, _ = strconv.Atoi(c.Query("limit"))
	f.Offset, _ = strconv.Atoi(c.Query("offset"))
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		st := models.OrderStatus(strings.ToUpper(s))
		f.Status = &st
	}
	f = f.Normalized()

	list, total, err := h.orders.ListOrders(c.Request.Context(), actor, f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListOrdersResponse{
		Orders: dto.ToOrderResponses(list),
		Total:  total,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}

	o, err := h.orders.UpdateOrderStatus(c.Request.Context(), id, service.UpdateStatusInput{
		Status:    models.OrderStatus(strings.ToUpper(req.Status)),
		CourierID: req.CourierID,
		Reason:    req.Reason,
	}, actor)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(o))
}

// PaymentWebhook идемпотентен: повтор того же payment_status возвращает заказ без изменений.
func (h *OrderHandler) PaymentWebhook(c *gin.Context) {
	var req dto.PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, h.log, err)
		return
	}
	in := service.PaymentUpdateInput{
		PaymentStatus: models.PaymentStatus(strings.ToUpper(req.PaymentStatus)),
		PaidAt:        req.PaidAt,
	}
	if req.Status != nil {
		st := models.OrderStatus(strings.ToUpper(*req.Status))
		in.Status = &st
	}

	o, err := h.orders.UpdateOrderPaymentStatus(c.Request.Context(), req.OrderID, in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(o))
}
