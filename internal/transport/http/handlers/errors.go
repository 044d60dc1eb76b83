package handlers

import (
	"errors"
	"net/http"

	"orderhub/internal/catalog"
	"orderhub/internal/inventory"
	"orderhub/internal/service"
	"orderhub/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError переводит доменные ошибки в HTTP ответ.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		fields := make([]dto.FieldError, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, dto.FieldError{Field: f.Field, Message: f.Message})
		}
		c.JSON(http.StatusBadRequest, dto.NewValidationError("validation failed", fields))
		return
	}
	var serr *service.InsufficientStockError
	if errors.As(err, &serr) {
		e := dto.NewConflictError("insufficient_stock", "insufficient stock")
		e.Details = serr.ProductID.String()
		c.JSON(http.StatusConflict, e)
		return
	}

	switch {
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, dto.BaseError{Code: "empty_cart", Message: err.Error()})
	case errors.Is(err, service.ErrInvalidCourier),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, inventory.ErrNegativeStock),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, catalog.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, inventory.ErrProductNotFound),
		errors.Is(err, inventory.ErrInventoryNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrNotInCart):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(err.Error()))
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, dto.NewConflictError("invalid_transition", err.Error()))
	case errors.Is(err, inventory.ErrUnauthorized), errors.Is(err, catalog.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError(err.Error()))
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, inventory.ErrForbidden),
		errors.Is(err, catalog.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError(err.Error()))
	default:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}

func badBody(c *gin.Context, log *zap.Logger, err error) {
	log.Warn("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
}
