package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrEmptyCart         = errors.New("none of the requested products are in the cart")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidCourier    = errors.New("invalid courier")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("order is in a terminal state")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrCurrencyMismatch  = errors.New("currency mismatch")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError перечисляет все некорректные поля запроса.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}

type InsufficientStockError struct {
	ProductID uuid.UUID
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s for product %s", ErrInsufficientStock, e.ProductID)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }
