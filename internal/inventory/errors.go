package inventory

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrProductNotFound     = errors.New("product not found")
	ErrInventoryNotFound   = errors.New("inventory not found")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrNegativeStock       = errors.New("stock cannot go below zero")
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrReservationNotHeld — резерв уже подтверждён или отменён.
	ErrReservationNotHeld = errors.New("reservation is not held")
	ErrReservedUnderflow  = errors.New("reserved stock underflow")
)
