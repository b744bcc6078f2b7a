package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidState      = errors.New("invalid state")
	ErrValidation        = errors.New("validation failure")
)

var (
	ErrNoActiveShift    = fmt.Errorf("%w: no active shift", ErrInvalidState)
	ErrShiftAlreadyOpen = fmt.Errorf("%w: shift already open", ErrInvalidState)
	ErrOverPayment      = fmt.Errorf("%w: payment exceeds outstanding balance", ErrInvalidState)
)

// ErrorKind names the taxonomy member an error belongs to, for callers that
// need a stable machine-readable code.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOverPayment):
		return "over_payment"
	case errors.Is(err, ErrNoActiveShift):
		return "no_active_shift"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrValidation):
		return "validation_failure"
	default:
		return "internal"
	}
}
