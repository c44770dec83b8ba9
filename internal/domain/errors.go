package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the booking engine. Callers match with errors.Is;
// detail is attached with fmt.Errorf("%w: ...").
var (
	ErrValidation           = errors.New("validation failed")
	ErrInvalidTimeRange     = fmt.Errorf("%w: end time must be after start time", ErrValidation)
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrCapacityExceeded     = errors.New("no spaces available")
	ErrPaymentFailed        = errors.New("payment failed")
	ErrNotFound             = errors.New("not found")
	ErrUnauthenticated      = errors.New("authentication required")
	ErrForbidden            = errors.New("not authorized")
	ErrPersistence          = errors.New("persistence failure")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrDuplicateReservation = errors.New("reservation already exists")
	ErrLotHasActiveBookings = errors.New("parking lot has active bookings")
)

// Validationf wraps ErrValidation with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
