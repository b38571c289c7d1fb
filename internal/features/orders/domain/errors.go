package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing input. Never mutates state.
	ErrValidation = errors.New("validation error")
	// ErrOrderNotFound is returned when no order matches the id or order number.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned when the order is not in a legal source state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrForbidden is returned when the caller may not act on the order.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated is returned when an operation needs a caller identity.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrVersionConflict is returned by the repository when the stored version moved.
	ErrVersionConflict = errors.New("order was modified concurrently")
	// ErrDuplicateOrderNumber is returned by the repository when the number is taken.
	ErrDuplicateOrderNumber = errors.New("order number already exists")
	// ErrOutcomeUnknown is returned when neither the write nor the follow-up read
	// could tell whether an order was stored. Its reservation is kept.
	ErrOutcomeUnknown = errors.New("order outcome unknown")
)

// ValidationError carries a caller-facing description of bad input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// TransitionError reports an illegal state change and the status observed.
type TransitionError struct {
	OrderID string
	Action  string
	Current OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s order %s with status %s", e.Action, e.OrderID, e.Current)
}

// Is lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
