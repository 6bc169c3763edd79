package errors

import (
	"fmt"

	"github.com/jafarshop/groceryadmin/internal/domain"
)

// ErrInvalidStateTransition is returned before any request is built for a
// transition the order or ticket state machine does not allow.
type ErrInvalidStateTransition struct {
	From string
	To   string
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// NewOrderTransitionError builds an ErrInvalidStateTransition for order statuses
func NewOrderTransitionError(from, to domain.OrderStatus) *ErrInvalidStateTransition {
	return &ErrInvalidStateTransition{From: string(from), To: string(to)}
}

// ErrValidation is a client-side form validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrNotFound is returned when a resource is missing locally
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}
