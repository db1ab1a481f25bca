package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned by stores when a unique key is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrCheckoutInProgress is returned when a checkout with the same
	// idempotency key is still settling.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports an unknown id. It matches ErrNotFound.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InvalidTransitionError reports a move that is not an edge of the state machine.
type InvalidTransitionError struct {
	OrderID string
	From    Status
	To      Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: invalid transition %s -> %s", e.OrderID, e.From, e.To)
}

// ForbiddenError reports a valid edge the actor's role may not take.
type ForbiddenError struct {
	OrderID string
	Role    Role
	From    Status
	To      Status
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("order %s: role %q may not move %s -> %s", e.OrderID, e.Role, e.From, e.To)
}

// PaymentError reports a declined or timed out charge. RefundRequired is set
// when the provider took the money but the order could no longer be
// settled; Reference then names the charge to refund.
type PaymentError struct {
	OrderID        string
	Method         PaymentMethod
	Outcome        PaymentOutcome
	Reason         string
	Reference      string
	RefundRequired bool
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment %s for order %s via %s: %s", e.Outcome, e.OrderID, e.Method, e.Reason)
}
