package trading

import (
	"errors"
	"fmt"
)

// ErrAccountNotFound is returned when no broker account matches the configuration.
var ErrAccountNotFound = errors.New("trading account not found")

// APIError wraps any failure of the broker client.
type APIError struct {
	Op  string
	Err error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// OrderRejectedError is returned when the broker refuses to place an order.
type OrderRejectedError struct {
	Reason string
}

func (e *OrderRejectedError) Error() string {
	return "order rejected: " + e.Reason
}

func apiError(op string, err error) error {
	return &APIError{Op: op, Err: err}
}
