package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorCategory classifies a gateway transport failure
type ErrorCategory string

const (
	CategoryNetwork     ErrorCategory = "network_error"
	CategoryTimeout     ErrorCategory = "timeout"
	CategoryCircuitOpen ErrorCategory = "circuit_open"
	CategoryHTTPStatus  ErrorCategory = "http_status"
	CategoryDecode      ErrorCategory = "decode_error"
	CategoryEncode      ErrorCategory = "encode_error"
)

// GatewayError is a transport-level failure talking to EV or IRIS. A decoded
// provider decline is never a GatewayError.
type GatewayError struct {
	Gateway    string
	Op         string
	Category   ErrorCategory
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %s (http %d): %v", e.Gateway, e.Op, e.Category, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Gateway, e.Op, e.Category, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError wraps err, deriving the category from it when category is empty
func NewGatewayError(gateway, op string, category ErrorCategory, err error) *GatewayError {
	if category == "" {
		category = Classify(err)
	}
	return &GatewayError{Gateway: gateway, Op: op, Category: category, Err: err}
}

// Classify maps a raw client error to a category
func Classify(err error) ErrorCategory {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return CategoryTimeout
	default:
		return CategoryNetwork
	}
}

// IsTimeout reports whether err is a gateway timeout
func IsTimeout(err error) bool {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Category == CategoryTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// ValidationError represents an invalid request body field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
