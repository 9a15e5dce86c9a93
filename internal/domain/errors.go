package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrorCodeValidationMSISDNInvalid ErrorCode = "VALIDATION_MSISDN_INVALID"

	// Gateway Errors (GATEWAY_*)
	ErrorCodeGatewayError       ErrorCode = "GATEWAY_ERROR"
	ErrorCodeGatewayTimeout     ErrorCode = "GATEWAY_TIMEOUT"
	ErrorCodeGatewayUnavailable ErrorCode = "GATEWAY_UNAVAILABLE"
	ErrorCodeGatewayMalformed   ErrorCode = "GATEWAY_MALFORMED_RESPONSE"

	// Settlement Errors (SETTLEMENT_*)
	ErrorCodeSettlementDeclined ErrorCode = "SETTLEMENT_DECLINED"

	// Bookkeeping Errors (BOOKKEEPING_*), never surfaced to callers
	ErrorCodeBookkeepingLog       ErrorCode = "BOOKKEEPING_LOG_FAILED"
	ErrorCodeBookkeepingReconcile ErrorCode = "BOOKKEEPING_RECONCILE_FAILED"
	ErrorCodeBookkeepingParse     ErrorCode = "BOOKKEEPING_PARSE_FAILED"

	// Balance Errors (BALANCE_*)
	ErrorCodeBalanceNotFound ErrorCode = "BALANCE_NOT_FOUND"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

var (
	validationCodes = map[ErrorCode]bool{
		ErrorCodeValidationFailed:        true,
		ErrorCodeValidationAmountInvalid: true,
		ErrorCodeValidationMissingField:  true,
		ErrorCodeValidationMSISDNInvalid: true,
	}
	gatewayCodes = map[ErrorCode]bool{
		ErrorCodeGatewayError:       true,
		ErrorCodeGatewayTimeout:     true,
		ErrorCodeGatewayUnavailable: true,
		ErrorCodeGatewayMalformed:   true,
	}
	bookkeepingCodes = map[ErrorCode]bool{
		ErrorCodeBookkeepingLog:       true,
		ErrorCodeBookkeepingReconcile: true,
		ErrorCodeBookkeepingParse:     true,
	}
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsValidationError reports caller mistakes (HTTP 400)
func IsValidationError(err error) bool {
	return validationCodes[GetErrorCode(err)]
}

// IsGatewayError reports transport-level failures talking to EV or IRIS
func IsGatewayError(err error) bool {
	return gatewayCodes[GetErrorCode(err)]
}

// IsBookkeepingError reports failures that must only ever reach the diagnostic trace
func IsBookkeepingError(err error) bool {
	return bookkeepingCodes[GetErrorCode(err)]
}

// Sentinel errors shared by adapters
var (
	ErrSnapshotNotFound       = errors.New("balance snapshot not found")
	ErrInvalidGatewayResponse = errors.New("invalid gateway response")
	ErrUnsupportedGateway     = errors.New("unsupported gateway")
	ErrRetailerNotFound       = errors.New("retailer not found")
)
