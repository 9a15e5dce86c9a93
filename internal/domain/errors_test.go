package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *DomainError
		want string
	}{
		{
			name: "without_wrapped_error",
			err:  NewDomainError(ErrorCodeGatewayTimeout, "recharge gateway timeout"),
			want: "GATEWAY_TIMEOUT: recharge gateway timeout",
		},
		{
			name: "with_wrapped_error",
			err:  WrapError(ErrorCodeGatewayError, "submit failed", errors.New("connection refused")),
			want: "GATEWAY_ERROR: submit failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestDomainError_UnwrapAndCode(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := fmt.Errorf("ev submit: %w", WrapError(ErrorCodeGatewayTimeout, "no reply", cause))

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsDomainError(err, ErrorCodeGatewayTimeout))
	assert.False(t, IsDomainError(err, ErrorCodeGatewayError))
	assert.Equal(t, ErrorCodeGatewayTimeout, GetErrorCode(err))
	assert.Equal(t, ErrorCode(""), GetErrorCode(cause))
}

func TestDomainError_WithDetail(t *testing.T) {
	err := &DomainError{Code: ErrorCodeValidationFailed, Message: "bad"}
	err.WithDetail("field", "amount").WithDetail("value", "-1")

	assert.Equal(t, "amount", err.Details["field"])
	assert.Equal(t, "-1", err.Details["value"])
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name        string
		code        ErrorCode
		validation  bool
		gateway     bool
		bookkeeping bool
	}{
		{"validation_failed", ErrorCodeValidationFailed, true, false, false},
		{"msisdn_invalid", ErrorCodeValidationMSISDNInvalid, true, false, false},
		{"gateway_error", ErrorCodeGatewayError, false, true, false},
		{"gateway_unavailable", ErrorCodeGatewayUnavailable, false, true, false},
		{"gateway_malformed", ErrorCodeGatewayMalformed, false, true, false},
		{"log_failed", ErrorCodeBookkeepingLog, false, false, true},
		{"reconcile_failed", ErrorCodeBookkeepingReconcile, false, false, true},
		{"settlement_declined", ErrorCodeSettlementDeclined, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDomainError(tt.code, "x")
			assert.Equal(t, tt.validation, IsValidationError(err))
			assert.Equal(t, tt.gateway, IsGatewayError(err))
			assert.Equal(t, tt.bookkeeping, IsBookkeepingError(err))
		})
	}
}
