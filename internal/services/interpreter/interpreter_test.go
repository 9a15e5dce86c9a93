package interpreter

import (
	"testing"
	"time"

	"github.com/kevin07696/recharge-service/internal/config"
	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultCodes() map[domain.Gateway]string {
	return map[domain.Gateway]string{
		domain.GatewayEV:   "200",
		domain.GatewayIRIS: "0",
	}
}

func newTestInterpreter(t *testing.T, mutate func(*config.RechargeConfig)) *Interpreter {
	t.Helper()
	cfg := config.DefaultRechargeConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	in, err := New(cfg, defaultCodes())
	require.NoError(t, err)
	return in
}

func TestIsSuccess(t *testing.T) {
	in := newTestInterpreter(t, nil)

	tests := []struct {
		name    string
		outcome *domain.GatewayOutcome
		want    bool
	}{
		{"ev success", &domain.GatewayOutcome{Gateway: domain.GatewayEV, StatusCode: "200"}, true},
		{"ev success padded", &domain.GatewayOutcome{Gateway: domain.GatewayEV, StatusCode: " 200 "}, true},
		{"ev failure", &domain.GatewayOutcome{Gateway: domain.GatewayEV, StatusCode: "1"}, false},
		{"ev uses iris code", &domain.GatewayOutcome{Gateway: domain.GatewayEV, StatusCode: "0"}, false},
		{"iris success", &domain.GatewayOutcome{Gateway: domain.GatewayIRIS, StatusCode: "0"}, true},
		{"iris failure", &domain.GatewayOutcome{Gateway: domain.GatewayIRIS, StatusCode: "200"}, false},
		{"unknown gateway", &domain.GatewayOutcome{Gateway: "OTHER", StatusCode: "200"}, false},
		{"nil outcome", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, in.IsSuccess(tt.outcome))
		})
	}
}

func TestNormalizeMessage(t *testing.T) {
	in := newTestInterpreter(t, nil)
	cfg := config.DefaultRechargeConfig()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", cfg.NoResponseMessage},
		{"whitespace", "   ", cfg.NoResponseMessage},
		{"insufficient balance", "Insufficient balance in account 01711000000", cfg.MessageRules[0].Replacement},
		{"wrong pin", "Wrong PIN entered", cfg.MessageRules[1].Replacement},
		{"first rule wins", "Invalid PIN and insufficient balance", cfg.MessageRules[0].Replacement},
		{"unmatched is redacted", "Request 123456789 rejected by node 12", "Request ********* rejected by node 12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, in.NormalizeMessage(tt.raw))
		})
	}
}

func TestNormalizeMessage_FullRedaction(t *testing.T) {
	in := newTestInterpreter(t, func(c *config.RechargeConfig) { c.FullRedaction = true })

	assert.Equal(t, config.DefaultRechargeConfig().GenericFailureMessage,
		in.NormalizeMessage("System error at 01711000000"))
}

func TestNormalizeMessage_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Insufficient balance",
		"Request 123456789 rejected",
		"Subscriber 01711223344 is barred",
		"Something unexpected",
		"Txn Number 12345678. Balance updated",
	}

	for _, full := range []bool{false, true} {
		in := newTestInterpreter(t, func(c *config.RechargeConfig) { c.FullRedaction = full })
		for _, raw := range inputs {
			once := in.NormalizeMessage(raw)
			assert.Equal(t, once, in.NormalizeMessage(once), "input %q full=%v", raw, full)
		}
	}
}

func TestNew_RejectsSelfMatchingRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.RechargeConfig)
	}{
		{
			name: "pattern matches own replacement",
			mutate: func(c *config.RechargeConfig) {
				c.MessageRules = []config.MessageRule{{Pattern: `(?i)failed`, Replacement: "Recharge failed."}}
			},
		},
		{
			name: "pattern matches generic message",
			mutate: func(c *config.RechargeConfig) {
				c.MessageRules = []config.MessageRule{{Pattern: `(?i)try again`, Replacement: "Declined."}}
			},
		},
		{
			name: "replacement changes under redaction",
			mutate: func(c *config.RechargeConfig) {
				c.MessageRules = []config.MessageRule{{Pattern: `(?i)barred`, Replacement: "Call 12345 for help."}}
			},
		},
		{
			name: "invalid pattern",
			mutate: func(c *config.RechargeConfig) {
				c.MessageRules = []config.MessageRule{{Pattern: `(`, Replacement: "x"}}
			},
		},
		{
			name:   "missing no-response message",
			mutate: func(c *config.RechargeConfig) { c.NoResponseMessage = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultRechargeConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, defaultCodes())
			assert.Error(t, err)
		})
	}
}

func TestExtractTransactionID(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		wantID   string
		wantNote bool
	}{
		{"txn number", "Txn Number 12345678. Balance updated", "12345678", false},
		{"comma separated", "Recharge of Tk 50 successful, Txn Number r220101.1200.000123, balance 120", "R220101.1200.000123", false},
		{"transaction id", "Success, Transaction ID: abc123 completed", "ABC123", false},
		{"inner anchor", "txn number and transaction id xy77. done", "XY77", false},
		{"no anchor", "Recharge successful", "", true},
		{"anchor without value", "txn number", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, note := ExtractTransactionID(tt.message)
			assert.Equal(t, tt.wantID, id)
			if tt.wantNote {
				assert.NotEmpty(t, note)
			} else {
				assert.Empty(t, note)
			}
		})
	}
}

func TestInterpret(t *testing.T) {
	in := newTestInterpreter(t, nil)

	t.Run("ev success extracts id", func(t *testing.T) {
		got := in.Interpret(&domain.GatewayOutcome{
			Gateway:    domain.GatewayEV,
			StatusCode: "200",
			Message:    "Txn Number 12345678. Balance updated",
		})
		assert.True(t, got.Success)
		assert.Equal(t, "12345678", got.TransactionID)
		assert.Empty(t, got.Note)
		assert.NotContains(t, got.Message, "12345678")
	})

	t.Run("failure with empty message", func(t *testing.T) {
		got := in.Interpret(&domain.GatewayOutcome{Gateway: domain.GatewayEV, StatusCode: "1"})
		assert.False(t, got.Success)
		assert.Equal(t, in.NoResponseMessage(), got.Message)
		assert.Empty(t, got.TransactionID)
	})

	t.Run("falls back to provider id", func(t *testing.T) {
		got := in.Interpret(&domain.GatewayOutcome{
			Gateway:       domain.GatewayIRIS,
			StatusCode:    "0",
			Message:       "Recharge successful",
			TransactionID: "ir123",
		})
		assert.True(t, got.Success)
		assert.Equal(t, "IR123", got.TransactionID)
		assert.NotEmpty(t, got.Note)
	})

	t.Run("success text skips decline rewrites", func(t *testing.T) {
		got := in.Interpret(&domain.GatewayOutcome{
			Gateway:    domain.GatewayIRIS,
			StatusCode: "0",
			Message:    "Recharge successful, duplicate check passed for 01811000000",
		})
		assert.True(t, got.Success)
		assert.Equal(t, "Recharge successful, duplicate check passed for ***********", got.Message)

		declined := in.Interpret(&domain.GatewayOutcome{
			Gateway:    domain.GatewayIRIS,
			StatusCode: "17",
			Message:    "duplicate request for 01811000000",
		})
		assert.False(t, declined.Success)
		assert.Equal(t, "A similar request was processed recently. Please wait before retrying.", declined.Message)
	})

	t.Run("nil outcome", func(t *testing.T) {
		got := in.Interpret(nil)
		assert.False(t, got.Success)
		assert.Equal(t, in.NoResponseMessage(), got.Message)
	})
}

func TestParseBalance(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
		wantErr bool
	}{
		{"plain", "Your balance is 1500.50", "1500.5", false},
		{"currency", "Recharge done. Bal: Tk 12,340.25", "12340.25", false},
		{"bdt", "Current Balance BDT 99", "99", false},
		{"missing", "Txn Number 12345678. Balance updated", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBalance(tt.message)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, display, err := ParseTimestamp("05/03/2024 14:07:09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC), ts)
	assert.Equal(t, "02:07:09 PM, 05 Mar 2024", display)

	_, _, err = ParseTimestamp("2024-03-05T14:07:09Z")
	assert.Error(t, err)
}
