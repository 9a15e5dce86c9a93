package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the timeout hierarchy, outermost first:
//
//	HTTP Handler (60s)
//	  ↓
//	Service (50s)
//	  ↓
//	Gateway call (30s, EV/IRIS)
//	  ↓
//	Bookkeeping (10s, detached from the caller after the gateway returns)
//
// Each layer must finish before its parent gives up.
type TimeoutConfig struct {
	HTTPHandler time.Duration
	Service     time.Duration
	Gateway     time.Duration
	Bookkeeping time.Duration
	DBConnect   time.Duration
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 60 * time.Second,
		Service:     50 * time.Second,
		Gateway:     30 * time.Second,
		Bookkeeping: 10 * time.Second,
		DBConnect:   15 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 5 * time.Second,
		Service:     4 * time.Second,
		Gateway:     2 * time.Second,
		Bookkeeping: 1 * time.Second,
		DBConnect:   1 * time.Second,
	}
}

// HandlerContext bounds a whole HTTP request
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// ServiceContext bounds one service operation
func (tc *TimeoutConfig) ServiceContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Service)
}

// GatewayContext bounds a single EV or IRIS call
func (tc *TimeoutConfig) GatewayContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Gateway)
}

// BookkeepingContext detaches from the caller's cancellation and bounds the
// post-settlement steps. The parent's values (trace span, request id) survive.
func (tc *TimeoutConfig) BookkeepingContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), tc.Bookkeeping)
}
