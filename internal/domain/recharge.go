package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Gateway identifies an external settlement system
type Gateway string

const (
	GatewayEV   Gateway = "EV"
	GatewayIRIS Gateway = "IRIS"
)

// PaymentType is the retailer-facing payment type code
type PaymentType int

const (
	PaymentTypeUnset    PaymentType = 0
	PaymentTypePrepaid  PaymentType = 1
	PaymentTypePostpaid PaymentType = 2
)

// Normalize maps the unset code to prepaid
func (p PaymentType) Normalize() PaymentType {
	if p == PaymentTypeUnset {
		return PaymentTypePrepaid
	}
	return p
}

// IsPrepaid reports whether the normalized code selects a prepaid top-up
func (p PaymentType) IsPrepaid() bool {
	return p.Normalize() == PaymentTypePrepaid
}

// RequestFlavor is the provider request type selected by the payment type
type RequestFlavor string

const (
	FlavorPrepaidTopUp    RequestFlavor = "EXRCTRFREQ"
	FlavorPostpaidBillPay RequestFlavor = "EXPPBREQ"
	FlavorBalanceInquiry  RequestFlavor = "EXUSRBALREQ"
)

// FlavorFor selects the request flavor for a payment type
func FlavorFor(p PaymentType) RequestFlavor {
	if p.IsPrepaid() {
		return FlavorPrepaidTopUp
	}
	return FlavorPostpaidBillPay
}

// RechargeState is a state of the recharge state machine
type RechargeState string

const (
	StateBuilt       RechargeState = "built"
	StateSubmitted   RechargeState = "submitted"
	StateInterpreted RechargeState = "interpreted"
	StateLogged      RechargeState = "logged"
	StateReconciled  RechargeState = "reconciled"
	StateDone        RechargeState = "done"
	StateFailed      RechargeState = "failed"
)

// IsTerminal reports whether no further transition is possible
func (s RechargeState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// GatewayOutcome is the decoded result of one provider call. It is consumed
// by the interpreter and never persisted verbatim.
type GatewayOutcome struct {
	Gateway       Gateway
	StatusCode    string
	Message       string
	TransactionID string
	// ResponseDate is the provider timestamp text, if any
	ResponseDate string
	ReceivedAt   time.Time
	RawBody      string
}

// RechargeRequest carries the normalized retailer inputs for one recharge
type RechargeRequest struct {
	RetailerCode   string
	RetailerMSISDN string
	SubscriberNo   string
	Amount         decimal.Decimal
	PaymentType    PaymentType
	Gateway        Gateway
	PIN            string
	LoginProvider  string
	UserAgent      string
}

// Validate checks the fields the gateways require
func (r *RechargeRequest) Validate() error {
	if strings.TrimSpace(r.RetailerCode) == "" {
		return WrapError(ErrorCodeValidationMissingField, "retailer_code is required", nil)
	}
	if strings.TrimSpace(r.SubscriberNo) == "" {
		return WrapError(ErrorCodeValidationMissingField, "subscriber_no is required", nil)
	}
	if !isDigits(r.SubscriberNo) {
		return NewDomainError(ErrorCodeValidationMSISDNInvalid, "subscriber_no must be numeric").
			WithDetail("subscriber_no", r.SubscriberNo)
	}
	if !r.Amount.IsPositive() {
		return NewDomainError(ErrorCodeValidationAmountInvalid, "amount must be positive").
			WithDetail("amount", r.Amount.String())
	}
	switch r.Gateway {
	case GatewayEV, GatewayIRIS:
	default:
		return WrapError(ErrorCodeValidationFailed, "unsupported gateway", fmt.Errorf("%w: %q", ErrUnsupportedGateway, r.Gateway))
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// RechargeAttempt is the orchestration-scoped aggregate for a single run
type RechargeAttempt struct {
	ID            string
	Request       RechargeRequest
	Flavor        RequestFlavor
	Outcome       *GatewayOutcome
	Success       bool
	TransactionID string
	Message       string
	State         RechargeState
	Trace         []string
	StartedAt     time.Time
}

// Transition moves the attempt to the next state
func (a *RechargeAttempt) Transition(to RechargeState) {
	a.State = to
}

// AddDiagnostic appends a non-fatal issue to the trace
func (a *RechargeAttempt) AddDiagnostic(step, note string) {
	a.Trace = append(a.Trace, fmt.Sprintf("%s: %s", step, note))
}

// Degraded reports whether any bookkeeping step left a diagnostic
func (a *RechargeAttempt) Degraded() bool {
	return len(a.Trace) > 0
}

// RechargeResult is the only structure surfaced to callers
type RechargeResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
}

// TransactionLog is the persisted record of a completed attempt
type TransactionLog struct {
	AttemptID       string
	RetailerCode    string
	RetailerMSISDN  string
	SubscriberNo    string
	Amount          decimal.Decimal
	TransactionType string
	Gateway         Gateway
	GatewayTxnID    string
	// ResponseTxnID is the id extracted from the provider message text
	ResponseTxnID   string
	StatusCode      string
	ResponseMessage string
	LoginProvider   string
	UserAgent       string
	IsSuccess       bool
	CreatedAt       time.Time
}

// BalanceSnapshot is the last-known advisory balance for a retailer
type BalanceSnapshot struct {
	RetailerCode string          `json:"retailer_code"`
	TopUpNumber  string          `json:"topup_number,omitempty"`
	Balance      decimal.Decimal `json:"balance"`
	ProviderTime time.Time       `json:"provider_time"`
	DisplayTime  string          `json:"display_time"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TraceRecord is an out-of-band diagnostic entry for one attempt
type TraceRecord struct {
	ID           string    `json:"id"`
	AttemptID    string    `json:"attempt_id"`
	RetailerCode string    `json:"retailer_code"`
	Gateway      Gateway   `json:"gateway"`
	Operation    string    `json:"operation"`
	State        string    `json:"state"`
	Entries      []string  `json:"entries"`
	CreatedAt    time.Time `json:"created_at"`
}
