package fixtures

import (
	"time"

	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/shopspring/decimal"
)

// RechargeRequestBuilder provides fluent API for building test recharge requests.
type RechargeRequestBuilder struct {
	req *domain.RechargeRequest
}

// NewRechargeRequest creates a builder with a valid prepaid EV request.
func NewRechargeRequest() *RechargeRequestBuilder {
	return &RechargeRequestBuilder{
		req: &domain.RechargeRequest{
			RetailerCode:   "R01001",
			RetailerMSISDN: "1811000000",
			SubscriberNo:   "01911000000",
			Amount:         decimal.NewFromInt(50),
			PaymentType:    domain.PaymentTypePrepaid,
			Gateway:        domain.GatewayEV,
			PIN:            "1234",
			LoginProvider:  "password",
			UserAgent:      "retailer-app/3.2",
		},
	}
}

func (b *RechargeRequestBuilder) WithGateway(gw domain.Gateway) *RechargeRequestBuilder {
	b.req.Gateway = gw
	return b
}

func (b *RechargeRequestBuilder) WithPaymentType(p domain.PaymentType) *RechargeRequestBuilder {
	b.req.PaymentType = p
	return b
}

func (b *RechargeRequestBuilder) WithAmount(amount decimal.Decimal) *RechargeRequestBuilder {
	b.req.Amount = amount
	return b
}

func (b *RechargeRequestBuilder) WithSubscriber(no string) *RechargeRequestBuilder {
	b.req.SubscriberNo = no
	return b
}

func (b *RechargeRequestBuilder) WithRetailerMSISDN(msisdn string) *RechargeRequestBuilder {
	b.req.RetailerMSISDN = msisdn
	return b
}

func (b *RechargeRequestBuilder) Build() *domain.RechargeRequest {
	r := *b.req
	return &r
}

// EVOutcome builds an EV gateway outcome received now.
func EVOutcome(status, message, date string) *domain.GatewayOutcome {
	return &domain.GatewayOutcome{
		Gateway:      domain.GatewayEV,
		StatusCode:   status,
		Message:      message,
		ResponseDate: date,
		ReceivedAt:   time.Now(),
	}
}

// IRISOutcome builds an IRIS gateway outcome received now.
func IRISOutcome(status, message, txnID string) *domain.GatewayOutcome {
	return &domain.GatewayOutcome{
		Gateway:       domain.GatewayIRIS,
		StatusCode:    status,
		Message:       message,
		TransactionID: txnID,
		ReceivedAt:    time.Now(),
	}
}
