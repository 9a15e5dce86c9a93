package ports

import (
	"context"

	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/shopspring/decimal"
)

// GatewayRequest is the provider-neutral payload for one recharge submission
type GatewayRequest struct {
	AttemptID      string
	Flavor         domain.RequestFlavor
	RetailerCode   string
	RetailerMSISDN string
	SubscriberNo   string
	Amount         decimal.Decimal
	PaymentType    domain.PaymentType
	PIN            string
}

// RechargeGateway submits a recharge to an external settlement system.
// A returned error is a transport failure; a decoded non-success status is
// returned as an outcome, not an error. Implementations must not retry.
type RechargeGateway interface {
	Name() domain.Gateway
	Submit(ctx context.Context, req *GatewayRequest) (*domain.GatewayOutcome, error)
}

// BalanceInquiry asks a gateway for the retailer's current float
type BalanceInquiry struct {
	RetailerCode   string
	RetailerMSISDN string
	PIN            string
}

// BalanceGateway queries the retailer's float balance
type BalanceGateway interface {
	QueryBalance(ctx context.Context, req *BalanceInquiry) (*domain.GatewayOutcome, error)
}

// OfferCatalogRequest asks IRIS for the offers available to a subscriber
type OfferCatalogRequest struct {
	RetailerCode   string
	RetailerMSISDN string
	SubscriberNo   string
	Amount         decimal.Decimal
	TransactionID  string
}

// OfferCatalogResponse is the decoded catalog reply
type OfferCatalogResponse struct {
	Outcome *domain.GatewayOutcome
	Entries []domain.RawOfferEntry
}

// OfferGateway fetches raw offer catalogs
type OfferGateway interface {
	FetchOffers(ctx context.Context, req *OfferCatalogRequest) (*OfferCatalogResponse, error)
}
