package ports

import (
	"context"

	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/shopspring/decimal"
)

// RechargeService runs recharge attempts end to end
type RechargeService interface {
	// Recharge returns an error only for invalid input. Gateway failures are
	// reported through RechargeResult.Success.
	Recharge(ctx context.Context, req *domain.RechargeRequest) (*domain.RechargeResult, error)
}

// OfferRequest contains parameters for an offer catalog lookup
type OfferRequest struct {
	RetailerCode   string
	RetailerMSISDN string
	SubscriberNo   string
	Amount         decimal.Decimal
}

// OfferCatalogService fetches and normalizes offer catalogs
type OfferCatalogService interface {
	FetchOffers(ctx context.Context, req *OfferRequest) (*domain.OfferBatch, error)
}

// BalanceRequest contains parameters for a balance refresh
type BalanceRequest struct {
	RetailerCode   string
	RetailerMSISDN string
	PIN            string
}

// BalanceResult is the retailer-facing balance refresh result
type BalanceResult struct {
	Success  bool                    `json:"success"`
	Message  string                  `json:"message"`
	Snapshot *domain.BalanceSnapshot `json:"snapshot,omitempty"`
}

// BalanceService refreshes and reads retailer float balances
type BalanceService interface {
	RefreshBalance(ctx context.Context, req *BalanceRequest) (*BalanceResult, error)
	GetBalance(ctx context.Context, retailerCode string) (*domain.BalanceSnapshot, error)
}
