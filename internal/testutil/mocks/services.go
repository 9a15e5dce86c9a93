package mocks

import (
	"context"

	"github.com/kevin07696/recharge-service/internal/domain"
	serviceports "github.com/kevin07696/recharge-service/internal/services/ports"
	"github.com/stretchr/testify/mock"
)

// MockRechargeService mocks serviceports.RechargeService
type MockRechargeService struct {
	mock.Mock
}

func (m *MockRechargeService) Recharge(ctx context.Context, req *domain.RechargeRequest) (*domain.RechargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RechargeResult), args.Error(1)
}

// MockOfferCatalogService mocks serviceports.OfferCatalogService
type MockOfferCatalogService struct {
	mock.Mock
}

func (m *MockOfferCatalogService) FetchOffers(ctx context.Context, req *serviceports.OfferRequest) (*domain.OfferBatch, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OfferBatch), args.Error(1)
}

// MockBalanceService mocks serviceports.BalanceService
type MockBalanceService struct {
	mock.Mock
}

func (m *MockBalanceService) RefreshBalance(ctx context.Context, req *serviceports.BalanceRequest) (*serviceports.BalanceResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*serviceports.BalanceResult), args.Error(1)
}

func (m *MockBalanceService) GetBalance(ctx context.Context, retailerCode string) (*domain.BalanceSnapshot, error) {
	args := m.Called(ctx, retailerCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BalanceSnapshot), args.Error(1)
}
