package ports

import (
	"context"

	"github.com/kevin07696/recharge-service/internal/domain"
)

// TransactionLogRepository persists completed recharge attempts.
// The boolean result mirrors the collaborator contract: false means the row
// was not written even though no error was raised.
type TransactionLogRepository interface {
	SaveTransactionLog(ctx context.Context, log *domain.TransactionLog) (bool, error)
}

// BalanceSnapshotStore holds the advisory last-known balance per retailer.
// Writes are last-writer-wins.
type BalanceSnapshotStore interface {
	UpdateBalanceSnapshot(ctx context.Context, snapshot *domain.BalanceSnapshot) (int64, error)
	GetBalanceSnapshot(ctx context.Context, retailerCode string) (*domain.BalanceSnapshot, error)
}

// TraceSink receives diagnostic traces out of band
type TraceSink interface {
	WriteTrace(ctx context.Context, record *domain.TraceRecord) error
}

// RetailerDirectory resolves the retailer's registered MSISDN
type RetailerDirectory interface {
	GetRetailerMSISDN(ctx context.Context, retailerCode string) (string, error)
}
