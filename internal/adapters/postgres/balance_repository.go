package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/kevin07696/recharge-service/internal/domain/ports"
)

// The balance columns live on the retailer row; a retailer unknown to the
// table yields zero rows, which callers treat as a bookkeeping diagnostic.
const (
	updateBalanceSnapshot = `
UPDATE retailers
SET itopup_balance = $2,
    itopup_number = COALESCE($3, itopup_number),
    balance_provider_time = $4,
    balance_display_time = $5,
    balance_updated_at = $6
WHERE retailer_code = $1`

	selectBalanceSnapshot = `
SELECT retailer_code, itopup_number, itopup_balance, balance_provider_time,
       balance_display_time, balance_updated_at
FROM retailers
WHERE retailer_code = $1 AND balance_updated_at IS NOT NULL`

	selectRetailerMSISDN = `SELECT msisdn FROM retailers WHERE retailer_code = $1`
)

// RetailerRepository implements ports.BalanceSnapshotStore and ports.RetailerDirectory
type RetailerRepository struct {
	db      ports.DBPort
	timeout time.Duration
}

var (
	_ ports.BalanceSnapshotStore = (*RetailerRepository)(nil)
	_ ports.RetailerDirectory    = (*RetailerRepository)(nil)
)

// NewRetailerRepository creates a new retailer repository
func NewRetailerRepository(db ports.DBPort) *RetailerRepository {
	return &RetailerRepository{db: db, timeout: defaultQueryTimeout}
}

// UpdateBalanceSnapshot overwrites the retailer's snapshot (last writer wins)
// and returns the affected row count
func (r *RetailerRepository) UpdateBalanceSnapshot(ctx context.Context, snapshot *domain.BalanceSnapshot) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	balance, err := decimalToNumeric(snapshot.Balance)
	if err != nil {
		return 0, err
	}

	tag, err := executor(r.db, nil).Exec(ctx, updateBalanceSnapshot,
		snapshot.RetailerCode,
		balance,
		nullText(snapshot.TopUpNumber),
		snapshot.ProviderTime,
		snapshot.DisplayTime,
		snapshot.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("update balance snapshot: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetBalanceSnapshot returns domain.ErrSnapshotNotFound when no balance was ever recorded
func (r *RetailerRepository) GetBalanceSnapshot(ctx context.Context, retailerCode string) (*domain.BalanceSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		snapshot     domain.BalanceSnapshot
		topUpNumber  pgtype.Text
		balance      pgtype.Numeric
		providerTime pgtype.Timestamptz
		displayTime  pgtype.Text
		updatedAt    pgtype.Timestamptz
	)
	err := executor(r.db, nil).QueryRow(ctx, selectBalanceSnapshot, retailerCode).Scan(
		&snapshot.RetailerCode,
		&topUpNumber,
		&balance,
		&providerTime,
		&displayTime,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("get balance snapshot: %w", err)
	}

	if snapshot.Balance, err = numericToDecimal(balance); err != nil {
		return nil, err
	}
	snapshot.TopUpNumber = topUpNumber.String
	snapshot.ProviderTime = providerTime.Time
	snapshot.DisplayTime = displayTime.String
	snapshot.UpdatedAt = updatedAt.Time
	return &snapshot, nil
}

// GetRetailerMSISDN implements ports.RetailerDirectory
func (r *RetailerRepository) GetRetailerMSISDN(ctx context.Context, retailerCode string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var msisdn pgtype.Text
	err := executor(r.db, nil).QueryRow(ctx, selectRetailerMSISDN, retailerCode).Scan(&msisdn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", domain.ErrRetailerNotFound, retailerCode)
		}
		return "", fmt.Errorf("get retailer msisdn: %w", err)
	}
	return msisdn.String, nil
}
