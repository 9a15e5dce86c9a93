package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/kevin07696/recharge-service/internal/domain/ports"
)

const defaultQueryTimeout = 2 * time.Second

const insertTransactionLog = `
INSERT INTO recharge_transaction_logs (
	attempt_id, retailer_code, retailer_msisdn, subscriber_no, amount,
	transaction_type, gateway, gateway_txn_id, response_txn_id, status_code,
	response_message, login_provider, user_agent, is_success, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (attempt_id) DO NOTHING`

// TransactionLogRepository implements ports.TransactionLogRepository
type TransactionLogRepository struct {
	db      ports.DBPort
	timeout time.Duration
}

var _ ports.TransactionLogRepository = (*TransactionLogRepository)(nil)

// NewTransactionLogRepository creates a new transaction log repository
func NewTransactionLogRepository(db ports.DBPort) *TransactionLogRepository {
	return &TransactionLogRepository{db: db, timeout: defaultQueryTimeout}
}

// SaveTransactionLog inserts the log row. A replayed attempt id is not an
// error but reports false.
func (r *TransactionLogRepository) SaveTransactionLog(ctx context.Context, log *domain.TransactionLog) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	amount, err := decimalToNumeric(log.Amount)
	if err != nil {
		return false, err
	}

	tag, err := executor(r.db, nil).Exec(ctx, insertTransactionLog,
		log.AttemptID,
		log.RetailerCode,
		nullText(log.RetailerMSISDN),
		log.SubscriberNo,
		amount,
		log.TransactionType,
		string(log.Gateway),
		nullText(log.GatewayTxnID),
		nullText(log.ResponseTxnID),
		nullText(log.StatusCode),
		nullText(log.ResponseMessage),
		nullText(log.LoginProvider),
		nullText(log.UserAgent),
		log.IsSuccess,
		log.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert transaction log: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
