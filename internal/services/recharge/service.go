package recharge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/recharge-service/internal/config"
	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/kevin07696/recharge-service/internal/domain/ports"
	"github.com/kevin07696/recharge-service/internal/services/interpreter"
	"github.com/kevin07696/recharge-service/pkg/observability"
	"github.com/kevin07696/recharge-service/pkg/resilience"
	"github.com/kevin07696/recharge-service/pkg/timeutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	transactionTypeTopUp   = "ITOP'UP"
	transactionTypeBillPay = "Bill Pay"
)

// Diagnostic steps recorded on the attempt trace
const (
	stepDirectory  = "retailer_msisdn"
	stepSubmit     = "submit"
	stepSettlement = "settlement"
	stepTxnID      = "txn_id"
	stepLog        = "transaction_log"
	stepParse      = "balance_parse"
	stepUpdate     = "balance_update"
)

// Options tunes the orchestrator
type Options struct {
	Recharge config.RechargeConfig
	// Reconcile lists gateways whose success messages carry a balance figure
	Reconcile map[domain.Gateway]bool
}

// Service implements serviceports.RechargeService
type Service struct {
	gateways    map[domain.Gateway]ports.RechargeGateway
	interpreter *interpreter.Interpreter
	txLogs      ports.TransactionLogRepository
	balances    ports.BalanceSnapshotStore
	traces      ports.TraceSink
	directory   ports.RetailerDirectory
	opts        Options
	timeouts    *resilience.TimeoutConfig
	logger      ports.Logger
	now         func() time.Time
}

// NewService creates a new recharge orchestrator. directory may be nil when
// callers always supply the retailer MSISDN.
func NewService(
	gateways []ports.RechargeGateway,
	interp *interpreter.Interpreter,
	txLogs ports.TransactionLogRepository,
	balances ports.BalanceSnapshotStore,
	traces ports.TraceSink,
	directory ports.RetailerDirectory,
	opts Options,
	logger ports.Logger,
) *Service {
	byName := make(map[domain.Gateway]ports.RechargeGateway, len(gateways))
	for _, gw := range gateways {
		byName[gw.Name()] = gw
	}
	timeouts := resilience.DefaultTimeoutConfig()
	if opts.Recharge.BookkeepingTimeout > 0 {
		timeouts.Bookkeeping = opts.Recharge.BookkeepingTimeout
	}
	return &Service{
		gateways:    byName,
		interpreter: interp,
		txLogs:      txLogs,
		balances:    balances,
		traces:      traces,
		directory:   directory,
		opts:        opts,
		timeouts:    timeouts,
		logger:      logger,
		now:         timeutil.Now,
	}
}

// Recharge runs one attempt through Built, Submitted, Interpreted, Logged,
// Reconciled and Done. Only the gateway submission and the settlement status
// decide the result; later steps record diagnostics and carry on.
func (s *Service) Recharge(ctx context.Context, req *domain.RechargeRequest) (*domain.RechargeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	gw, ok := s.gateways[req.Gateway]
	if !ok {
		return nil, domain.WrapError(domain.ErrorCodeValidationFailed, "gateway not configured",
			fmt.Errorf("%w: %s", domain.ErrUnsupportedGateway, req.Gateway))
	}

	attempt := s.build(req)

	ctx, span := observability.Tracer().Start(ctx, "recharge.Recharge")
	defer span.End()
	span.SetAttributes(
		attribute.String("attempt_id", attempt.ID),
		attribute.String("gateway", string(req.Gateway)),
		attribute.String("flavor", string(attempt.Flavor)),
	)

	if attempt.Request.RetailerMSISDN == "" {
		if err := s.resolveRetailerMSISDN(ctx, attempt); err != nil {
			attempt.AddDiagnostic(stepDirectory, err.Error())
			return s.fail(context.WithoutCancel(ctx), attempt, s.opts.Recharge.GenericFailureMessage, ""), nil
		}
	}

	outcome, err := s.submit(ctx, gw, attempt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway submission failed")
		attempt.AddDiagnostic(stepSubmit, err.Error())
		return s.fail(context.WithoutCancel(ctx), attempt, s.interpreter.NoResponseMessage(), ""), nil
	}

	// The provider has settled; finish deterministically even if the caller leaves.
	bctx, cancel := s.timeouts.BookkeepingContext(ctx)
	defer cancel()

	result := s.interpreter.Interpret(outcome)
	attempt.Outcome = outcome
	attempt.Message = result.Message
	attempt.Transition(domain.StateInterpreted)

	if !result.Success {
		span.SetStatus(codes.Error, "settlement declined")
		attempt.AddDiagnostic(stepSettlement, fmt.Sprintf("status=%s message=%q", outcome.StatusCode, outcome.Message))
		return s.fail(bctx, attempt, result.Message, outcome.StatusCode), nil
	}

	attempt.Success = true
	attempt.TransactionID = result.TransactionID
	if result.Note != "" {
		attempt.AddDiagnostic(stepTxnID, result.Note)
	}

	s.logAttempt(bctx, attempt)
	attempt.Transition(domain.StateLogged)

	if s.opts.Reconcile[req.Gateway] {
		s.reconcile(bctx, attempt)
		attempt.Transition(domain.StateReconciled)
	}

	attempt.Transition(domain.StateDone)
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Bool("degraded", attempt.Degraded()),
	)
	s.finish(bctx, attempt, "success", outcome.StatusCode)

	return &domain.RechargeResult{
		Success:       true,
		Message:       attempt.Message,
		TransactionID: attempt.TransactionID,
	}, nil
}

// build assembles the attempt in the Built state
func (s *Service) build(req *domain.RechargeRequest) *domain.RechargeAttempt {
	attempt := &domain.RechargeAttempt{
		ID:        uuid.New().String(),
		Request:   *req,
		StartedAt: s.now(),
		State:     domain.StateBuilt,
	}
	attempt.Request.PaymentType = req.PaymentType.Normalize()
	attempt.Flavor = domain.FlavorFor(attempt.Request.PaymentType)
	return attempt
}

func (s *Service) resolveRetailerMSISDN(ctx context.Context, attempt *domain.RechargeAttempt) error {
	if s.directory == nil {
		return fmt.Errorf("retailer msisdn missing and no directory configured")
	}
	msisdn, err := s.directory.GetRetailerMSISDN(ctx, attempt.Request.RetailerCode)
	if err != nil {
		return fmt.Errorf("resolve retailer msisdn: %w", err)
	}
	if strings.TrimSpace(msisdn) == "" {
		return fmt.Errorf("retailer %s has no registered msisdn", attempt.Request.RetailerCode)
	}
	attempt.Request.RetailerMSISDN = msisdn
	return nil
}

func (s *Service) submit(ctx context.Context, gw ports.RechargeGateway, attempt *domain.RechargeAttempt) (*domain.GatewayOutcome, error) {
	ctx, span := observability.Tracer().Start(ctx, "recharge.Submit")
	defer span.End()

	attempt.Transition(domain.StateSubmitted)
	outcome, err := gw.Submit(ctx, &ports.GatewayRequest{
		AttemptID:      attempt.ID,
		Flavor:         attempt.Flavor,
		RetailerCode:   attempt.Request.RetailerCode,
		RetailerMSISDN: attempt.Request.RetailerMSISDN,
		SubscriberNo:   attempt.Request.SubscriberNo,
		Amount:         attempt.Request.Amount,
		PaymentType:    attempt.Request.PaymentType,
		PIN:            attempt.Request.PIN,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if outcome == nil {
		return nil, fmt.Errorf("%w: empty outcome", domain.ErrInvalidGatewayResponse)
	}
	span.SetAttributes(attribute.String("status_code", outcome.StatusCode))
	return outcome, nil
}

// logAttempt persists the transaction log; failures are diagnostics only
func (s *Service) logAttempt(ctx context.Context, attempt *domain.RechargeAttempt) {
	if s.txLogs == nil {
		return
	}
	saved, err := s.txLogs.SaveTransactionLog(ctx, s.transactionLog(attempt))
	switch {
	case err != nil:
		attempt.AddDiagnostic(stepLog, err.Error())
	case !saved:
		attempt.AddDiagnostic(stepLog, "transaction log not saved")
	}
}

// reconcile pushes the balance reported in the success message to the
// snapshot store; failures are diagnostics only
func (s *Service) reconcile(ctx context.Context, attempt *domain.RechargeAttempt) {
	if s.balances == nil {
		return
	}
	outcome := attempt.Outcome

	balance, err := interpreter.ParseBalance(outcome.Message)
	if err != nil {
		attempt.AddDiagnostic(stepParse, err.Error())
		return
	}

	providerTime, display, err := interpreter.ParseTimestamp(outcome.ResponseDate)
	if err != nil {
		attempt.AddDiagnostic(stepParse, err.Error())
		providerTime = outcome.ReceivedAt
		display = timeutil.FormatDisplay(providerTime)
	}

	rows, err := s.balances.UpdateBalanceSnapshot(ctx, &domain.BalanceSnapshot{
		RetailerCode: attempt.Request.RetailerCode,
		TopUpNumber:  attempt.Request.RetailerMSISDN,
		Balance:      balance,
		ProviderTime: providerTime,
		DisplayTime:  display,
		UpdatedAt:    s.now(),
	})
	switch {
	case err != nil:
		attempt.AddDiagnostic(stepUpdate, err.Error())
	case rows == 0:
		attempt.AddDiagnostic(stepUpdate, "unable to update retailer balance")
	}
}

func (s *Service) fail(ctx context.Context, attempt *domain.RechargeAttempt, message, statusCode string) *domain.RechargeResult {
	attempt.Success = false
	attempt.Message = message
	attempt.Transition(domain.StateFailed)

	outcome := "declined"
	if attempt.Outcome == nil {
		outcome = "transport_error"
	}
	s.finish(ctx, attempt, outcome, statusCode)

	return &domain.RechargeResult{Success: false, Message: message}
}

// finish records metrics and ships the trace out of band
func (s *Service) finish(ctx context.Context, attempt *domain.RechargeAttempt, outcome, statusCode string) {
	duration := s.now().Sub(attempt.StartedAt)
	observability.RecordRechargeAttempt(
		string(attempt.Request.Gateway),
		string(attempt.Flavor),
		outcome,
		statusCode,
		attempt.Request.Amount.InexactFloat64(),
		duration.Seconds(),
	)

	fields := []ports.Field{
		ports.String("attempt_id", attempt.ID),
		ports.String("retailer_code", attempt.Request.RetailerCode),
		ports.String("gateway", string(attempt.Request.Gateway)),
		ports.String("state", string(attempt.State)),
		ports.String("transaction_id", attempt.TransactionID),
		ports.Duration("duration", duration),
	}
	if attempt.Success {
		s.logger.Info("recharge completed", fields...)
	} else {
		s.logger.Warn("recharge failed", fields...)
	}

	if !attempt.Degraded() {
		return
	}
	for _, entry := range attempt.Trace {
		step, _, _ := strings.Cut(entry, ":")
		observability.RecordRechargeDiagnostic(string(attempt.Request.Gateway), step)
	}
	s.writeTrace(ctx, attempt, "recharge")
}

func (s *Service) writeTrace(ctx context.Context, attempt *domain.RechargeAttempt, operation string) {
	if s.traces == nil {
		return
	}
	record := &domain.TraceRecord{
		AttemptID:    attempt.ID,
		RetailerCode: attempt.Request.RetailerCode,
		Gateway:      attempt.Request.Gateway,
		Operation:    operation,
		State:        string(attempt.State),
		Entries:      attempt.Trace,
		CreatedAt:    s.now(),
	}
	if err := s.traces.WriteTrace(ctx, record); err != nil {
		s.logger.Error("failed to write recharge trace",
			ports.String("attempt_id", attempt.ID),
			ports.Strings("entries", attempt.Trace),
			ports.Err(err))
	}
}

// transactionLog maps a settled attempt to its persisted record
func (s *Service) transactionLog(attempt *domain.RechargeAttempt) *domain.TransactionLog {
	req := attempt.Request

	subscriber := req.SubscriberNo
	if len(subscriber) == 11 {
		subscriber = s.opts.Recharge.CountryPrefix + subscriber
	}
	retailerMSISDN := req.RetailerMSISDN
	if retailerMSISDN != "" && !strings.HasPrefix(retailerMSISDN, "0") {
		retailerMSISDN = "0" + retailerMSISDN
	}
	txnType := transactionTypeBillPay
	if req.PaymentType.IsPrepaid() {
		txnType = transactionTypeTopUp
	}

	var gatewayTxnID, statusCode, message string
	if attempt.Outcome != nil {
		gatewayTxnID = attempt.Outcome.TransactionID
		statusCode = attempt.Outcome.StatusCode
		message = truncate(attempt.Outcome.Message, s.opts.Recharge.LogMessageLength)
	}

	return &domain.TransactionLog{
		AttemptID:       attempt.ID,
		RetailerCode:    req.RetailerCode,
		RetailerMSISDN:  retailerMSISDN,
		SubscriberNo:    subscriber,
		Amount:          req.Amount,
		TransactionType: txnType,
		Gateway:         req.Gateway,
		GatewayTxnID:    gatewayTxnID,
		ResponseTxnID:   attempt.TransactionID,
		StatusCode:      statusCode,
		ResponseMessage: message,
		LoginProvider:   req.LoginProvider,
		UserAgent:       req.UserAgent,
		IsSuccess:       attempt.Success,
		CreatedAt:       s.now(),
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
