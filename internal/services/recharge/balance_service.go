package recharge

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/kevin07696/recharge-service/internal/domain/ports"
	"github.com/kevin07696/recharge-service/internal/services/interpreter"
	serviceports "github.com/kevin07696/recharge-service/internal/services/ports"
	"github.com/kevin07696/recharge-service/pkg/observability"
	"github.com/kevin07696/recharge-service/pkg/resilience"
	"github.com/kevin07696/recharge-service/pkg/timeutil"
	"go.opentelemetry.io/otel/attribute"
)

// BalanceService implements serviceports.BalanceService
type BalanceService struct {
	gateway     ports.BalanceGateway
	interpreter *interpreter.Interpreter
	balances    ports.BalanceSnapshotStore
	traces      ports.TraceSink
	directory   ports.RetailerDirectory
	logger      ports.Logger
	now         func() time.Time
}

// NewBalanceService creates a new balance service
func NewBalanceService(
	gateway ports.BalanceGateway,
	interp *interpreter.Interpreter,
	balances ports.BalanceSnapshotStore,
	traces ports.TraceSink,
	directory ports.RetailerDirectory,
	logger ports.Logger,
) *BalanceService {
	return &BalanceService{
		gateway:     gateway,
		interpreter: interp,
		balances:    balances,
		traces:      traces,
		directory:   directory,
		logger:      logger,
		now:         timeutil.Now,
	}
}

// RefreshBalance asks EV for the retailer's float and stores the snapshot.
// A failed store write is traced but does not fail the refresh.
func (s *BalanceService) RefreshBalance(ctx context.Context, req *serviceports.BalanceRequest) (*serviceports.BalanceResult, error) {
	if strings.TrimSpace(req.RetailerCode) == "" {
		return nil, domain.WrapError(domain.ErrorCodeValidationMissingField, "retailer_code is required", nil)
	}

	ctx, span := observability.Tracer().Start(ctx, "balance.RefreshBalance")
	defer span.End()
	span.SetAttributes(attribute.String("retailer_code", req.RetailerCode))

	attempt := &domain.RechargeAttempt{
		ID:        uuid.New().String(),
		Request:   domain.RechargeRequest{RetailerCode: req.RetailerCode, RetailerMSISDN: req.RetailerMSISDN, Gateway: domain.GatewayEV},
		Flavor:    domain.FlavorBalanceInquiry,
		StartedAt: s.now(),
		State:     domain.StateBuilt,
	}

	if attempt.Request.RetailerMSISDN == "" && s.directory != nil {
		msisdn, err := s.directory.GetRetailerMSISDN(ctx, req.RetailerCode)
		if err != nil {
			s.logger.Warn("retailer msisdn lookup failed",
				ports.String("retailer_code", req.RetailerCode),
				ports.Err(err))
		} else {
			attempt.Request.RetailerMSISDN = msisdn
		}
	}

	attempt.Transition(domain.StateSubmitted)
	outcome, err := s.gateway.QueryBalance(ctx, &ports.BalanceInquiry{
		RetailerCode:   req.RetailerCode,
		RetailerMSISDN: attempt.Request.RetailerMSISDN,
		PIN:            req.PIN,
	})
	if err != nil || outcome == nil {
		if err != nil {
			span.RecordError(err)
			attempt.AddDiagnostic(stepSubmit, err.Error())
		}
		attempt.Transition(domain.StateFailed)
		observability.RecordBalanceRefresh("transport_error")
		s.writeTrace(context.WithoutCancel(ctx), attempt)
		return &serviceports.BalanceResult{Message: s.interpreter.NoResponseMessage()}, nil
	}

	attempt.Outcome = outcome
	attempt.Transition(domain.StateInterpreted)
	message := s.interpreter.NormalizeMessage(outcome.Message)

	if !s.interpreter.IsSuccess(outcome) {
		attempt.Transition(domain.StateFailed)
		observability.RecordBalanceRefresh("declined")
		s.logger.Info("balance inquiry declined",
			ports.String("retailer_code", req.RetailerCode),
			ports.String("status_code", outcome.StatusCode))
		return &serviceports.BalanceResult{Message: message}, nil
	}

	bctx, cancel := resilience.DefaultTimeoutConfig().BookkeepingContext(ctx)
	defer cancel()

	balance, err := interpreter.ParseBalance(outcome.Message)
	if err != nil {
		attempt.AddDiagnostic(stepParse, err.Error())
		attempt.Transition(domain.StateDone)
		observability.RecordBalanceRefresh("success")
		s.writeTrace(bctx, attempt)
		return &serviceports.BalanceResult{Success: true, Message: message}, nil
	}

	providerTime, display, err := interpreter.ParseTimestamp(outcome.ResponseDate)
	if err != nil {
		attempt.AddDiagnostic(stepParse, err.Error())
		providerTime = outcome.ReceivedAt
		display = timeutil.FormatDisplay(providerTime)
	}

	snapshot := &domain.BalanceSnapshot{
		RetailerCode: req.RetailerCode,
		TopUpNumber:  attempt.Request.RetailerMSISDN,
		Balance:      balance,
		ProviderTime: providerTime,
		DisplayTime:  display,
		UpdatedAt:    s.now(),
	}

	if s.balances != nil {
		rows, err := s.balances.UpdateBalanceSnapshot(bctx, snapshot)
		switch {
		case err != nil:
			attempt.AddDiagnostic(stepUpdate, err.Error())
		case rows == 0:
			attempt.AddDiagnostic(stepUpdate, "unable to update retailer balance")
		}
		attempt.Transition(domain.StateReconciled)
	}

	attempt.Transition(domain.StateDone)
	observability.RecordBalanceRefresh("success")
	if attempt.Degraded() {
		s.writeTrace(bctx, attempt)
	}

	return &serviceports.BalanceResult{
		Success:  true,
		Message:  message,
		Snapshot: snapshot,
	}, nil
}

// GetBalance returns the last stored snapshot for the retailer
func (s *BalanceService) GetBalance(ctx context.Context, retailerCode string) (*domain.BalanceSnapshot, error) {
	if strings.TrimSpace(retailerCode) == "" {
		return nil, domain.WrapError(domain.ErrorCodeValidationMissingField, "retailer_code is required", nil)
	}

	snapshot, err := s.balances.GetBalanceSnapshot(ctx, retailerCode)
	if err != nil {
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			return nil, domain.WrapError(domain.ErrorCodeBalanceNotFound, "no balance recorded for retailer", err)
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "failed to read balance snapshot", err)
	}
	return snapshot, nil
}

func (s *BalanceService) writeTrace(ctx context.Context, attempt *domain.RechargeAttempt) {
	if s.traces == nil || !attempt.Degraded() {
		return
	}
	err := s.traces.WriteTrace(ctx, &domain.TraceRecord{
		AttemptID:    attempt.ID,
		RetailerCode: attempt.Request.RetailerCode,
		Gateway:      domain.GatewayEV,
		Operation:    "balance",
		State:        string(attempt.State),
		Entries:      attempt.Trace,
		CreatedAt:    s.now(),
	})
	if err != nil {
		s.logger.Error("failed to write balance trace",
			ports.String("attempt_id", attempt.ID),
			ports.Err(err))
	}
}
