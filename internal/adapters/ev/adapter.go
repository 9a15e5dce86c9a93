package ev

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kevin07696/recharge-service/internal/config"
	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/kevin07696/recharge-service/internal/domain/ports"
	gwerrors "github.com/kevin07696/recharge-service/pkg/errors"
	pkghttp "github.com/kevin07696/recharge-service/pkg/http"
	"github.com/kevin07696/recharge-service/pkg/observability"
	"github.com/kevin07696/recharge-service/pkg/resilience"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxResponseBytes = 64 * 1024

var poishaPerTaka = decimal.NewFromInt(100)

// Config contains configuration for the EV adapter
type Config struct {
	// BaseURL is the COMMAND endpoint, e.g. https://ev.example.com/pretups/C2SReceiver
	BaseURL string
	// LoginID and Password are the channel credentials; EV accepts them empty
	// for retailer-initiated requests authenticated by PIN.
	LoginID  string
	Password string
	Timeout  time.Duration

	InsecureSkipVerify bool
	Breaker            resilience.CircuitBreakerConfig
}

// ConfigFrom maps the gateway section of the service configuration
func ConfigFrom(gc config.GatewayConfig) Config {
	timeout := gc.Timeout
	if timeout <= 0 {
		timeout = resilience.DefaultTimeoutConfig().Gateway
	}
	return Config{
		BaseURL:            gc.BaseURL,
		LoginID:            gc.Username,
		Password:           gc.Password,
		Timeout:            timeout,
		InsecureSkipVerify: gc.InsecureSkipVerify,
		Breaker:            resilience.DefaultCircuitBreakerConfig(string(domain.GatewayEV)),
	}
}

// Adapter talks to EV over XML COMMAND documents. It implements
// ports.RechargeGateway and ports.BalanceGateway and never retries: a
// resubmitted recharge could settle twice.
type Adapter struct {
	config     Config
	httpClient ports.HTTPClient
	breaker    *resilience.CircuitBreaker
	logger     *zap.Logger
	now        func() time.Time
}

var (
	_ ports.RechargeGateway = (*Adapter)(nil)
	_ ports.BalanceGateway  = (*Adapter)(nil)
)

// NewAdapter creates a new EV adapter. A nil client gets the pooled gateway client.
func NewAdapter(cfg Config, client ports.HTTPClient, logger *zap.Logger) *Adapter {
	if client == nil {
		client = pkghttp.NewHTTPClient(pkghttp.GatewayClientConfig(cfg.InsecureSkipVerify), cfg.Timeout)
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = resilience.DefaultCircuitBreakerConfig(string(domain.GatewayEV))
	}
	onChange := cfg.Breaker.OnStateChange
	cfg.Breaker.OnStateChange = func(name string, from, to resilience.CircuitState) {
		observability.SetGatewayCircuitState(name, int(to))
		logger.Warn("EV circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()))
		if onChange != nil {
			onChange(name, from, to)
		}
	}

	return &Adapter{
		config:     cfg,
		httpClient: client,
		breaker:    resilience.NewCircuitBreaker(cfg.Breaker),
		logger:     logger,
		now:        time.Now,
	}
}

// Name implements ports.RechargeGateway
func (a *Adapter) Name() domain.Gateway {
	return domain.GatewayEV
}

// Submit sends a prepaid top-up or postpaid bill payment
func (a *Adapter) Submit(ctx context.Context, req *ports.GatewayRequest) (*domain.GatewayOutcome, error) {
	flavor := req.Flavor
	if flavor == "" {
		flavor = domain.FlavorFor(req.PaymentType)
	}

	cmd := &rechargeCommand{
		Type:      string(flavor),
		ExtNwCode: NetworkCode,
		MSISDN:    req.RetailerMSISDN,
		PIN:       req.PIN,
		LoginID:   a.config.LoginID,
		Password:  a.config.Password,
		ExtRefNum: strings.ReplaceAll(req.AttemptID, "-", ""),
		MSISDN2:   req.SubscriberNo,
		Amount:    toPoisha(req.Amount),
		Language1: "0",
		Language2: "1",
		Selector:  "1",
	}

	a.logger.Info("Submitting EV recharge",
		zap.String("attempt_id", req.AttemptID),
		zap.String("type", cmd.Type),
		zap.String("retailer_code", req.RetailerCode),
		zap.String("amount", cmd.Amount),
	)

	return a.execute(ctx, "submit", cmd)
}

// QueryBalance sends an EXUSRBALREQ for the retailer's float
func (a *Adapter) QueryBalance(ctx context.Context, req *ports.BalanceInquiry) (*domain.GatewayOutcome, error) {
	cmd := &balanceCommand{
		Type:      string(domain.FlavorBalanceInquiry),
		ExtNwCode: NetworkCode,
		MSISDN:    req.RetailerMSISDN,
		PIN:       req.PIN,
		LoginID:   a.config.LoginID,
		Password:  a.config.Password,
		Language1: "0",
	}

	a.logger.Info("Querying EV balance", zap.String("retailer_code", req.RetailerCode))
	return a.execute(ctx, "balance", cmd)
}

// CircuitState exposes the breaker state for health reporting
func (a *Adapter) CircuitState() resilience.CircuitState {
	return a.breaker.State()
}

func (a *Adapter) execute(ctx context.Context, op string, cmd interface{}) (*domain.GatewayOutcome, error) {
	body, err := encodeCommand(cmd)
	if err != nil {
		return nil, gwerrors.NewGatewayError(string(domain.GatewayEV), op, gwerrors.CategoryEncode, err)
	}

	var outcome *domain.GatewayOutcome
	err = a.breaker.Call(func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL, bytes.NewReader(body))
		if err != nil {
			return gwerrors.NewGatewayError(string(domain.GatewayEV), op, gwerrors.CategoryEncode, err)
		}
		httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")

		start := a.now()
		httpResp, err := a.httpClient.Do(httpReq)
		if err != nil {
			a.logger.Error("EV request failed",
				zap.String("op", op),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			return gwerrors.NewGatewayError(string(domain.GatewayEV), op, "", err)
		}
		defer httpResp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
		if err != nil {
			return gwerrors.NewGatewayError(string(domain.GatewayEV), op, "", fmt.Errorf("failed to read response: %w", err))
		}

		if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
			gwErr := gwerrors.NewGatewayError(string(domain.GatewayEV), op, gwerrors.CategoryHTTPStatus,
				fmt.Errorf("unexpected status %s", httpResp.Status))
			gwErr.StatusCode = httpResp.StatusCode
			return gwErr
		}

		parsed, err := decodeResponse(raw)
		if err != nil {
			a.logger.Error("Failed to parse EV response",
				zap.String("op", op),
				zap.Int("body_length", len(raw)),
				zap.Error(err))
			return gwerrors.NewGatewayError(string(domain.GatewayEV), op, gwerrors.CategoryDecode, err)
		}

		a.logger.Info("Received EV response",
			zap.String("op", op),
			zap.String("type", parsed.Type),
			zap.String("txn_status", parsed.TxnStatus),
			zap.String("txn_id", parsed.TxnID),
			zap.Duration("elapsed", time.Since(start)),
		)

		outcome = &domain.GatewayOutcome{
			Gateway:       domain.GatewayEV,
			StatusCode:    parsed.TxnStatus,
			Message:       parsed.Message,
			TransactionID: parsed.TxnID,
			ResponseDate:  parsed.Date,
			ReceivedAt:    a.now(),
			RawBody:       string(raw),
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
			a.logger.Warn("EV circuit breaker rejected request",
				zap.String("op", op),
				zap.String("circuit_state", a.breaker.State().String()))
			return nil, gwerrors.NewGatewayError(string(domain.GatewayEV), op, gwerrors.CategoryCircuitOpen, err)
		}
		return nil, err
	}
	return outcome, nil
}

// toPoisha renders a taka amount as the integer poisha string EV expects
func toPoisha(amount decimal.Decimal) string {
	return amount.Mul(poishaPerTaka).Round(0).String()
}
