package iris

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kevin07696/recharge-service/internal/config"
	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/kevin07696/recharge-service/internal/domain/ports"
	"github.com/kevin07696/recharge-service/pkg/encoding"
	gwerrors "github.com/kevin07696/recharge-service/pkg/errors"
	pkghttp "github.com/kevin07696/recharge-service/pkg/http"
	"github.com/kevin07696/recharge-service/pkg/observability"
	"github.com/kevin07696/recharge-service/pkg/resilience"
)

const (
	pathRecharge = "continueRecharge"
	pathOffers   = "getDigitalOffer"

	maxResponseBytes = 256 * 1024
)

// Config contains configuration for the IRIS adapter
type Config struct {
	BaseURL     string
	Username    string
	Password    string
	Channel     string
	GatewayCode string
	Timeout     time.Duration

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
		Username:           gc.Username,
		Password:           gc.Password,
		Channel:            gc.Channel,
		GatewayCode:        gc.GatewayCode,
		Timeout:            timeout,
		InsecureSkipVerify: gc.InsecureSkipVerify,
		Breaker:            resilience.DefaultCircuitBreakerConfig(string(domain.GatewayIRIS)),
	}
}

// Adapter implements ports.RechargeGateway and ports.OfferGateway for IRIS
type Adapter struct {
	config     Config
	httpClient ports.HTTPClient
	breaker    *resilience.CircuitBreaker
	logger     ports.Logger
	now        func() time.Time
}

var (
	_ ports.RechargeGateway = (*Adapter)(nil)
	_ ports.OfferGateway    = (*Adapter)(nil)
)

// NewAdapter creates a new IRIS adapter with dependency injection
func NewAdapter(cfg Config, httpClient ports.HTTPClient, logger ports.Logger) *Adapter {
	if httpClient == nil {
		httpClient = pkghttp.NewHTTPClient(pkghttp.GatewayClientConfig(cfg.InsecureSkipVerify), cfg.Timeout)
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = resilience.DefaultCircuitBreakerConfig(string(domain.GatewayIRIS))
	}
	cfg.Breaker.OnStateChange = func(name string, from, to resilience.CircuitState) {
		observability.SetGatewayCircuitState(name, int(to))
		logger.Warn("IRIS circuit breaker state changed",
			ports.String("from", from.String()),
			ports.String("to", to.String()))
	}

	return &Adapter{
		config:     cfg,
		httpClient: httpClient,
		breaker:    resilience.NewCircuitBreaker(cfg.Breaker),
		logger:     logger,
		now:        time.Now,
	}
}

// Name implements ports.RechargeGateway
func (a *Adapter) Name() domain.Gateway {
	return domain.GatewayIRIS
}

// Submit implements ports.RechargeGateway
func (a *Adapter) Submit(ctx context.Context, req *ports.GatewayRequest) (*domain.GatewayOutcome, error) {
	txnID := a.TransactionID(req.RetailerCode)
	body := &RechargeRequest{
		credentials: a.credentials(req.RetailerMSISDN, req.SubscriberNo, txnID),
		Amount:      req.Amount.String(),
		PaymentType: fmt.Sprintf("%d", int(req.PaymentType.Normalize())),
	}

	var resp ResponseBody
	raw, err := a.makeRequest(ctx, pathRecharge, body, &resp)
	if err != nil {
		return nil, err
	}
	return a.outcome(resp.Response, txnID, raw), nil
}

// FetchOffers implements ports.OfferGateway. A reply without a response
// block yields a nil outcome.
func (a *Adapter) FetchOffers(ctx context.Context, req *ports.OfferCatalogRequest) (*ports.OfferCatalogResponse, error) {
	txnID := req.TransactionID
	if txnID == "" {
		txnID = a.TransactionID(req.RetailerCode)
	}
	body := &OfferRequest{
		credentials:    a.credentials(req.RetailerMSISDN, req.SubscriberNo, txnID),
		RechargeAmount: req.Amount.String(),
	}

	var resp ResponseBody
	raw, err := a.makeRequest(ctx, pathOffers, body, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Response == nil {
		return &ports.OfferCatalogResponse{}, nil
	}

	entries, err := decodeOffers(resp.Response.OffersList)
	if err != nil {
		a.logger.Error("failed to decode IRIS offers list",
			ports.String("transaction_id", txnID),
			ports.Err(err))
		return nil, gwerrors.NewGatewayError(string(domain.GatewayIRIS), "offers", gwerrors.CategoryDecode, err)
	}

	return &ports.OfferCatalogResponse{
		Outcome: a.outcome(resp.Response, txnID, raw),
		Entries: entries,
	}, nil
}

// TransactionID builds the request reference IRIS expects: the retailer code
// without its first character followed by .yyyyMMdd.HHmmss and microseconds.
func (a *Adapter) TransactionID(retailerCode string) string {
	now := a.now()
	prefix := retailerCode
	if len(prefix) > 0 {
		prefix = prefix[1:]
	}
	return fmt.Sprintf("%s%s%06d", prefix, now.Format(".20060102.150405"), now.Nanosecond()/1000)
}

// CircuitState exposes the breaker state for health reporting
func (a *Adapter) CircuitState() resilience.CircuitState {
	return a.breaker.State()
}

func (a *Adapter) credentials(retailerMSISDN, subscriberNo, txnID string) credentials {
	return credentials{
		Username:       a.config.Username,
		Password:       a.config.Password,
		RetailerMSISDN: localNumber(retailerMSISDN),
		SubscriberNo:   localNumber(subscriberNo),
		Channel:        a.config.Channel,
		GatewayCode:    a.config.GatewayCode,
		TransactionID:  txnID,
	}
}

func (a *Adapter) outcome(block *StatusBlock, txnID string, raw []byte) *domain.GatewayOutcome {
	if block == nil {
		return nil
	}
	id := strings.TrimSpace(block.TransactionID)
	if id == "" {
		id = txnID
	}
	return &domain.GatewayOutcome{
		Gateway:       domain.GatewayIRIS,
		StatusCode:    block.StatusCode.String(),
		Message:       strings.TrimSpace(block.StatusMessage),
		TransactionID: id,
		ReceivedAt:    a.now(),
		RawBody:       string(raw),
	}
}

// makeRequest posts a JSON envelope through the circuit breaker and decodes the reply
func (a *Adapter) makeRequest(ctx context.Context, path string, request interface{}, response interface{}) ([]byte, error) {
	op := path
	payload, err := encoding.EncodeJSON(&envelope{Request: request})
	if err != nil {
		return nil, gwerrors.NewGatewayError(string(domain.GatewayIRIS), op, gwerrors.CategoryEncode, err)
	}

	url := strings.TrimSuffix(a.config.BaseURL, "/") + "/" + path

	var raw []byte
	err = a.breaker.Call(func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return gwerrors.NewGatewayError(string(domain.GatewayIRIS), op, gwerrors.CategoryEncode, err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")

		a.logger.Info("making request to IRIS", ports.String("endpoint", path))

		start := a.now()
		httpResp, err := a.httpClient.Do(httpReq)
		if err != nil {
			a.logger.Error("IRIS request failed",
				ports.String("endpoint", path),
				ports.Duration("elapsed", time.Since(start)),
				ports.Err(err))
			return gwerrors.NewGatewayError(string(domain.GatewayIRIS), op, "", err)
		}
		defer httpResp.Body.Close()

		raw, err = io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
		if err != nil {
			return gwerrors.NewGatewayError(string(domain.GatewayIRIS), op, "", fmt.Errorf("failed to read response body: %w", err))
		}

		if httpResp.StatusCode >= 400 {
			gwErr := gwerrors.NewGatewayError(string(domain.GatewayIRIS), op, gwerrors.CategoryHTTPStatus,
				fmt.Errorf("unexpected status %s", httpResp.Status))
			gwErr.StatusCode = httpResp.StatusCode
			return gwErr
		}

		if len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, response); err != nil {
			return gwerrors.NewGatewayError(string(domain.GatewayIRIS), op, gwerrors.CategoryDecode,
				fmt.Errorf("failed to unmarshal response: %w", err))
		}

		a.logger.Info("received IRIS response",
			ports.String("endpoint", path),
			ports.Int("status", httpResp.StatusCode),
			ports.Duration("elapsed", time.Since(start)))
		return nil
	})

	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
			a.logger.Warn("IRIS circuit breaker rejected request",
				ports.String("endpoint", path),
				ports.String("circuit_state", a.breaker.State().String()))
			return nil, gwerrors.NewGatewayError(string(domain.GatewayIRIS), op, gwerrors.CategoryCircuitOpen, err)
		}
		return nil, err
	}
	return raw, nil
}

// localNumber drops the leading 0 of a local MSISDN; IRIS wants the number
// without it.
func localNumber(msisdn string) string {
	return strings.TrimPrefix(strings.TrimSpace(msisdn), "0")
}
