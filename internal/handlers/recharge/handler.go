// Package recharge exposes the recharge, offer catalog and balance services
// as JSON over HTTP.
package recharge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kevin07696/recharge-service/internal/domain"
	serviceports "github.com/kevin07696/recharge-service/internal/services/ports"
	"github.com/kevin07696/recharge-service/pkg/encoding"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// Handler serves the retailer-facing recharge API
type Handler struct {
	recharge serviceports.RechargeService
	offers   serviceports.OfferCatalogService
	balances serviceports.BalanceService
	logger   *zap.Logger
}

// NewHandler creates a new recharge handler
func NewHandler(
	recharge serviceports.RechargeService,
	offers serviceports.OfferCatalogService,
	balances serviceports.BalanceService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		recharge: recharge,
		offers:   offers,
		balances: balances,
		logger:   logger,
	}
}

// RegisterRoutes mounts the API on mux. compress wraps the offer catalog
// route; pass nil to leave it uncompressed.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, compress func(http.Handler) http.Handler) {
	offers := http.Handler(http.HandlerFunc(h.FetchOffers))
	if compress != nil {
		offers = compress(offers)
	}
	mux.HandleFunc("POST /api/v1/recharge", h.Recharge)
	mux.Handle("POST /api/v1/offers", offers)
	mux.HandleFunc("POST /api/v1/balance/refresh", h.RefreshBalance)
	mux.HandleFunc("GET /api/v1/balance", h.GetBalance)
}

type rechargeRequest struct {
	RetailerCode   string          `json:"retailer_code"`
	RetailerMSISDN string          `json:"retailer_msisdn"`
	SubscriberNo   string          `json:"subscriber_no"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentType    int             `json:"payment_type"`
	Gateway        string          `json:"gateway"`
	PIN            string          `json:"pin"`
	LoginProvider  string          `json:"login_provider"`
}

type offerRequest struct {
	RetailerCode   string          `json:"retailer_code"`
	RetailerMSISDN string          `json:"retailer_msisdn"`
	SubscriberNo   string          `json:"subscriber_no"`
	Amount         decimal.Decimal `json:"amount"`
}

type balanceRefreshRequest struct {
	RetailerCode   string `json:"retailer_code"`
	RetailerMSISDN string `json:"retailer_msisdn"`
	PIN            string `json:"pin"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    domain.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// Recharge handles POST /api/v1/recharge. A declined or failed recharge is
// still a 200; the body's success flag carries the outcome.
func (h *Handler) Recharge(w http.ResponseWriter, r *http.Request) {
	var req rechargeRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.recharge.Recharge(r.Context(), &domain.RechargeRequest{
		RetailerCode:   strings.TrimSpace(req.RetailerCode),
		RetailerMSISDN: strings.TrimSpace(req.RetailerMSISDN),
		SubscriberNo:   strings.TrimSpace(req.SubscriberNo),
		Amount:         req.Amount,
		PaymentType:    domain.PaymentType(req.PaymentType),
		Gateway:        domain.Gateway(strings.ToUpper(strings.TrimSpace(req.Gateway))),
		PIN:            req.PIN,
		LoginProvider:  req.LoginProvider,
		UserAgent:      r.UserAgent(),
	})
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, http.StatusOK, result)
}

// FetchOffers handles POST /api/v1/offers
func (h *Handler) FetchOffers(w http.ResponseWriter, r *http.Request) {
	var req offerRequest
	if !h.decode(w, r, &req) {
		return
	}

	batch, err := h.offers.FetchOffers(r.Context(), &serviceports.OfferRequest{
		RetailerCode:   strings.TrimSpace(req.RetailerCode),
		RetailerMSISDN: strings.TrimSpace(req.RetailerMSISDN),
		SubscriberNo:   strings.TrimSpace(req.SubscriberNo),
		Amount:         req.Amount,
	})
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, http.StatusOK, batch)
}

// RefreshBalance handles POST /api/v1/balance/refresh
func (h *Handler) RefreshBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRefreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.balances.RefreshBalance(r.Context(), &serviceports.BalanceRequest{
		RetailerCode:   strings.TrimSpace(req.RetailerCode),
		RetailerMSISDN: strings.TrimSpace(req.RetailerMSISDN),
		PIN:            req.PIN,
	})
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, http.StatusOK, result)
}

// GetBalance handles GET /api/v1/balance?retailer_code=...
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("retailer_code"))

	snapshot, err := h.balances.GetBalance(r.Context(), code)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, http.StatusOK, snapshot)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "request body must be a JSON object"
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			msg = "request body too large"
		case errors.Is(err, io.EOF):
			msg = "request body is empty"
		default:
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				msg = fmt.Sprintf("field %s has the wrong type", typeErr.Field)
			}
		}
		h.logger.Debug("rejecting request body",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(h.logger, w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    domain.ErrorCodeValidationFailed,
			Message: msg,
		}})
		return false
	}
	return true
}

func writeError(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := domain.GetErrorCode(err)
	message := "internal server error"

	var de *domain.DomainError
	if errors.As(err, &de) && status < http.StatusInternalServerError {
		message = de.Message
	}
	if code == "" {
		code = domain.ErrorCodeInternalError
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(logger, w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func statusFor(err error) int {
	switch {
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	case domain.IsDomainError(err, domain.ErrorCodeBalanceNotFound):
		return http.StatusNotFound
	case domain.IsGatewayError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := encoding.WriteJSON(w, v); err != nil {
		logger.Warn("failed to write response", zap.Error(err))
	}
}
