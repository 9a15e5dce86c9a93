package recharge

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kevin07696/recharge-service/internal/domain"
	serviceports "github.com/kevin07696/recharge-service/internal/services/ports"
	"github.com/kevin07696/recharge-service/internal/testutil/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	recharge *mocks.MockRechargeService
	offers   *mocks.MockOfferCatalogService
	balances *mocks.MockBalanceService
	mux      *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		recharge: new(mocks.MockRechargeService),
		offers:   new(mocks.MockOfferCatalogService),
		balances: new(mocks.MockBalanceService),
		mux:      http.NewServeMux(),
	}
	NewHandler(f.recharge, f.offers, f.balances, zaptest.NewLogger(t)).RegisterRoutes(f.mux, nil)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("User-Agent", "retail-app/4.2")
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestRecharge_Success(t *testing.T) {
	f := newFixture(t)
	f.recharge.On("Recharge", mock.Anything, mock.MatchedBy(func(req *domain.RechargeRequest) bool {
		return req.RetailerCode == "R01001" &&
			req.SubscriberNo == "8801911000000" &&
			req.Amount.Equal(decimal.RequireFromString("50")) &&
			req.Gateway == domain.GatewayEV &&
			req.PaymentType == domain.PaymentTypePostpaid &&
			req.UserAgent == "retail-app/4.2"
	})).Return(&domain.RechargeResult{Success: true, Message: "Recharge successful", TransactionID: "R240305.1407.210001"}, nil)

	rec := f.do(http.MethodPost, "/api/v1/recharge",
		`{"retailer_code":" R01001 ","subscriber_no":"8801911000000","amount":"50","payment_type":2,"gateway":"ev","pin":"1234"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got domain.RechargeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, "R240305.1407.210001", got.TransactionID)
	f.recharge.AssertExpectations(t)
}

func TestRecharge_DeclineIsStill200(t *testing.T) {
	f := newFixture(t)
	f.recharge.On("Recharge", mock.Anything, mock.Anything).
		Return(&domain.RechargeResult{Success: false, Message: "The PIN you entered is not correct."}, nil)

	rec := f.do(http.MethodPost, "/api/v1/recharge", `{"retailer_code":"R01001","subscriber_no":"8801911000000","amount":50,"gateway":"IRIS"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestRecharge_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   domain.ErrorCode
		wantMsg    string
	}{
		{
			name:       "validation",
			err:        domain.NewDomainError(domain.ErrorCodeValidationAmountInvalid, "amount must be positive"),
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.ErrorCodeValidationAmountInvalid,
			wantMsg:    "amount must be positive",
		},
		{
			name:       "gateway",
			err:        domain.NewDomainError(domain.ErrorCodeGatewayUnavailable, "recharge gateway unavailable"),
			wantStatus: http.StatusBadGateway,
			wantCode:   domain.ErrorCodeGatewayUnavailable,
			wantMsg:    "internal server error",
		},
		{
			name:       "plain error hides detail",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   domain.ErrorCodeInternalError,
			wantMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.recharge.On("Recharge", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := f.do(http.MethodPost, "/api/v1/recharge", `{"retailer_code":"R01001"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			detail := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, detail.Code)
			assert.Equal(t, tt.wantMsg, detail.Message)
		})
	}
}

func TestRecharge_BadBodies(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"empty", "", "request body is empty"},
		{"not json", "retailer_code=R01001", "request body must be a JSON object"},
		{"wrong type", `{"payment_type":"two"}`, "field payment_type has the wrong type"},
		{"too large", `{"pin":"` + strings.Repeat("9", maxBodyBytes) + `"}`, "request body too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(http.MethodPost, "/api/v1/recharge", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, decodeError(t, rec).Message)
			f.recharge.AssertNotCalled(t, "Recharge", mock.Anything, mock.Anything)
		})
	}
}

func TestRecharge_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/recharge", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestFetchOffers(t *testing.T) {
	f := newFixture(t)
	f.offers.On("FetchOffers", mock.Anything, &serviceports.OfferRequest{
		RetailerCode:   "R01001",
		RetailerMSISDN: "01811000000",
		SubscriberNo:   "01911000000",
		Amount:         decimal.RequireFromString("149"),
	}).Return(&domain.OfferBatch{
		TransactionID: "01001.20240305.140709123456",
		PackStatus:    true,
		Offers: []*domain.NormalizedOffer{{
			OfferID:     "OF-1",
			Description: "2GB 7 Days",
			Amount:      decimal.RequireFromString("149"),
			DataMB:      2048,
			Class:       domain.OfferClassData,
		}},
	}, nil)

	rec := f.do(http.MethodPost, "/api/v1/offers",
		`{"retailer_code":"R01001","retailer_msisdn":"01811000000","subscriber_no":"01911000000","amount":149}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var batch domain.OfferBatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	require.Len(t, batch.Offers, 1)
	assert.Equal(t, int64(2048), batch.Offers[0].DataMB)
	assert.Equal(t, domain.OfferClassData, batch.Offers[0].Class)
	assert.True(t, batch.PackStatus)
}

func TestRefreshBalance(t *testing.T) {
	f := newFixture(t)
	f.balances.On("RefreshBalance", mock.Anything, &serviceports.BalanceRequest{RetailerCode: "R01001", PIN: "1234"}).
		Return(&serviceports.BalanceResult{Success: true, Message: "Balance 2,450.75"}, nil)

	rec := f.do(http.MethodPost, "/api/v1/balance/refresh", `{"retailer_code":"R01001","pin":"1234"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestGetBalance(t *testing.T) {
	f := newFixture(t)
	f.balances.On("GetBalance", mock.Anything, "R01001").Return(&domain.BalanceSnapshot{
		RetailerCode: "R01001",
		Balance:      decimal.RequireFromString("2450.75"),
		DisplayTime:  "02:07:09 PM, 05 Mar 2024",
		ProviderTime: time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC),
	}, nil)
	f.balances.On("GetBalance", mock.Anything, "R404").
		Return(nil, domain.WrapError(domain.ErrorCodeBalanceNotFound, "no balance recorded for retailer", domain.ErrSnapshotNotFound))

	rec := f.do(http.MethodGet, "/api/v1/balance?retailer_code=R01001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap domain.BalanceSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.True(t, decimal.RequireFromString("2450.75").Equal(snap.Balance))
	assert.Equal(t, "02:07:09 PM, 05 Mar 2024", snap.DisplayTime)

	missing := f.do(http.MethodGet, "/api/v1/balance?retailer_code=R404", "")
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, domain.ErrorCodeBalanceNotFound, decodeError(t, missing).Code)
}

type stubTraces struct {
	records []domain.TraceRecord
	limit   int
	err     error
}

func (s *stubTraces) List(limit int) ([]domain.TraceRecord, error) {
	s.limit = limit
	return s.records, s.err
}

func (s *stubTraces) ListByAttempt(attemptID string) ([]domain.TraceRecord, error) {
	var out []domain.TraceRecord
	for _, r := range s.records {
		if r.AttemptID == attemptID {
			out = append(out, r)
		}
	}
	return out, s.err
}

func TestListTraces(t *testing.T) {
	traces := &stubTraces{records: []domain.TraceRecord{
		{ID: "01HQ1", AttemptID: "a-1", Entries: []string{"log: insert failed"}},
		{ID: "01HQ2", AttemptID: "a-2"},
	}}
	mux := http.NewServeMux()
	NewTraceHandler(traces, zaptest.NewLogger(t)).RegisterRoutes(mux)

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	rec := get("/traces")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, traces.limit)

	rec = get("/traces?attempt_id=a-1")
	var got []domain.TraceRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, []string{"log: insert failed"}, got[0].Entries)

	assert.Equal(t, http.StatusBadRequest, get("/traces?limit=0").Code)

	traces.err = errors.New("bolt: database not open")
	assert.Equal(t, http.StatusInternalServerError, get("/traces?limit=5").Code)
}
