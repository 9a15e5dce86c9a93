package iris

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kevin07696/recharge-service/internal/domain"
)

// envelope wraps every IRIS request body
type envelope struct {
	Request interface{} `json:"request"`
}

type credentials struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	RetailerMSISDN string `json:"retailerMsisdn"`
	SubscriberNo   string `json:"subscriberMsisdn"`
	Channel        string `json:"channel"`
	GatewayCode    string `json:"gatewayCode"`
	TransactionID  string `json:"transactionID"`
}

// RechargeRequest is the continueRecharge body
type RechargeRequest struct {
	credentials
	Amount      string `json:"amount"`
	PaymentType string `json:"paymentType"`
}

// OfferRequest is the getDigitalOffer body
type OfferRequest struct {
	credentials
	RechargeAmount string `json:"rechargeAmount"`
}

// ResponseBody is the common reply shape. OffersList arrives either as a JSON
// array or as a string holding one.
type ResponseBody struct {
	Response *StatusBlock `json:"response"`
}

// StatusBlock carries the IRIS status and, for catalog calls, the offers
type StatusBlock struct {
	StatusCode    flexString      `json:"statusCode"`
	StatusMessage string          `json:"statusMessage"`
	TransactionID string          `json:"transactionID"`
	OffersList    json.RawMessage `json:"offersList,omitempty"`
}

// OfferItem is one entry of the offers list
type OfferItem struct {
	SNo              flexString `json:"sno"`
	OfferID          flexString `json:"offerID"`
	OfferName        string     `json:"offerName"`
	OfferDisplayName string     `json:"offerDisplayName"`
	OfferCommission  flexString `json:"offerCommission"`
	RechargeAmount   flexString `json:"rechargeAmount"`
}

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string {
	return strings.TrimSpace(string(f))
}

// decodeOffers unpacks the offers list, unwrapping the string-encoded form
func decodeOffers(raw json.RawMessage) ([]domain.RawOfferEntry, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("failed to unquote offers list: %w", err)
		}
		inner = strings.TrimSpace(inner)
		if inner == "" {
			return nil, nil
		}
		raw = json.RawMessage(inner)
	}

	var items []OfferItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode offers list: %w", err)
	}

	entries := make([]domain.RawOfferEntry, 0, len(items))
	for _, item := range items {
		seq, _ := strconv.Atoi(item.SNo.String())
		entries = append(entries, domain.RawOfferEntry{
			SequenceNo:     seq,
			OfferID:        item.OfferID.String(),
			OfferName:      item.OfferName,
			DisplayName:    item.OfferDisplayName,
			CommissionText: item.OfferCommission.String(),
			AmountText:     item.RechargeAmount.String(),
		})
	}
	return entries, nil
}
