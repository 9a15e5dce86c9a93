package domain

import "github.com/shopspring/decimal"

// RawOfferEntry is one item of a gateway offer catalog response, as received
type RawOfferEntry struct {
	SequenceNo     int
	OfferID        string
	OfferName      string
	DisplayName    string
	CommissionText string
	AmountText     string
}

// OfferClass is the single classification tag for an offer
type OfferClass string

const (
	OfferClassData         OfferClass = "Data"
	OfferClassVoice        OfferClass = "Voice"
	OfferClassSMS          OfferClass = "SMS"
	OfferClassRateCutter   OfferClass = "RateCutter"
	OfferClassUnclassified OfferClass = ""
)

// NormalizedOffer is the canonical offer derived from a RawOfferEntry.
// Each Has*Pack flag is true iff the matching numeric field is non-zero,
// except HasRateCutterPack which follows keyword detection.
type NormalizedOffer struct {
	SequenceNo    int             `json:"sequence_no"`
	OfferID       string          `json:"offer_id"`
	Description   string          `json:"description"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Commission    decimal.Decimal `json:"commission"`

	ValidityDays int   `json:"validity_days"`
	DataMB       int64 `json:"data_mb"`
	PerDayDataMB int64 `json:"per_day_data_mb"`
	StreamingMB  int64 `json:"streaming_mb"`
	VoiceMinutes int   `json:"voice_minutes"`
	SMSCount     int   `json:"sms_count"`

	Class             OfferClass `json:"class"`
	OfferTypeLabel    string     `json:"offer_type"`
	HasWildcardMarker bool       `json:"has_wildcard_marker"`

	HasDataPack       bool `json:"has_data_pack"`
	HasPerDayDataPack bool `json:"has_per_day_data_pack"`
	HasStreamingPack  bool `json:"has_streaming_pack"`
	HasVoicePack      bool `json:"has_voice_pack"`
	HasSMSPack        bool `json:"has_sms_pack"`
	HasRateCutterPack bool `json:"has_rate_cutter_pack"`

	// Diagnostic is set when the offer text could not be cleaned up and the
	// amount degraded to zero.
	Diagnostic string `json:"diagnostic,omitempty"`
}

// IsCombo reports whether more than one pack kind is present
func (o *NormalizedOffer) IsCombo() bool {
	n := 0
	for _, has := range []bool{
		o.HasDataPack || o.HasPerDayDataPack || o.HasStreamingPack,
		o.HasVoicePack,
		o.HasSMSPack,
	} {
		if has {
			n++
		}
	}
	return n > 1
}

// OfferBatch is the normalized result of one catalog request
type OfferBatch struct {
	TransactionID string             `json:"transaction_id"`
	StatusMessage string             `json:"status_message,omitempty"`
	PackStatus    bool               `json:"pack_status"`
	Offers        []*NormalizedOffer `json:"offers"`
	Dropped       int                `json:"dropped"`
}
