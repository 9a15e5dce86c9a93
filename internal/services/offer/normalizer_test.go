package offer

import (
	"testing"

	"github.com/kevin07696/recharge-service/internal/config"
	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(config.DefaultRechargeConfig())

	entries := []domain.RawOfferEntry{
		{SequenceNo: 1, OfferID: "P1", OfferName: "Pop Up Banner", DisplayName: "Get 20% bonus on every pack", CommissionText: "0", AmountText: "0"},
		{SequenceNo: 2, OfferID: "D1", OfferName: "Data", DisplayName: "10gb_30days_500tk comm 12", CommissionText: "12", AmountText: "500"},
		{SequenceNo: 3, OfferID: "X1", OfferName: "Blank", DisplayName: "   ", CommissionText: "1", AmountText: "10"},
		{SequenceNo: 4, OfferID: "X2", OfferName: "Words", DisplayName: "Special surprise pack", CommissionText: "1", AmountText: "10"},
		{SequenceNo: 5, OfferID: "V1", OfferName: "Voice", DisplayName: "100min_7d_64tk comm 3", CommissionText: "3", AmountText: "64"},
		{SequenceNo: 6, OfferID: "S1", OfferName: "SMS", DisplayName: "50sms_7d_20tk", CommissionText: "1", AmountText: "20"},
	}

	batch := n.Normalize(entries, "TXN-1")

	assert.True(t, batch.PackStatus)
	assert.Equal(t, "Get 20% bonus on every pack", batch.StatusMessage)
	assert.Equal(t, "TXN-1", batch.TransactionID)
	assert.Equal(t, 2, batch.Dropped)
	require.Len(t, batch.Offers, 3)

	data := batch.Offers[0]
	assert.Equal(t, "D1", data.OfferID)
	assert.Equal(t, domain.OfferClassData, data.Class)
	assert.Equal(t, "IRIS Data", data.OfferTypeLabel)
	assert.True(t, decimal.NewFromInt(500).Equal(data.Amount))
	assert.True(t, decimal.NewFromInt(12).Equal(data.Commission))
	assert.Equal(t, int64(10240), data.DataMB)
	assert.Equal(t, 30, data.ValidityDays)
	assert.Equal(t, "TXN-1", data.TransactionID)

	voice := batch.Offers[1]
	assert.Equal(t, domain.OfferClassVoice, voice.Class)
	assert.Equal(t, 100, voice.VoiceMinutes)

	sms := batch.Offers[2]
	assert.Equal(t, domain.OfferClassSMS, sms.Class)
	assert.Equal(t, 50, sms.SMSCount)
}

func TestNormalizer_DropsDigitlessNames(t *testing.T) {
	n := NewNormalizer(config.DefaultRechargeConfig())

	names := []string{"", " ", "\t", "Unlimited talk", "Best value bundle", "৫ জিবি"}
	var entries []domain.RawOfferEntry
	for i, name := range names {
		entries = append(entries, domain.RawOfferEntry{SequenceNo: i, OfferID: name, DisplayName: name, CommissionText: "1", AmountText: "1"})
	}

	batch := n.Normalize(entries, "TXN")
	for _, o := range batch.Offers {
		assert.NotEqual(t, "Unlimited talk", o.Description)
		assert.NotEqual(t, "Best value bundle", o.Description)
	}
	assert.False(t, batch.PackStatus)
}

func TestNormalizer_PackStatusNeedsZeroAmounts(t *testing.T) {
	n := NewNormalizer(config.DefaultRechargeConfig())

	batch := n.Normalize([]domain.RawOfferEntry{
		{OfferName: "pop up 5gb", DisplayName: "5gb_7d_99tk", CommissionText: "2", AmountText: "99"},
	}, "TXN")

	assert.False(t, batch.PackStatus)
	assert.Len(t, batch.Offers, 1)
}

func TestNormalizer_FlagsMatchFields(t *testing.T) {
	n := NewNormalizer(config.DefaultRechargeConfig())

	names := []string{
		"10gb_30days_500tk",
		"1gb/day_7days_149tk",
		"2gb+3gb toffee_3days_99tk",
		"30days_5gb_100min_50sms_398",
		"rate cutter 30days 49tk",
		"*10gb star 30days 500tk",
		"99",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			o := n.NormalizeEntry(domain.RawOfferEntry{DisplayName: name}, "TXN")
			assert.Equal(t, o.DataMB != 0, o.HasDataPack)
			assert.Equal(t, o.PerDayDataMB != 0, o.HasPerDayDataPack)
			assert.Equal(t, o.StreamingMB != 0, o.HasStreamingPack)
			assert.Equal(t, o.VoiceMinutes != 0, o.HasVoicePack)
			assert.Equal(t, o.SMSCount != 0, o.HasSMSPack)
		})
	}
}

func TestNormalizer_SplitRules(t *testing.T) {
	cfg := config.DefaultRechargeConfig()
	cfg.SplitRules = []config.SplitRule{{Keyword: "bundle", Fields: 1}}
	n := NewNormalizer(cfg)

	// One field keeps the whole name, so the amount comes from the last token
	o := n.NormalizeEntry(domain.RawOfferEntry{DisplayName: "bundle 5gb 30days 299tk"}, "TXN")
	assert.True(t, decimal.NewFromInt(299).Equal(o.Amount))
	assert.Equal(t, int64(5120), o.DataMB)

	// Default split keeps only the first field
	o = n.NormalizeEntry(domain.RawOfferEntry{DisplayName: "5gb 30days 299tk"}, "TXN")
	assert.True(t, o.Amount.IsZero())
	assert.Equal(t, int64(5120), o.DataMB)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		offer domain.NormalizedOffer
		want  domain.OfferClass
	}{
		{"data wins over voice", domain.NormalizedOffer{HasDataPack: true, HasVoicePack: true}, domain.OfferClassData},
		{"streaming counts as data", domain.NormalizedOffer{HasStreamingPack: true, HasSMSPack: true}, domain.OfferClassData},
		{"voice wins over sms", domain.NormalizedOffer{HasVoicePack: true, HasSMSPack: true}, domain.OfferClassVoice},
		{"sms", domain.NormalizedOffer{HasSMSPack: true, HasRateCutterPack: true}, domain.OfferClassSMS},
		{"rate cutter", domain.NormalizedOffer{HasRateCutterPack: true}, domain.OfferClassRateCutter},
		{"unclassified", domain.NormalizedOffer{}, domain.OfferClassUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(&tt.offer))
		})
	}
}
