package offer

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParser_Parse(t *testing.T) {
	p := NewParser([]string{"10"}, 50)

	tests := []struct {
		name         string
		offer        string
		wantAmount   string
		wantWildcard bool
		wantValidity int
		wantDataMB   int64
		wantPerDay   int64
		wantStream   int64
		wantVoice    int
		wantSMS      int
	}{
		{
			name:         "wildcard data offer",
			offer:        "*10gb star 30days 500tk",
			wantAmount:   "500",
			wantWildcard: true,
			wantValidity: 30,
			wantDataMB:   10240,
		},
		{
			name:       "trailing ten suffix",
			offer:      "39910",
			wantAmount: "399",
		},
		{
			name:         "underscore separated combo",
			offer:        "30days_5gb_100min_398",
			wantAmount:   "398",
			wantValidity: 30,
			wantDataMB:   5120,
			wantVoice:    100,
		},
		{
			name:         "per day data",
			offer:        "1gb/day 7days 149tk",
			wantAmount:   "149",
			wantValidity: 7,
			wantPerDay:   1024,
		},
		{
			name:         "streaming allowance",
			offer:        "2gb+3gb toffee 3days 99tk",
			wantAmount:   "99",
			wantValidity: 3,
			wantDataMB:   2048,
			wantStream:   3072,
		},
		{
			name:         "months and sms",
			offer:        "1month 50sms 20tk",
			wantAmount:   "20",
			wantValidity: 30,
			wantSMS:      50,
		},
		{
			name:         "hours round up",
			offer:        "500mb 36hrs 29tk",
			wantAmount:   "29",
			wantValidity: 2,
			wantDataMB:   500,
		},
		{
			name:         "marker characters removed",
			offer:        "$100min 7d 64tk#",
			wantAmount:   "64",
			wantValidity: 7,
			wantVoice:    100,
		},
		{
			name:       "no numbers",
			offer:      "unlimited",
			wantAmount: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.offer)
			assert.Equal(t, tt.wantAmount, got.AmountText)
			assert.True(t, decimal.RequireFromString(tt.wantAmount).Equal(got.Amount))
			assert.Equal(t, tt.wantWildcard, got.HasWildcardMarker)
			assert.Equal(t, tt.wantValidity, got.ValidityDays)
			assert.Equal(t, tt.wantDataMB, got.DataMB)
			assert.Equal(t, tt.wantPerDay, got.PerDayDataMB)
			assert.Equal(t, tt.wantStream, got.StreamingMB)
			assert.Equal(t, tt.wantVoice, got.VoiceMinutes)
			assert.Equal(t, tt.wantSMS, got.SMSCount)
			assert.Empty(t, got.Diagnostic)
		})
	}
}

func TestParser_WildcardNeverInAmount(t *testing.T) {
	p := NewParser([]string{"10"}, 50)

	for _, offer := range []string{"*500tk", "*99", "*1gb*30d*199tk"} {
		got := p.Parse(offer)
		assert.True(t, got.HasWildcardMarker, offer)
		assert.NotContains(t, got.AmountText, "*", offer)
	}
}

func TestParser_TotalOnDegenerateInput(t *testing.T) {
	p := NewParser([]string{"10"}, 20)

	for _, offer := range []string{"", "*", "a", "$&", "   ", strings.Repeat("x", 500)} {
		assert.NotPanics(t, func() {
			got := p.Parse(offer)
			assert.LessOrEqual(t, len(got.AmountText), 20)
		}, offer)
	}

	for _, offer := range []string{"", "*", "a", "*1", "*10", "10"} {
		got := p.Parse(offer)
		assert.NotEmpty(t, got.Diagnostic, offer)
		assert.True(t, got.Amount.IsZero(), offer)
		assert.Equal(t, got.Diagnostic, got.AmountText, offer)
	}

	got := p.Parse("*99")
	assert.Empty(t, got.Diagnostic)
	assert.Equal(t, "99", got.AmountText)
}

func TestParseVoice_RateCutter(t *testing.T) {
	minutes, rc := ParseVoice("rate cutter 30days 49tk")
	assert.Zero(t, minutes)
	assert.True(t, rc)

	minutes, rc = ParseVoice("300mins 30days")
	assert.Equal(t, 300, minutes)
	assert.False(t, rc)
}

func TestParseCommission(t *testing.T) {
	tests := []struct {
		display string
		want    string
	}{
		{"10gb_30days_500tk comm 12.5", "12.5"},
		{"100min_7d_64tk Commission: 3", "3"},
		{"1gb_7d_99tk comm: tk 4", "4"},
		{"1gb_7d_99tk", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			assert.True(t, decimal.RequireFromString(tt.want).Equal(ParseCommission(tt.display)))
		})
	}
}
