package offer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	wildcardRegex   = regexp.MustCompile(`star|\*`)
	strippedChars   = regexp.MustCompile(`[&#;$]`)
	separatorRegex  = regexp.MustCompile(`[_+,|]+`)
	currencyAmount  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:tk|taka|bdt)\b`)
	bareAmount      = regexp.MustCompile(`(?:^|\s)(\d+(?:\.\d+)?)(?:\s|$)`)
	validityRegex   = regexp.MustCompile(`(\d+)\s*(days|day|d|months|month|mon|hours|hour|hrs|hr|h)\b`)
	dataRegex       = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(gb|mb)\b`)
	perDayQualifier = regexp.MustCompile(`^\s*(?:/\s*day\b|/\s*d\b|per\s*day\b|perday\b|daily\b)`)
	streamingWord   = regexp.MustCompile(`^\s*(?:toffee|streaming|video|youtube)\b`)
	voiceRegex      = regexp.MustCompile(`(\d+)\s*(?:minutes|minute|mins|min)\b`)
	rateCutterRegex = regexp.MustCompile(`rate\s*-?\s*cutter|ratecutter|poisha|paisa`)
	smsRegex        = regexp.MustCompile(`(\d+)\s*sms\b`)
	commissionRegex = regexp.MustCompile(`(?:commission|comm)\s*[:\-]?\s*(?:tk|bdt)?\s*(\d+(?:\.\d+)?)`)
)

// ParseResult holds the independent extractions from one offer string.
// Every field degrades to zero when its token is missing.
type ParseResult struct {
	AmountText        string
	Amount            decimal.Decimal
	ValidityDays      int
	DataMB            int64
	PerDayDataMB      int64
	StreamingMB       int64
	VoiceMinutes      int
	RateCutter        bool
	SMSCount          int
	HasWildcardMarker bool
	Diagnostic        string
}

// Parser extracts offer attributes from lower-cased offer strings
type Parser struct {
	trimSuffixes []string
	diagLen      int
}

// NewParser creates a parser. trimSuffixes are removed from the end of the
// offer string before amount parsing; diagLen caps diagnostic text.
func NewParser(trimSuffixes []string, diagLen int) *Parser {
	if diagLen <= 0 {
		diagLen = 50
	}
	return &Parser{trimSuffixes: trimSuffixes, diagLen: diagLen}
}

// Parse runs every extraction on the offer string. It never fails.
func (p *Parser) Parse(offer string) ParseResult {
	var res ParseResult

	offer = strings.ToLower(strings.TrimSpace(offer))
	res.HasWildcardMarker = wildcardRegex.MatchString(offer)

	cleaned, diag := p.clean(offer)
	if diag != "" {
		res.Diagnostic = truncate(diag, p.diagLen)
		res.AmountText = res.Diagnostic
		res.Amount = decimal.Zero
	} else {
		res.AmountText = ParseAmount(cleaned)
		res.Amount = toDecimal(res.AmountText)
	}

	res.ValidityDays = ParseValidity(cleaned)
	data := ParseData(cleaned)
	res.DataMB, res.PerDayDataMB, res.StreamingMB = data.TotalMB, data.PerDayMB, data.StreamingMB
	res.VoiceMinutes, res.RateCutter = ParseVoice(cleaned)
	res.SMSCount = ParseSMS(cleaned)
	return res
}

// clean removes marker characters, the leading wildcard and a configured
// trailing suffix. Strings too short to strip yield a diagnostic.
func (p *Parser) clean(offer string) (string, string) {
	offer = strippedChars.ReplaceAllString(offer, "")
	if offer == "" {
		return offer, "offer text empty after removing markers"
	}
	offer = strings.TrimPrefix(offer, "*")
	for _, suffix := range p.trimSuffixes {
		if suffix == "" {
			continue
		}
		if len(offer) < len(suffix) {
			return offer, fmt.Sprintf("offer text %q too short to strip %q", offer, suffix)
		}
		if offer == suffix {
			return offer, fmt.Sprintf("offer text %q is only the suffix %q", offer, suffix)
		}
		if strings.HasSuffix(offer, suffix) {
			offer = offer[:len(offer)-len(suffix)]
			break
		}
	}
	offer = separatorRegex.ReplaceAllString(offer, " ")
	return strings.Join(strings.Fields(offer), " "), ""
}

// ParseAmount returns the price token: a currency-qualified number first,
// otherwise the first standalone number, otherwise "0".
func ParseAmount(offer string) string {
	if m := currencyAmount.FindStringSubmatch(offer); m != nil {
		return m[1]
	}
	if m := bareAmount.FindStringSubmatch(offer); m != nil {
		return m[1]
	}
	return "0"
}

// ParseValidity returns the validity in whole days
func ParseValidity(offer string) int {
	m := validityRegex.FindStringSubmatch(offer)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	switch m[2] {
	case "months", "month", "mon":
		return n * 30
	case "hours", "hour", "hrs", "hr", "h":
		return int(math.Ceil(float64(n) / 24))
	default:
		return n
	}
}

// DataAllowance splits data volumes by how they may be used
type DataAllowance struct {
	TotalMB     int64
	PerDayMB    int64
	StreamingMB int64
}

// ParseData reads every size token and files it as total, per-day or
// streaming allowance according to the qualifier that follows it.
func ParseData(offer string) DataAllowance {
	var out DataAllowance
	for _, loc := range dataRegex.FindAllStringSubmatchIndex(offer, -1) {
		mb := toMB(offer[loc[2]:loc[3]], offer[loc[4]:loc[5]])
		tail := offer[loc[1]:]
		switch {
		case perDayQualifier.MatchString(tail):
			if out.PerDayMB == 0 {
				out.PerDayMB = mb
			}
		case streamingWord.MatchString(tail):
			if out.StreamingMB == 0 {
				out.StreamingMB = mb
			}
		default:
			if out.TotalMB == 0 {
				out.TotalMB = mb
			}
		}
	}
	return out
}

// ParseVoice returns the minutes and whether the offer is a rate cutter
func ParseVoice(offer string) (int, bool) {
	isRateCutter := rateCutterRegex.MatchString(offer)
	m := voiceRegex.FindStringSubmatch(offer)
	if m == nil {
		return 0, isRateCutter
	}
	n, _ := strconv.Atoi(m[1])
	return n, isRateCutter
}

// ParseSMS returns the SMS count
func ParseSMS(offer string) int {
	m := smsRegex.FindStringSubmatch(offer)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// ParseCommission reads the commission figure from the full display name
func ParseCommission(displayName string) decimal.Decimal {
	m := commissionRegex.FindStringSubmatch(strings.ToLower(displayName))
	if m == nil {
		return decimal.Zero
	}
	return toDecimal(m[1])
}

func toMB(value, unit string) int64 {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0
	}
	if unit == "gb" {
		d = d.Mul(decimal.NewFromInt(1024))
	}
	return d.Round(0).IntPart()
}

func toDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
