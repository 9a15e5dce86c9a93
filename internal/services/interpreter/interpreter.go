// Package interpreter turns free-text gateway replies into structured,
// user-safe results.
package interpreter

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kevin07696/recharge-service/internal/config"
	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/kevin07696/recharge-service/pkg/timeutil"
	"github.com/shopspring/decimal"
)

var (
	txnAnchors   = []string{"txn number", "transaction id"}
	innerAnchor  = "transaction id"
	balanceRegex = regexp.MustCompile(`(?i)\bbal(?:ance)?\b\D*?([0-9][0-9,]*(?:\.[0-9]+)?)`)
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Interpretation is the classified result of one gateway outcome
type Interpretation struct {
	Success       bool
	Message       string
	TransactionID string
	// Note carries a diagnostic when the transaction id could not be extracted
	Note string
}

// Interpreter classifies outcomes and normalizes provider text
type Interpreter struct {
	successCodes  map[domain.Gateway]string
	rules         []rule
	redact        *regexp.Regexp
	fullRedaction bool
	noResponse    string
	generic       string
}

// New compiles the message rules and checks that normalization is idempotent:
// no pattern may match a replacement, the no-response message or the generic
// message, and none of those may change under redaction.
func New(cfg config.RechargeConfig, successCodes map[domain.Gateway]string) (*Interpreter, error) {
	if strings.TrimSpace(cfg.NoResponseMessage) == "" {
		return nil, fmt.Errorf("no-response message is required")
	}
	if strings.TrimSpace(cfg.GenericFailureMessage) == "" {
		return nil, fmt.Errorf("generic failure message is required")
	}
	if cfg.RedactMinDigits < 1 {
		return nil, fmt.Errorf("redact min digits must be positive, got %d", cfg.RedactMinDigits)
	}

	in := &Interpreter{
		successCodes:  make(map[domain.Gateway]string, len(successCodes)),
		redact:        regexp.MustCompile(fmt.Sprintf(`\d{%d,}`, cfg.RedactMinDigits)),
		fullRedaction: cfg.FullRedaction,
		noResponse:    cfg.NoResponseMessage,
		generic:       cfg.GenericFailureMessage,
	}
	for gw, code := range successCodes {
		in.successCodes[gw] = strings.TrimSpace(code)
	}

	for i, r := range cfg.MessageRules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("message rule %d: %w", i, err)
		}
		in.rules = append(in.rules, rule{pattern: re, replacement: r.Replacement})
	}

	fixed := []string{in.noResponse, in.generic}
	for _, r := range in.rules {
		fixed = append(fixed, r.replacement)
	}
	for _, text := range fixed {
		if in.mask(text) != text {
			return nil, fmt.Errorf("message %q changes under redaction", text)
		}
		for i, r := range in.rules {
			if r.pattern.MatchString(text) {
				return nil, fmt.Errorf("message rule %d (%s) matches normalized text %q", i, r.pattern, text)
			}
		}
	}
	return in, nil
}

// IsSuccess reports whether the status code equals the gateway's success code
func (in *Interpreter) IsSuccess(outcome *domain.GatewayOutcome) bool {
	if outcome == nil {
		return false
	}
	code, ok := in.successCodes[outcome.Gateway]
	if !ok {
		return false
	}
	return strings.TrimSpace(outcome.StatusCode) == code
}

// NormalizeMessage converts provider text into a message safe for retailers
func (in *Interpreter) NormalizeMessage(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return in.noResponse
	}
	redacted := in.mask(raw)
	for _, r := range in.rules {
		if r.pattern.MatchString(redacted) {
			return r.replacement
		}
	}
	if in.fullRedaction {
		return in.generic
	}
	return redacted
}

// NoResponseMessage is returned when the gateway produced nothing usable
func (in *Interpreter) NoResponseMessage() string {
	return in.noResponse
}

// Interpret classifies an outcome; a nil outcome counts as no response
func (in *Interpreter) Interpret(outcome *domain.GatewayOutcome) Interpretation {
	if outcome == nil {
		return Interpretation{Message: in.noResponse}
	}
	if !in.IsSuccess(outcome) {
		return Interpretation{Message: in.NormalizeMessage(outcome.Message)}
	}
	// Rewrite rules describe declines; a success only has numbers masked.
	result := Interpretation{
		Success: true,
		Message: in.mask(strings.TrimSpace(outcome.Message)),
	}
	result.TransactionID, result.Note = ExtractTransactionID(outcome.Message)
	if result.TransactionID == "" && outcome.TransactionID != "" {
		result.TransactionID = strings.ToUpper(strings.TrimSpace(outcome.TransactionID))
	}
	return result
}

func (in *Interpreter) mask(s string) string {
	return in.redact.ReplaceAllStringFunc(s, func(m string) string {
		return strings.Repeat("*", len(m))
	})
}

// ExtractTransactionID pulls the provider transaction number out of a success
// message. It never fails: when nothing is found the id is empty and the note
// says why.
func ExtractTransactionID(message string) (string, string) {
	lower := strings.ToLower(message)
	if strings.TrimSpace(lower) == "" {
		return "", "empty message"
	}

	var segment, anchor string
	for _, seg := range strings.Split(lower, ",") {
		for _, a := range txnAnchors {
			if strings.Contains(seg, a) {
				segment, anchor = seg, a
				break
			}
		}
		if segment != "" {
			break
		}
	}
	if segment == "" {
		return "", fmt.Sprintf("no transaction anchor in %q", truncate(lower, 80))
	}

	rest := segment[strings.Index(segment, anchor)+len(anchor):]
	if i := strings.Index(rest, innerAnchor); i >= 0 {
		rest = rest[i+len(innerAnchor):]
	}
	rest = strings.TrimLeft(rest, " \t:#-")
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", fmt.Sprintf("anchor %q without value", anchor)
	}
	id := strings.TrimRight(fields[0], ".")
	if id == "" {
		return "", fmt.Sprintf("anchor %q without value", anchor)
	}
	return strings.ToUpper(id), ""
}

// ParseBalance reads the balance figure from a gateway message
func ParseBalance(message string) (decimal.Decimal, error) {
	m := balanceRegex.FindStringSubmatch(message)
	if m == nil {
		return decimal.Zero, fmt.Errorf("%w: no balance figure", domain.ErrInvalidGatewayResponse)
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", m[1], err)
	}
	return amount, nil
}

// ParseTimestamp parses a provider timestamp and returns it together with its
// display form
func ParseTimestamp(text string) (time.Time, string, error) {
	t, err := timeutil.ParseProviderTime(text)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("parse provider time %q: %w", text, err)
	}
	return t, timeutil.FormatDisplay(t), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
