package offer

import (
	"strings"
	"unicode"

	"github.com/kevin07696/recharge-service/internal/config"
	"github.com/kevin07696/recharge-service/internal/domain"
)

const offerTypePrefix = "IRIS"

// Normalizer filters raw catalog entries and builds canonical offers
type Normalizer struct {
	parser        *Parser
	promoKeyword  string
	splitRules    []config.SplitRule
	defaultFields int
}

// NewNormalizer creates a normalizer from the recharge configuration
func NewNormalizer(cfg config.RechargeConfig) *Normalizer {
	fields := cfg.DefaultSplitFields
	if fields < 1 {
		fields = 1
	}
	return &Normalizer{
		parser:        NewParser(cfg.AmountTrimSuffixes, cfg.DiagnosticTruncateLength),
		promoKeyword:  strings.ToLower(cfg.PromoKeyword),
		splitRules:    cfg.SplitRules,
		defaultFields: fields,
	}
}

// Normalize applies the filters in order: promotional pack-status marker,
// blank display name, display name without digits. Survivors are parsed and
// classified, keeping their catalog order.
func (n *Normalizer) Normalize(entries []domain.RawOfferEntry, transactionID string) *domain.OfferBatch {
	batch := &domain.OfferBatch{
		TransactionID: transactionID,
		Offers:        make([]*domain.NormalizedOffer, 0, len(entries)),
	}

	for _, e := range entries {
		switch {
		case n.isPackStatus(e):
			batch.PackStatus = true
			batch.StatusMessage = e.DisplayName
			continue
		case strings.TrimSpace(e.DisplayName) == "":
			batch.Dropped++
			continue
		case !strings.ContainsFunc(e.DisplayName, unicode.IsDigit):
			batch.Dropped++
			continue
		}
		batch.Offers = append(batch.Offers, n.NormalizeEntry(e, transactionID))
	}
	return batch
}

// NormalizeEntry parses one entry into a NormalizedOffer
func (n *Normalizer) NormalizeEntry(e domain.RawOfferEntry, transactionID string) *domain.NormalizedOffer {
	displayName := strings.ToLower(e.DisplayName)
	res := n.parser.Parse(n.offerText(displayName))

	o := &domain.NormalizedOffer{
		SequenceNo:        e.SequenceNo,
		OfferID:           e.OfferID,
		Description:       e.DisplayName,
		TransactionID:     transactionID,
		Amount:            res.Amount,
		Commission:        ParseCommission(displayName),
		ValidityDays:      res.ValidityDays,
		DataMB:            res.DataMB,
		PerDayDataMB:      res.PerDayDataMB,
		StreamingMB:       res.StreamingMB,
		VoiceMinutes:      res.VoiceMinutes,
		SMSCount:          res.SMSCount,
		HasWildcardMarker: res.HasWildcardMarker,
		HasDataPack:       res.DataMB != 0,
		HasPerDayDataPack: res.PerDayDataMB != 0,
		HasStreamingPack:  res.StreamingMB != 0,
		HasVoicePack:      res.VoiceMinutes != 0,
		HasSMSPack:        res.SMSCount != 0,
		HasRateCutterPack: res.RateCutter,
		Diagnostic:        res.Diagnostic,
	}
	o.Class = Classify(o)
	o.OfferTypeLabel = strings.TrimSpace(offerTypePrefix + " " + string(o.Class))
	return o
}

// Classify picks the single class tag, first match wins:
// data > voice > SMS > rate cutter > unclassified
func Classify(o *domain.NormalizedOffer) domain.OfferClass {
	switch {
	case o.HasDataPack || o.HasPerDayDataPack || o.HasStreamingPack:
		return domain.OfferClassData
	case o.HasVoicePack:
		return domain.OfferClassVoice
	case o.HasSMSPack:
		return domain.OfferClassSMS
	case o.HasRateCutterPack:
		return domain.OfferClassRateCutter
	default:
		return domain.OfferClassUnclassified
	}
}

func (n *Normalizer) isPackStatus(e domain.RawOfferEntry) bool {
	if n.promoKeyword == "" {
		return false
	}
	marked := strings.Contains(strings.ToLower(e.OfferName), n.promoKeyword) ||
		strings.Contains(strings.ToLower(e.DisplayName), n.promoKeyword)
	return marked && strings.TrimSpace(e.CommissionText) == "0" && strings.TrimSpace(e.AmountText) == "0"
}

// offerText returns the first field of the display name under the split rules
func (n *Normalizer) offerText(displayName string) string {
	fields := n.defaultFields
	for _, r := range n.splitRules {
		if r.Keyword != "" && strings.Contains(displayName, r.Keyword) {
			fields = r.Fields
			break
		}
	}
	return strings.SplitN(displayName, " ", fields)[0]
}
