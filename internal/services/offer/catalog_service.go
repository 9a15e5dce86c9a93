package offer

import (
	"context"
	"strings"

	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/kevin07696/recharge-service/internal/domain/ports"
	"github.com/kevin07696/recharge-service/internal/services/interpreter"
	serviceports "github.com/kevin07696/recharge-service/internal/services/ports"
	"github.com/kevin07696/recharge-service/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CatalogService implements serviceports.OfferCatalogService
type CatalogService struct {
	gateway     ports.OfferGateway
	normalizer  *Normalizer
	interpreter *interpreter.Interpreter
	noOffer     string
	logger      ports.Logger
}

// NewCatalogService creates a new offer catalog service
func NewCatalogService(
	gateway ports.OfferGateway,
	normalizer *Normalizer,
	interp *interpreter.Interpreter,
	noOfferMessage string,
	logger ports.Logger,
) *CatalogService {
	return &CatalogService{
		gateway:     gateway,
		normalizer:  normalizer,
		interpreter: interp,
		noOffer:     noOfferMessage,
		logger:      logger,
	}
}

// FetchOffers asks the gateway for the subscriber's offers and normalizes
// them. Gateway failures produce an empty batch with a user-safe status
// message; only invalid input is returned as an error.
func (s *CatalogService) FetchOffers(ctx context.Context, req *serviceports.OfferRequest) (*domain.OfferBatch, error) {
	if strings.TrimSpace(req.RetailerCode) == "" {
		return nil, domain.WrapError(domain.ErrorCodeValidationMissingField, "retailer_code is required", nil)
	}
	if strings.TrimSpace(req.SubscriberNo) == "" {
		return nil, domain.WrapError(domain.ErrorCodeValidationMissingField, "subscriber_no is required", nil)
	}

	ctx, span := observability.Tracer().Start(ctx, "offer.FetchOffers")
	defer span.End()
	span.SetAttributes(attribute.String("retailer_code", req.RetailerCode))

	resp, err := s.gateway.FetchOffers(ctx, &ports.OfferCatalogRequest{
		RetailerCode:   req.RetailerCode,
		RetailerMSISDN: req.RetailerMSISDN,
		SubscriberNo:   req.SubscriberNo,
		Amount:         req.Amount,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway error")
		s.logger.Warn("offer catalog request failed",
			ports.String("retailer_code", req.RetailerCode),
			ports.Err(err))
		observability.RecordOfferCatalog("no_response", nil, 0, false)
		return &domain.OfferBatch{
			StatusMessage: s.interpreter.NoResponseMessage(),
			Offers:        []*domain.NormalizedOffer{},
		}, nil
	}

	if resp == nil || resp.Outcome == nil {
		observability.RecordOfferCatalog("no_response", nil, 0, false)
		return &domain.OfferBatch{
			StatusMessage: s.noOffer,
			Offers:        []*domain.NormalizedOffer{},
		}, nil
	}

	outcome := resp.Outcome
	if !s.interpreter.IsSuccess(outcome) {
		s.logger.Info("offer catalog declined",
			ports.String("retailer_code", req.RetailerCode),
			ports.String("status_code", outcome.StatusCode))
		observability.RecordOfferCatalog("declined", nil, 0, false)
		return &domain.OfferBatch{
			TransactionID: outcome.TransactionID,
			StatusMessage: s.interpreter.NormalizeMessage(outcome.Message),
			Offers:        []*domain.NormalizedOffer{},
		}, nil
	}

	batch := s.normalizer.Normalize(resp.Entries, outcome.TransactionID)
	if !batch.PackStatus && strings.TrimSpace(outcome.Message) != "" {
		batch.StatusMessage = s.interpreter.NormalizeMessage(outcome.Message)
	}

	kept := make(map[string]int)
	for _, o := range batch.Offers {
		kept[string(o.Class)]++
	}
	observability.RecordOfferCatalog("success", kept, batch.Dropped, batch.PackStatus)
	span.SetAttributes(
		attribute.Int("offers.kept", len(batch.Offers)),
		attribute.Int("offers.dropped", batch.Dropped),
	)

	s.logger.Info("offer catalog normalized",
		ports.String("retailer_code", req.RetailerCode),
		ports.String("transaction_id", batch.TransactionID),
		ports.Int("offers", len(batch.Offers)),
		ports.Int("dropped", batch.Dropped))

	return batch, nil
}
