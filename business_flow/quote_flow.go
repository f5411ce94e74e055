package businessflow

import (
	"context"

	"github.com/amirphl/inox-pricing/app/dto"
	"github.com/amirphl/inox-pricing/pricing"
	"github.com/amirphl/inox-pricing/utils"
	"go.uber.org/zap"
)

const PricingPathPrimary = "primary"

// QuoteFlow prices configurations against the active rule set
type QuoteFlow interface {
	Quote(ctx context.Context, req *dto.QuoteRequest, privileged bool) (*dto.QuoteResponse, error)
	Options(ctx context.Context) (*dto.PricingOptionsResponse, error)
}

type QuoteFlowImpl struct {
	provider pricing.RuleSetProvider
	logger   *zap.Logger
}

func NewQuoteFlow(provider pricing.RuleSetProvider, logger *zap.Logger) QuoteFlow {
	return &QuoteFlowImpl{provider: provider, logger: logger}
}

// Quote computes the price breakdown. Overrides are honored only when privileged is true.
func (f *QuoteFlowImpl) Quote(ctx context.Context, req *dto.QuoteRequest, privileged bool) (*dto.QuoteResponse, error) {
	rules, err := f.provider.Load(ctx)
	if err != nil {
		f.logger.Error("Failed to load rule set", zap.Error(err), zap.String("request_id", utils.RequestIDFromContext(ctx)))
		quotesTotal.WithLabelValues(PricingPathPrimary, req.ProductType, boolLabel(privileged), "unavailable").Inc()
		return nil, pricingError(err, CodePricingConfigUnavailable)
	}

	breakdown, err := priceConfiguration(ctx, f.logger, "quote", req.OrderConfigurationRequest, privileged, rules)
	if err != nil {
		quotesTotal.WithLabelValues(PricingPathPrimary, req.ProductType, boolLabel(privileged), "invalid").Inc()
		return nil, pricingError(err, CodePricingConfigUnavailable)
	}
	quotesTotal.WithLabelValues(PricingPathPrimary, req.ProductType, boolLabel(privileged), "success").Inc()

	return &dto.QuoteResponse{
		Message:        "Quote computed successfully",
		PricingPath:    PricingPathPrimary,
		RuleSetVersion: rules.Version,
		Fingerprint:    rules.Fingerprint(),
		Breakdown:      ToPriceBreakdownDTO(breakdown),
	}, nil
}

// Options lists the keys a configurator may offer. Rule values are not exposed.
func (f *QuoteFlowImpl) Options(ctx context.Context) (*dto.PricingOptionsResponse, error) {
	rules, err := f.provider.Load(ctx)
	if err != nil {
		f.logger.Error("Failed to load rule set", zap.Error(err), zap.String("request_id", utils.RequestIDFromContext(ctx)))
		return nil, pricingError(err, CodePricingConfigUnavailable)
	}

	return &dto.PricingOptionsResponse{
		Message:         "Pricing options retrieved successfully",
		ProductTypes:    productTypeNames(),
		Dimensions:      rules.DimensionKeys(),
		DeliveryDays:    deliveryDays(),
		AdvancePayments: advanceTierNames(),
		MinQuantity:     pricing.MinQuantity,
		MaxQuantity:     pricing.MaxQuantity,
		Currency:        rules.Currency,
		RuleSetVersion:  rules.Version,
	}, nil
}

// priceConfiguration runs the primary pricing path for one untrusted configuration
func priceConfiguration(ctx context.Context, logger *zap.Logger, entryPoint string, req dto.OrderConfigurationRequest, privileged bool, rules *pricing.RuleSet) (*pricing.PriceBreakdown, error) {
	order, err := toOrderConfiguration(req, privileged)
	if err != nil {
		return nil, err
	}
	safe := sanitizeOrder(ctx, logger, entryPoint, order, privileged)
	return pricing.ComputePrice(safe, rules)
}
