package businessflow

import (
	"context"
	"errors"

	"github.com/amirphl/inox-pricing/app/dto"
	"github.com/amirphl/inox-pricing/pricing"
	"go.uber.org/zap"
)

const PricingPathSheet = "sheet"

// SheetQuoteFlow prices configurations with the rules from the pricing spreadsheet.
// This path never honors overrides.
type SheetQuoteFlow interface {
	Quote(ctx context.Context, req *dto.QuoteRequest) (*dto.QuoteResponse, error)
}

type SheetQuoteFlowImpl struct {
	provider SheetRulesProvider
	logger   *zap.Logger
}

func NewSheetQuoteFlow(provider SheetRulesProvider, logger *zap.Logger) SheetQuoteFlow {
	return &SheetQuoteFlowImpl{provider: provider, logger: logger}
}

func (f *SheetQuoteFlowImpl) Quote(ctx context.Context, req *dto.QuoteRequest) (*dto.QuoteResponse, error) {
	rules, err := f.provider.Rules(ctx)
	if err != nil {
		quotesTotal.WithLabelValues(PricingPathSheet, req.ProductType, "false", "unavailable").Inc()
		if errors.Is(err, ErrSheetPricingDisabled) {
			return nil, NewBusinessError(CodeSheetRulesUnavailable, "Spreadsheet pricing is not enabled", err)
		}
		return nil, NewBusinessError(CodeSheetRulesUnavailable, "Spreadsheet pricing is temporarily unavailable", err)
	}

	order, err := toOrderConfiguration(req.OrderConfigurationRequest, false)
	if err != nil {
		quotesTotal.WithLabelValues(PricingPathSheet, req.ProductType, "false", "invalid").Inc()
		return nil, pricingError(err, CodeSheetRulesUnavailable)
	}
	safe := sanitizeOrder(ctx, f.logger, "sheet_quote", order, false)

	breakdown, err := pricing.ComputeSheetPrice(safe, rules)
	if err != nil {
		quotesTotal.WithLabelValues(PricingPathSheet, req.ProductType, "false", "invalid").Inc()
		return nil, pricingError(err, CodeSheetRulesUnavailable)
	}
	quotesTotal.WithLabelValues(PricingPathSheet, req.ProductType, "false", "success").Inc()

	return &dto.QuoteResponse{
		Message:     "Quote computed successfully",
		PricingPath: PricingPathSheet,
		Breakdown:   ToPriceBreakdownDTO(breakdown),
	}, nil
}
