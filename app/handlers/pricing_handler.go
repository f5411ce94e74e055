package handlers

import (
	"github.com/amirphl/inox-pricing/app/dto"
	businessflow "github.com/amirphl/inox-pricing/business_flow"
	"github.com/amirphl/inox-pricing/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// PricingHandlerInterface defines the contract for public pricing handlers
type PricingHandlerInterface interface {
	Quote(c fiber.Ctx) error
	SheetQuote(c fiber.Ctx) error
	Options(c fiber.Ctx) error
}

// PricingHandler serves price quotes for table configurations
type PricingHandler struct {
	quoteFlow      businessflow.QuoteFlow
	sheetQuoteFlow businessflow.SheetQuoteFlow
	validator      *validator.Validate
}

func NewPricingHandler(quoteFlow businessflow.QuoteFlow, sheetQuoteFlow businessflow.SheetQuoteFlow) *PricingHandler {
	return &PricingHandler{
		quoteFlow:      quoteFlow,
		sheetQuoteFlow: sheetQuoteFlow,
		validator:      newValidator(),
	}
}

// Quote prices a configuration against the active rule set.
// @Summary Quote a table configuration
// @Description Computes the price breakdown. Price overrides are applied only for admin callers and silently ignored otherwise.
// @Tags Pricing
// @Accept json
// @Produce json
// @Param request body dto.QuoteRequest true "Order configuration"
// @Success 200 {object} dto.APIResponse{data=dto.QuoteResponse} "Quote computed"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 429 {object} dto.APIResponse "Rate limit exceeded"
// @Failure 503 {object} dto.APIResponse "Pricing rules unavailable"
// @Router /api/v1/pricing/quote [post]
func (h *PricingHandler) Quote(c fiber.Ctx) error {
	var req dto.QuoteRequest
	if ok, err := bindAndValidate(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContextWithTimeout(c, "/api/v1/pricing/quote", utils.DefaultRequestTimeout)
	defer cancel()

	res, err := h.quoteFlow.Quote(ctx, &req, isPrivileged(c))
	if err != nil {
		return businessErrorResponse(c, err, "Failed to compute quote", "QUOTE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// SheetQuote prices a configuration with the rules maintained in the pricing spreadsheet.
// @Summary Quote a table configuration from the pricing spreadsheet
// @Description Overrides are never honored on this path.
// @Tags Pricing
// @Accept json
// @Produce json
// @Param request body dto.QuoteRequest true "Order configuration"
// @Success 200 {object} dto.APIResponse{data=dto.QuoteResponse} "Quote computed"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 503 {object} dto.APIResponse "Spreadsheet pricing unavailable"
// @Router /api/v1/pricing/sheet-quote [post]
func (h *PricingHandler) SheetQuote(c fiber.Ctx) error {
	var req dto.QuoteRequest
	if ok, err := bindAndValidate(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContextWithTimeout(c, "/api/v1/pricing/sheet-quote", utils.DefaultRequestTimeout)
	defer cancel()

	res, err := h.sheetQuoteFlow.Quote(ctx, &req)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to compute quote", "QUOTE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// Options lists what a configurator may offer.
// @Summary List pricing options
// @Tags Pricing
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.PricingOptionsResponse} "Options retrieved"
// @Failure 503 {object} dto.APIResponse "Pricing rules unavailable"
// @Router /api/v1/pricing/options [get]
func (h *PricingHandler) Options(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/api/v1/pricing/options", utils.DefaultRequestTimeout)
	defer cancel()

	res, err := h.quoteFlow.Options(ctx)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to load pricing options", "PRICING_OPTIONS_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}
