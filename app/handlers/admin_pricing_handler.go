package handlers

import (
	"fmt"

	businessflow "github.com/amirphl/inox-pricing/business_flow"
	"github.com/amirphl/inox-pricing/utils"
	"github.com/gofiber/fiber/v3"
)

// AdminPricingHandlerInterface defines the contract for privileged pricing handlers
type AdminPricingHandlerInterface interface {
	ReloadRuleSet(c fiber.Ctx) error
	RefreshSheetRules(c fiber.Ctx) error
	ExportPriceList(c fiber.Ctx) error
}

type AdminPricingHandler struct {
	flow businessflow.PricingAdminFlow
}

func NewAdminPricingHandler(flow businessflow.PricingAdminFlow) *AdminPricingHandler {
	return &AdminPricingHandler{flow: flow}
}

// ReloadRuleSet re-reads the pricing rules from their source.
// @Summary Reload pricing rules
// @Tags Admin Pricing
// @Produce json
// @Security AdminToken
// @Success 200 {object} dto.APIResponse{data=dto.ReloadRuleSetResponse} "Rules reloaded"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 503 {object} dto.APIResponse "Rule source invalid or unreachable"
// @Router /api/v1/admin/pricing/reload [post]
func (h *AdminPricingHandler) ReloadRuleSet(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/api/v1/admin/pricing/reload", utils.AdminRequestTimeout)
	defer cancel()

	res, err := h.flow.ReloadRuleSet(ctx)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to reload pricing rules", "RULE_SET_RELOAD_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// RefreshSheetRules drops the cached spreadsheet rules.
// @Summary Refresh spreadsheet rules
// @Tags Admin Pricing
// @Produce json
// @Security AdminToken
// @Success 200 {object} dto.APIResponse{data=dto.RefreshSheetRulesResponse} "Cache cleared"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/admin/pricing/sheet/refresh [post]
func (h *AdminPricingHandler) RefreshSheetRules(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/api/v1/admin/pricing/sheet/refresh", utils.AdminRequestTimeout)
	defer cancel()

	res, err := h.flow.RefreshSheetRules(ctx)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to refresh spreadsheet rules", "SHEET_REFRESH_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// ExportPriceList downloads the unit price matrix as a workbook.
// @Summary Export price list
// @Tags Admin Pricing
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security AdminToken
// @Success 200 {file} file "Price list workbook"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 503 {object} dto.APIResponse "Pricing rules unavailable"
// @Router /api/v1/admin/pricing/price-list.xlsx [get]
func (h *AdminPricingHandler) ExportPriceList(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/api/v1/admin/pricing/price-list.xlsx", utils.AdminRequestTimeout)
	defer cancel()

	filename, content, err := h.flow.ExportPriceList(ctx)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to export price list", businessflow.CodePriceListExportFailed)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Status(fiber.StatusOK).Send(content)
}
