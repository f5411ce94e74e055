package handlers

import (
	"github.com/amirphl/inox-pricing/app/dto"
	"github.com/amirphl/inox-pricing/app/services"
	businessflow "github.com/amirphl/inox-pricing/business_flow"
	"github.com/amirphl/inox-pricing/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// InquiryHandlerInterface defines the contract for the contact form handlers
type InquiryHandlerInterface interface {
	Submit(c fiber.Ctx) error
	RotateCaptcha(c fiber.Ctx) error
}

type InquiryHandler struct {
	flow      businessflow.InquiryFlow
	captcha   services.CaptchaService
	validator *validator.Validate
}

// NewInquiryHandler creates the handler. A nil captcha service disables the challenge endpoint.
func NewInquiryHandler(flow businessflow.InquiryFlow, captcha services.CaptchaService) *InquiryHandler {
	return &InquiryHandler{
		flow:      flow,
		captcha:   captcha,
		validator: newValidator(),
	}
}

// Submit sends an inquiry to sales and a quote copy to the customer.
// @Summary Submit an inquiry
// @Description The attached configuration is priced again on the server. Overrides apply only for admin callers.
// @Tags Inquiries
// @Accept json
// @Produce json
// @Param request body dto.SubmitInquiryRequest true "Inquiry"
// @Success 201 {object} dto.APIResponse{data=dto.SubmitInquiryResponse} "Inquiry submitted"
// @Failure 400 {object} dto.APIResponse "Validation or captcha error"
// @Failure 429 {object} dto.APIResponse "Rate limit exceeded"
// @Failure 502 {object} dto.APIResponse "Notification could not be delivered"
// @Failure 503 {object} dto.APIResponse "Pricing rules unavailable"
// @Router /api/v1/inquiries [post]
func (h *InquiryHandler) Submit(c fiber.Ctx) error {
	var req dto.SubmitInquiryRequest
	if ok, err := bindAndValidate(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContextWithTimeout(c, "/api/v1/inquiries", utils.InquiryRequestTimeout)
	defer cancel()

	res, err := h.flow.Submit(ctx, &req, isPrivileged(c), clientMetadata(c))
	if err != nil {
		return businessErrorResponse(c, err, "Failed to submit inquiry", "INQUIRY_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, res.Message, res)
}

// RotateCaptcha issues a rotate captcha challenge for the inquiry form.
// @Summary Generate rotate captcha
// @Tags Inquiries
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.RotateCaptchaResponse} "Challenge generated"
// @Failure 404 {object} dto.APIResponse "Captcha disabled"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/captcha/rotate [get]
func (h *InquiryHandler) RotateCaptcha(c fiber.Ctx) error {
	if h.captcha == nil {
		return ErrorResponse(c, fiber.StatusNotFound, "Captcha is not enabled", "CAPTCHA_DISABLED", nil)
	}

	ctx, cancel := createRequestContextWithTimeout(c, "/api/v1/captcha/rotate", utils.DefaultRequestTimeout)
	defer cancel()

	challenge, err := h.captcha.GenerateRotate(ctx)
	if err != nil {
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate captcha", "CAPTCHA_GENERATION_FAILED", nil)
	}
	return SuccessResponse(c, fiber.StatusOK, "Captcha generated", dto.RotateCaptchaResponse{
		ChallengeID:       challenge.ID,
		MasterImageBase64: challenge.MasterImageBase64,
		ThumbImageBase64:  challenge.ThumbImageBase64,
	})
}
