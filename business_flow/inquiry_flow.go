package businessflow

import (
	"context"
	"strings"

	"github.com/amirphl/inox-pricing/app/dto"
	"github.com/amirphl/inox-pricing/app/services"
	"github.com/amirphl/inox-pricing/pricing"
	"github.com/amirphl/inox-pricing/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InquiryFlow dispatches contact requests to sales and a quote copy to the customer.
// Inquiries are not stored.
type InquiryFlow interface {
	Submit(ctx context.Context, req *dto.SubmitInquiryRequest, privileged bool, metadata *ClientMetadata) (*dto.SubmitInquiryResponse, error)
}

type InquiryFlowImpl struct {
	provider   pricing.RuleSetProvider
	captcha    services.CaptchaService
	notifier   services.NotificationService
	renderer   services.QuoteEmailRenderer
	salesEmail string
	logger     *zap.Logger
}

// NewInquiryFlow creates the inquiry flow. A nil captcha service disables the captcha check.
func NewInquiryFlow(
	provider pricing.RuleSetProvider,
	captcha services.CaptchaService,
	notifier services.NotificationService,
	renderer services.QuoteEmailRenderer,
	salesEmail string,
	logger *zap.Logger,
) InquiryFlow {
	return &InquiryFlowImpl{
		provider:   provider,
		captcha:    captcha,
		notifier:   notifier,
		renderer:   renderer,
		salesEmail: salesEmail,
		logger:     logger,
	}
}

// Submit prices the optional configuration again on the server, then emails sales and the
// customer. The sales email must go out; the customer copy is best effort.
func (f *InquiryFlowImpl) Submit(ctx context.Context, req *dto.SubmitInquiryRequest, privileged bool, metadata *ClientMetadata) (*dto.SubmitInquiryResponse, error) {
	if err := f.verifyCaptcha(ctx, req, privileged); err != nil {
		return nil, err
	}

	inquiryID := strings.TrimSpace(req.InquiryID)
	if inquiryID == "" {
		inquiryID = uuid.New().String()
	}
	logger := f.logger.With(zap.String("inquiry_id", inquiryID))
	logger.Info("Inquiry received", metadata.zapFields()...)

	data := services.QuoteEmailData{
		InquiryID:   inquiryID,
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		Company:     strings.TrimSpace(req.Company),
		Message:     strings.TrimSpace(req.Message),
		SubmittedAt: utils.UTCNow(),
	}

	if req.Configuration != nil {
		breakdown, err := f.price(ctx, logger, *req.Configuration, privileged)
		if err != nil {
			return nil, err
		}
		data.Breakdown = breakdown
		data.Configuration = &services.QuoteEmailConfiguration{
			ProductType:    req.Configuration.ProductType,
			Dimension:      req.Configuration.Dimension,
			Quantity:       req.Configuration.Quantity,
			DeliveryDays:   req.Configuration.DeliveryDays,
			AdvancePayment: req.Configuration.AdvancePayment,
		}
	}

	subject, body, err := f.renderer.RenderSales(data)
	if err != nil {
		return nil, NewBusinessError(CodeInquiryNotificationFailed, "Failed to prepare inquiry notification", err)
	}
	err = f.notifier.SendEmail(ctx, services.EmailMessage{
		To:       f.salesEmail,
		ReplyTo:  data.Email,
		Subject:  subject,
		HTMLBody: body,
	})
	notificationEmailsTotal.WithLabelValues("sales", resultLabel(err)).Inc()
	if err != nil {
		logger.Error("Failed to notify sales", zap.Error(err))
		return nil, NewBusinessError(CodeInquiryNotificationFailed, "Failed to deliver inquiry", err)
	}

	customerNotified := f.notifyCustomer(ctx, logger, data)

	resp := &dto.SubmitInquiryResponse{
		Message:          "Inquiry submitted successfully",
		InquiryID:        inquiryID,
		CustomerNotified: customerNotified,
	}
	if data.Breakdown != nil {
		b := ToPriceBreakdownDTO(data.Breakdown)
		resp.Breakdown = &b
	}
	return resp, nil
}

func (f *InquiryFlowImpl) verifyCaptcha(ctx context.Context, req *dto.SubmitInquiryRequest, privileged bool) error {
	if f.captcha == nil || privileged {
		return nil
	}
	if req.CaptchaID == "" || req.CaptchaAngle == nil {
		return NewBusinessError(CodeInquiryCaptchaFailed, "Captcha is required", ErrCaptchaRequired)
	}
	if !f.captcha.VerifyRotate(ctx, req.CaptchaID, *req.CaptchaAngle) {
		return NewBusinessError(CodeInquiryCaptchaFailed, "Captcha verification failed", ErrCaptchaInvalid)
	}
	return nil
}

func (f *InquiryFlowImpl) price(ctx context.Context, logger *zap.Logger, cfg dto.OrderConfigurationRequest, privileged bool) (*pricing.PriceBreakdown, error) {
	rules, err := f.provider.Load(ctx)
	if err != nil {
		logger.Error("Failed to load rule set", zap.Error(err))
		return nil, pricingError(err, CodePricingConfigUnavailable)
	}
	breakdown, err := priceConfiguration(ctx, logger, "inquiry", cfg, privileged, rules)
	quotesTotal.WithLabelValues(PricingPathPrimary, cfg.ProductType, boolLabel(privileged), resultLabel(err)).Inc()
	if err != nil {
		return nil, pricingError(err, CodePricingConfigUnavailable)
	}
	return breakdown, nil
}

func (f *InquiryFlowImpl) notifyCustomer(ctx context.Context, logger *zap.Logger, data services.QuoteEmailData) bool {
	subject, body, err := f.renderer.RenderCustomer(data)
	if err == nil {
		err = f.notifier.SendEmail(ctx, services.EmailMessage{
			To:       data.Email,
			ReplyTo:  f.salesEmail,
			Subject:  subject,
			HTMLBody: body,
		})
	}
	notificationEmailsTotal.WithLabelValues("customer", resultLabel(err)).Inc()
	if err != nil {
		logger.Warn("Failed to send quote copy to customer", zap.Error(err))
		return false
	}
	return true
}
