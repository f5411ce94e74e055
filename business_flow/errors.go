package businessflow

import (
	"errors"
	"fmt"

	"github.com/amirphl/inox-pricing/pricing"
)

// Business error codes. Handlers map them to HTTP statuses.
const (
	CodePricingValidationFailed   = "PRICING_VALIDATION_FAILED"
	CodePricingConfigUnavailable  = "PRICING_CONFIG_UNAVAILABLE"
	CodeSheetRulesUnavailable     = "SHEET_RULES_UNAVAILABLE"
	CodeInquiryCaptchaFailed      = "INQUIRY_CAPTCHA_FAILED"
	CodeInquiryNotificationFailed = "INQUIRY_NOTIFICATION_FAILED"
	CodePriceListExportFailed     = "PRICE_LIST_EXPORT_FAILED"
)

// Business flow error constants
var (
	ErrSheetPricingDisabled = errors.New("spreadsheet pricing is disabled")
	ErrCaptchaRequired      = errors.New("captcha is required")
	ErrCaptchaInvalid       = errors.New("captcha verification failed")
	ErrCacheNotAvailable    = errors.New("cache not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationDetails returns the offending field and reason of a wrapped pricing.ValidationError.
// Rule values never appear in either.
func (e *BusinessError) ValidationDetails() (field, reason string, ok bool) {
	var ve *pricing.ValidationError
	if errors.As(e.Err, &ve) {
		return ve.Field, ve.Reason, true
	}
	return "", "", false
}

// pricingError wraps an engine or loader failure in the matching business error
func pricingError(err error, unavailableCode string) *BusinessError {
	var ve *pricing.ValidationError
	if errors.As(err, &ve) {
		return NewBusinessError(CodePricingValidationFailed, "Invalid order configuration", err)
	}
	return NewBusinessError(unavailableCode, "Pricing is temporarily unavailable", err)
}

func IsBusinessErrorCode(err error, code string) bool {
	var be *BusinessError
	return errors.As(err, &be) && be.Code == code
}

// ConfigField returns the offending field of a wrapped pricing.ConfigError
func (e *BusinessError) ConfigField() (string, bool) {
	var ce *pricing.ConfigError
	if errors.As(e.Err, &ce) && ce.Field != "" {
		return ce.Field, true
	}
	return "", false
}
