package dto

// SubmitInquiryRequest represents a contact request from the configurator.
// When a configuration is present the server prices it again; client-side totals are never trusted.
type SubmitInquiryRequest struct {
	InquiryID     string                     `json:"inquiry_id,omitempty" validate:"omitempty,uuid"`
	Name          string                     `json:"name" validate:"required,min=2,max=120"`
	Email         string                     `json:"email" validate:"required,email,max=254"`
	Phone         string                     `json:"phone,omitempty" validate:"omitempty,max=32"`
	Company       string                     `json:"company,omitempty" validate:"omitempty,max=160"`
	Message       string                     `json:"message,omitempty" validate:"omitempty,max=4000"`
	Configuration *OrderConfigurationRequest `json:"configuration,omitempty" validate:"omitempty"`

	CaptchaID    string   `json:"captcha_id,omitempty" validate:"omitempty,max=64"`
	CaptchaAngle *float64 `json:"captcha_angle,omitempty"`
}

// SubmitInquiryResponse represents the response payload after an inquiry was dispatched
type SubmitInquiryResponse struct {
	Message          string             `json:"message"`
	InquiryID        string             `json:"inquiry_id"`
	Breakdown        *PriceBreakdownDTO `json:"breakdown,omitempty"`
	CustomerNotified bool               `json:"customer_notified"`
}
