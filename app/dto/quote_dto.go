package dto

// PricingOverrides are manual adjustments a sales operator may apply to one quote.
// They are honored only for privileged callers and silently dropped otherwise.
type PricingOverrides struct {
	BasePriceOverride          *float64           `json:"base_price_override,omitempty"`
	StartupDiscountOverride    *float64           `json:"startup_discount_override,omitempty"`
	FirstOrderDiscountOverride *float64           `json:"first_order_discount_override,omitempty"`
	DeliverySurchargeOverride  map[string]float64 `json:"delivery_surcharge_override,omitempty"` // keyed by delivery days
	BulkDiscountOverride       *float64           `json:"bulk_discount_override,omitempty"`
	AdvanceDiscountOverride    *float64           `json:"advance_discount_override,omitempty"`
	CustomUnitAdjust           *float64           `json:"custom_unit_adjust,omitempty"`
	CustomLineAdjust           *float64           `json:"custom_line_adjust,omitempty"`
}

// OrderConfigurationRequest represents one table configuration as sent by the configurator
type OrderConfigurationRequest struct {
	ProductType    string `json:"product_type" validate:"required,oneof=dimensioned table_only all_in_one"`
	Dimension      string `json:"dimension,omitempty" validate:"required_if=ProductType dimensioned,max=32"`
	Quantity       int    `json:"quantity" validate:"required,min=1,max=500"`
	DeliveryDays   int    `json:"delivery_days" validate:"required,oneof=7 30 45 60"`
	AdvancePayment string `json:"advance_payment,omitempty" validate:"omitempty,oneof=none 50 100"`

	PricingOverrides
}

// QuoteRequest represents the request payload for a price quote
type QuoteRequest struct {
	OrderConfigurationRequest
}

// PriceBreakdownDTO is the caller-visible price breakdown
type PriceBreakdownDTO struct {
	Base        float64            `json:"base"`
	Adjustments map[string]float64 `json:"adjustments"`
	Unit        int64              `json:"unit"`
	Subtotal    int64              `json:"subtotal"`
	Total       int64              `json:"total"`
	Quantity    int                `json:"quantity"`
	Currency    string             `json:"currency"`
}

// QuoteResponse represents the response payload for a price quote
type QuoteResponse struct {
	Message        string            `json:"message"`
	PricingPath    string            `json:"pricing_path"`
	RuleSetVersion string            `json:"rule_set_version,omitempty"`
	Fingerprint    string            `json:"fingerprint,omitempty"`
	Breakdown      PriceBreakdownDTO `json:"breakdown"`
}

// PricingOptionsResponse lists the choices the configurator may offer. It carries keys only.
type PricingOptionsResponse struct {
	Message         string   `json:"message"`
	ProductTypes    []string `json:"product_types"`
	Dimensions      []string `json:"dimensions"`
	DeliveryDays    []int    `json:"delivery_days"`
	AdvancePayments []string `json:"advance_payments"`
	MinQuantity     int      `json:"min_quantity"`
	MaxQuantity     int      `json:"max_quantity"`
	Currency        string   `json:"currency"`
	RuleSetVersion  string   `json:"rule_set_version"`
}
