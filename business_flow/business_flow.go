// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"strconv"

	"github.com/amirphl/inox-pricing/app/dto"
	"github.com/amirphl/inox-pricing/pricing"
	"github.com/amirphl/inox-pricing/utils"
	"go.uber.org/zap"
)

// ClientMetadata holds client information used for request logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

func (cm *ClientMetadata) zapFields() []zap.Field {
	if cm == nil {
		return nil
	}
	return []zap.Field{
		zap.String("ip", cm.IPAddress),
		zap.String("user_agent", cm.UserAgent),
		zap.String("request_id", cm.RequestID),
	}
}

// toOrderConfiguration converts the wire configuration into the pricing model. The DTO has
// already passed struct validation; anything it lets through is rejected by the engine.
// Delivery override keys that are not a tier are an error for privileged callers and
// dropped for everybody else, since their overrides are discarded anyway.
func toOrderConfiguration(req dto.OrderConfigurationRequest, privileged bool) (pricing.OrderConfiguration, error) {
	productType, ok := pricing.ParseProductType(req.ProductType)
	if !ok {
		return pricing.OrderConfiguration{}, &pricing.ValidationError{Field: "product_type", Reason: "unsupported product type", Err: pricing.ErrUnsupportedTier}
	}
	delivery, ok := pricing.ParseDeliveryDays(req.DeliveryDays)
	if !ok {
		return pricing.OrderConfiguration{}, &pricing.ValidationError{Field: "delivery_days", Reason: "delivery days must be one of 7, 30, 45, 60", Err: pricing.ErrUnsupportedTier}
	}
	advanceKey := req.AdvancePayment
	if advanceKey == "" {
		advanceKey = pricing.AdvanceNone.String()
	}
	advance, ok := pricing.ParseAdvancePayment(advanceKey)
	if !ok {
		return pricing.OrderConfiguration{}, &pricing.ValidationError{Field: "advance_payment", Reason: "advance payment must be one of none, 50, 100", Err: pricing.ErrUnsupportedTier}
	}

	ov := req.PricingOverrides
	order := pricing.OrderConfiguration{
		ProductType:  productType,
		Dimension:    req.Dimension,
		Quantity:     req.Quantity,
		DeliveryTier: delivery,
		AdvanceTier:  advance,
		Overrides: pricing.Overrides{
			BasePrice:           ov.BasePriceOverride,
			StartupDiscount:     ov.StartupDiscountOverride,
			FirstOrderDiscount:  ov.FirstOrderDiscountOverride,
			BulkDiscountPerPair: ov.BulkDiscountOverride,
			AdvanceDiscount:     ov.AdvanceDiscountOverride,
			CustomUnitAdjust:    ov.CustomUnitAdjust,
			CustomLineAdjust:    ov.CustomLineAdjust,
		},
	}

	if len(ov.DeliverySurchargeOverride) > 0 {
		surcharges := make(map[pricing.DeliveryTier]float64, len(ov.DeliverySurchargeOverride))
		for key, value := range ov.DeliverySurchargeOverride {
			tier, ok := pricing.ParseDeliveryKey(key)
			if !ok {
				if privileged {
					return pricing.OrderConfiguration{}, &pricing.ValidationError{
						Field:  "delivery_surcharge_override." + key,
						Reason: "delivery override key must be one of 7, 30, 45, 60",
						Err:    pricing.ErrUnsupportedTier,
					}
				}
				continue
			}
			surcharges[tier] = value
		}
		order.Overrides.DeliverySurcharge = surcharges
	}

	return order, nil
}

// sanitizeOrder applies override authorization and records what an unprivileged caller lost.
// Stripped field names go to logs and metrics only, never back to the caller.
func sanitizeOrder(ctx context.Context, logger *zap.Logger, entryPoint string, order pricing.OrderConfiguration, privileged bool) pricing.OrderConfiguration {
	present := order.Overrides.PresentFields()
	if len(present) > 0 {
		if privileged {
			logger.Info("Pricing overrides applied",
				zap.String("entry_point", entryPoint),
				zap.Strings("fields", present),
				zap.String("request_id", utils.RequestIDFromContext(ctx)))
		} else {
			for _, field := range present {
				strippedOverridesTotal.WithLabelValues(entryPoint, field).Inc()
			}
			logger.Warn("Unprivileged pricing overrides dropped",
				zap.String("entry_point", entryPoint),
				zap.Strings("fields", present),
				zap.String("request_id", utils.RequestIDFromContext(ctx)))
		}
	}
	return pricing.Sanitize(order, privileged)
}

// ToPriceBreakdownDTO converts a breakdown to its caller-visible shape
func ToPriceBreakdownDTO(b *pricing.PriceBreakdown) dto.PriceBreakdownDTO {
	return dto.PriceBreakdownDTO{
		Base:        b.Base,
		Adjustments: b.Adjustments.Map(),
		Unit:        b.Unit,
		Subtotal:    b.Subtotal,
		Total:       b.Total,
		Quantity:    b.Quantity,
		Currency:    b.Currency,
	}
}

func deliveryDays() []int {
	tiers := pricing.DeliveryTiers()
	days := make([]int, len(tiers))
	for i, d := range tiers {
		days[i] = d.Days()
	}
	return days
}

func productTypeNames() []string {
	types := pricing.ProductTypes()
	names := make([]string, len(types))
	for i, p := range types {
		names[i] = p.String()
	}
	return names
}

func advanceTierNames() []string {
	tiers := pricing.AdvanceTiers()
	names := make([]string, len(tiers))
	for i, a := range tiers {
		names[i] = a.String()
	}
	return names
}

func boolLabel(ok bool) string {
	return strconv.FormatBool(ok)
}
