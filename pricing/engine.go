package pricing

import (
	"math"
)

const (
	MinQuantity = 1
	MaxQuantity = 500
)

// OrderConfiguration is one table configuration to price.
type OrderConfiguration struct {
	ProductType  ProductType
	Dimension    string
	Quantity     int
	DeliveryTier DeliveryTier
	AdvanceTier  AdvanceTier
	Overrides    Overrides
}

// Overrides replace rule set values for a single computation. Nil means "use the rule set".
type Overrides struct {
	BasePrice           *float64
	StartupDiscount     *float64
	FirstOrderDiscount  *float64
	DeliverySurcharge   map[DeliveryTier]float64
	BulkDiscountPerPair *float64
	AdvanceDiscount     *float64
	CustomUnitAdjust    *float64
	CustomLineAdjust    *float64
}

// Adjustments records every component that went into a price.
type Adjustments struct {
	StartupDiscount        float64 `json:"startup_discount"`
	FirstOrderDiscount     float64 `json:"first_order_discount"`
	DeliverySurcharge      float64 `json:"delivery_surcharge"`
	AdvancePaymentDiscount float64 `json:"advance_payment_discount"`
	BulkDiscountTotal      float64 `json:"bulk_discount_total"`
	CustomUnitAdjust       float64 `json:"custom_unit_adjust"`
	CustomLineAdjust       float64 `json:"custom_line_adjust"`
}

// Map returns the adjustments keyed by their wire names.
func (a Adjustments) Map() map[string]float64 {
	return map[string]float64{
		"startup_discount":         a.StartupDiscount,
		"first_order_discount":     a.FirstOrderDiscount,
		"delivery_surcharge":       a.DeliverySurcharge,
		"advance_payment_discount": a.AdvancePaymentDiscount,
		"bulk_discount_total":      a.BulkDiscountTotal,
		"custom_unit_adjust":       a.CustomUnitAdjust,
		"custom_line_adjust":       a.CustomLineAdjust,
	}
}

// PriceBreakdown is the result of pricing one order configuration.
type PriceBreakdown struct {
	Base        float64     `json:"base"`
	Adjustments Adjustments `json:"adjustments"`
	Unit        int64       `json:"unit"`
	Subtotal    int64       `json:"subtotal"`
	Total       int64       `json:"total"`
	Quantity    int         `json:"quantity"`
	Currency    string      `json:"currency"`
}

// ComputePrice prices order against rules. It performs no I/O and does not modify its inputs.
func ComputePrice(order OrderConfiguration, rules *RuleSet) (*PriceBreakdown, error) {
	if rules == nil {
		return nil, newValidationError("rule_set", ErrMissingField, "no rule set available")
	}
	if err := validateOrder(order); err != nil {
		return nil, err
	}
	ov := order.Overrides

	base, err := resolveBase(order, rules)
	if err != nil {
		return nil, err
	}

	adj := Adjustments{
		StartupDiscount:        pick(ov.StartupDiscount, rules.StartupDiscount),
		FirstOrderDiscount:     pick(ov.FirstOrderDiscount, rules.FirstOrderDiscount[order.ProductType]),
		DeliverySurcharge:      rules.DeliverySurcharge[order.DeliveryTier],
		AdvancePaymentDiscount: pick(ov.AdvanceDiscount, rules.AdvanceDiscount[order.AdvanceTier]),
		CustomUnitAdjust:       pick(ov.CustomUnitAdjust, 0),
		CustomLineAdjust:       pick(ov.CustomLineAdjust, 0),
	}
	if v, ok := ov.DeliverySurcharge[order.DeliveryTier]; ok {
		adj.DeliverySurcharge = v
	}

	// The zero floor applies before the custom per-unit adjustment and nowhere else per unit.
	unitRaw := math.Max(0, base-adj.StartupDiscount-adj.FirstOrderDiscount+adj.DeliverySurcharge-adj.AdvancePaymentDiscount) +
		adj.CustomUnitAdjust
	subtotalRaw := unitRaw * float64(order.Quantity)

	if order.Quantity >= 2 {
		pairs := order.Quantity / 2
		adj.BulkDiscountTotal = float64(pairs) * pick(ov.BulkDiscountPerPair, rules.BulkDiscountPerPair)
	}

	total := math.Max(0, math.Round(subtotalRaw-adj.BulkDiscountTotal+adj.CustomLineAdjust))

	return &PriceBreakdown{
		Base:        base,
		Adjustments: adj,
		Unit:        int64(math.Round(math.Max(0, unitRaw))),
		Subtotal:    int64(math.Round(subtotalRaw)),
		Total:       int64(total),
		Quantity:    order.Quantity,
		Currency:    rules.Currency,
	}, nil
}

func resolveBase(order OrderConfiguration, rules *RuleSet) (float64, error) {
	if order.Overrides.BasePrice != nil {
		return *order.Overrides.BasePrice, nil
	}
	switch order.ProductType {
	case ProductDimensioned:
		if order.Dimension == "" {
			return 0, newValidationError("dimension", ErrMissingField, "dimension is required for dimensioned products")
		}
		base, ok := rules.DimensionBase[order.Dimension]
		if !ok {
			return 0, newValidationError("dimension", ErrUnknownDimension, "dimension "+order.Dimension+" is not offered")
		}
		return base, nil
	case ProductTableOnly:
		return rules.TableOnlyBase, nil
	case ProductAllInOne:
		return rules.AllInOneBase, nil
	}
	return 0, newValidationError("product_type", ErrUnsupportedTier, "unsupported product type")
}

func validateOrder(order OrderConfiguration) error {
	if !order.ProductType.Valid() {
		return newValidationError("product_type", ErrUnsupportedTier, "unsupported product type")
	}
	if order.Quantity < MinQuantity || order.Quantity > MaxQuantity {
		return newValidationError("quantity", ErrOutOfRange, "quantity must be between 1 and 500")
	}
	if !order.DeliveryTier.Valid() {
		return newValidationError("delivery_days", ErrUnsupportedTier, "delivery days must be one of 7, 30, 45, 60")
	}
	if !order.AdvanceTier.Valid() {
		return newValidationError("advance_payment", ErrUnsupportedTier, "advance payment must be one of none, 50, 100")
	}
	for _, f := range overrideFields {
		if !f.finite(&order.Overrides) {
			return newValidationError(f.name, ErrNotFinite, "override must be a finite number")
		}
	}
	return nil
}

func pick(override *float64, fallback float64) float64 {
	if override != nil {
		return *override
	}
	return fallback
}
