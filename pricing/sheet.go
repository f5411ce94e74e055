package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Spreadsheet rule keys. Each row of the sheet is "key | value".
const (
	sheetBasePrefix       = "base:"
	sheetFirstOrderPrefix = "first_order:"
	sheetDeliveryPrefix   = "delivery:"
	sheetAdvancePrefix    = "advance_percent:"
	sheetStartupKey       = "startup_discount"
	sheetBulkKey          = "bulk_per_pair"
	sheetCurrencyKey      = "currency"
)

// SheetRules are the constants maintained by sales in the pricing spreadsheet. Unlike RuleSet
// the advance payment discount is a percentage of the line.
type SheetRules struct {
	DimensionBase       map[string]float64
	TableOnlyBase       float64
	AllInOneBase        float64
	StartupDiscount     float64
	BulkDiscountPerPair float64
	Currency            string

	FirstOrderDiscount [productTypeCount]float64
	DeliverySurcharge  [deliveryTierCount]float64
	AdvancePercent     [advanceTierCount]float64
}

// ParseSheetRows builds SheetRules from spreadsheet rows. A leading "key,value" header and
// blank rows are skipped. The optional currency row defaults to DefaultCurrency.
func ParseSheetRows(source string, rows [][]string) (*SheetRules, error) {
	sr := &SheetRules{DimensionBase: make(map[string]float64), Currency: DefaultCurrency}

	var (
		haveTableOnly, haveAllInOne, haveStartup, haveBulk bool
		haveFirstOrder                                     [productTypeCount]bool
		haveDelivery                                       [deliveryTierCount]bool
		haveAdvance                                        [advanceTierCount]bool
	)

	for i, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(row[0]))
		if i == 0 && key == "key" {
			continue
		}
		if len(row) < 2 {
			return nil, &ConfigError{Source: source, Field: key, Err: ErrMissingField}
		}
		if key == sheetCurrencyKey {
			currency, err := parseSheetCurrency(row[1])
			if err != nil {
				return nil, &ConfigError{Source: source, Field: key, Err: err}
			}
			sr.Currency = currency
			continue
		}
		value, err := parseSheetNumber(row[1])
		if err != nil {
			return nil, &ConfigError{Source: source, Field: key, Err: err}
		}

		switch {
		case key == sheetBasePrefix+ProductTableOnly.String():
			sr.TableOnlyBase, haveTableOnly = value, true
		case key == sheetBasePrefix+ProductAllInOne.String():
			sr.AllInOneBase, haveAllInOne = value, true
		case strings.HasPrefix(key, sheetBasePrefix):
			dim := strings.TrimPrefix(key, sheetBasePrefix)
			if dim == "" {
				return nil, &ConfigError{Source: source, Field: key, Err: ErrUnknownKey}
			}
			sr.DimensionBase[dim] = value
		case key == sheetStartupKey:
			sr.StartupDiscount, haveStartup = value, true
		case key == sheetBulkKey:
			sr.BulkDiscountPerPair, haveBulk = value, true
		case strings.HasPrefix(key, sheetFirstOrderPrefix):
			p, ok := ParseProductType(strings.TrimPrefix(key, sheetFirstOrderPrefix))
			if !ok {
				return nil, &ConfigError{Source: source, Field: key, Err: ErrUnknownKey}
			}
			sr.FirstOrderDiscount[p], haveFirstOrder[p] = value, true
		case strings.HasPrefix(key, sheetDeliveryPrefix):
			d, ok := ParseDeliveryKey(strings.TrimPrefix(key, sheetDeliveryPrefix))
			if !ok {
				return nil, &ConfigError{Source: source, Field: key, Err: ErrUnknownKey}
			}
			sr.DeliverySurcharge[d], haveDelivery[d] = value, true
		case strings.HasPrefix(key, sheetAdvancePrefix):
			a, ok := ParseAdvancePayment(strings.TrimPrefix(key, sheetAdvancePrefix))
			if !ok {
				return nil, &ConfigError{Source: source, Field: key, Err: ErrUnknownKey}
			}
			if value > 100 {
				return nil, &ConfigError{Source: source, Field: key, Err: fmt.Errorf("%w: percentage above 100", ErrOutOfRange)}
			}
			sr.AdvancePercent[a], haveAdvance[a] = value, true
		default:
			return nil, &ConfigError{Source: source, Field: key, Err: ErrUnknownKey}
		}
	}

	missing := func(field string) error {
		return &ConfigError{Source: source, Field: field, Err: ErrMissingField}
	}
	switch {
	case len(sr.DimensionBase) == 0:
		return nil, missing(sheetBasePrefix + "<dimension>")
	case !haveTableOnly:
		return nil, missing(sheetBasePrefix + ProductTableOnly.String())
	case !haveAllInOne:
		return nil, missing(sheetBasePrefix + ProductAllInOne.String())
	case !haveStartup:
		return nil, missing(sheetStartupKey)
	case !haveBulk:
		return nil, missing(sheetBulkKey)
	}
	for _, p := range ProductTypes() {
		if !haveFirstOrder[p] {
			return nil, missing(sheetFirstOrderPrefix + p.String())
		}
	}
	for _, d := range DeliveryTiers() {
		if !haveDelivery[d] {
			return nil, missing(sheetDeliveryPrefix + d.String())
		}
	}
	for _, a := range AdvanceTiers() {
		if !haveAdvance[a] {
			return nil, missing(sheetAdvancePrefix + a.String())
		}
	}
	return sr, nil
}

// parseSheetCurrency accepts a three letter ISO 4217 code in any case.
func parseSheetCurrency(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) != 3 {
		return "", fmt.Errorf("%w: %q is not a currency code", ErrMalformed, raw)
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q is not a currency code", ErrMalformed, raw)
		}
	}
	return s, nil
}

// sheetNumberReplacer drops the thousands separators a formatted cell may carry.
var sheetNumberReplacer = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "\u202f", "")

// parseSheetNumber accepts numbers as a sheet displays them: an optional euro sign or percent
// sign, and comma or space thousands separators.
func parseSheetNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSuffix(s, "%")
	s = sheetNumberReplacer.Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformed, raw)
	}
	if err := checkAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

// ComputeSheetPrice prices order with spreadsheet rules. Overrides are not honored on this
// path. The step order differs from ComputePrice: startup is subtracted and delivery added
// before the first-order discount, and the advance discount is a percentage of the line.
// Adjustments.AdvancePaymentDiscount holds the line-level amount.
func ComputeSheetPrice(order OrderConfiguration, rules *SheetRules) (*PriceBreakdown, error) {
	if rules == nil {
		return nil, newValidationError("rule_set", ErrMissingField, "no spreadsheet rules available")
	}
	order.Overrides = Overrides{}
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	var base float64
	switch order.ProductType {
	case ProductDimensioned:
		if order.Dimension == "" {
			return nil, newValidationError("dimension", ErrMissingField, "dimension is required for dimensioned products")
		}
		v, ok := rules.DimensionBase[order.Dimension]
		if !ok {
			return nil, newValidationError("dimension", ErrUnknownDimension, "dimension "+order.Dimension+" is not offered")
		}
		base = v
	case ProductTableOnly:
		base = rules.TableOnlyBase
	case ProductAllInOne:
		base = rules.AllInOneBase
	}

	adj := Adjustments{
		StartupDiscount:    rules.StartupDiscount,
		DeliverySurcharge:  rules.DeliverySurcharge[order.DeliveryTier],
		FirstOrderDiscount: rules.FirstOrderDiscount[order.ProductType],
	}

	unit := base - adj.StartupDiscount
	unit += adj.DeliverySurcharge
	unit -= adj.FirstOrderDiscount
	unit = math.Max(0, unit)

	line := unit * float64(order.Quantity)
	adj.AdvancePaymentDiscount = line * rules.AdvancePercent[order.AdvanceTier] / 100
	line -= adj.AdvancePaymentDiscount

	if order.Quantity >= 2 {
		adj.BulkDiscountTotal = float64(order.Quantity/2) * rules.BulkDiscountPerPair
	}
	line -= adj.BulkDiscountTotal

	return &PriceBreakdown{
		Base:        base,
		Adjustments: adj,
		Unit:        int64(math.Round(unit)),
		Subtotal:    int64(math.Round(unit * float64(order.Quantity))),
		Total:       int64(math.Max(0, math.Round(line))),
		Quantity:    order.Quantity,
		Currency:    sheetCurrency(rules),
	}, nil
}

func sheetCurrency(rules *SheetRules) string {
	if rules.Currency == "" {
		return DefaultCurrency
	}
	return rules.Currency
}
