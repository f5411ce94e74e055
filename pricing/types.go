// Package pricing holds the pricing domain: rule sets, the pricing engine and override authorization
package pricing

import (
	"strconv"
)

// ProductType is the closed set of sellable table products.
type ProductType uint8

const (
	ProductDimensioned ProductType = iota
	ProductTableOnly
	ProductAllInOne

	productTypeCount
)

var productTypeNames = [productTypeCount]string{
	ProductDimensioned: "dimensioned",
	ProductTableOnly:   "table_only",
	ProductAllInOne:    "all_in_one",
}

// ProductTypes lists every product type in declaration order.
func ProductTypes() []ProductType {
	return []ProductType{ProductDimensioned, ProductTableOnly, ProductAllInOne}
}

func (p ProductType) String() string {
	if !p.Valid() {
		return "unknown(" + strconv.Itoa(int(p)) + ")"
	}
	return productTypeNames[p]
}

func (p ProductType) Valid() bool {
	return p < productTypeCount
}

// ParseProductType maps a wire name to a ProductType.
func ParseProductType(s string) (ProductType, bool) {
	for i, name := range productTypeNames {
		if name == s {
			return ProductType(i), true
		}
	}
	return 0, false
}

// DeliveryTier is a delivery lead time. Only the listed tiers exist.
type DeliveryTier uint8

const (
	Delivery7 DeliveryTier = iota
	Delivery30
	Delivery45
	Delivery60

	deliveryTierCount
)

var deliveryTierDays = [deliveryTierCount]int{
	Delivery7:  7,
	Delivery30: 30,
	Delivery45: 45,
	Delivery60: 60,
}

// DeliveryTiers lists every delivery tier from fastest to slowest.
func DeliveryTiers() []DeliveryTier {
	return []DeliveryTier{Delivery7, Delivery30, Delivery45, Delivery60}
}

// Days returns the lead time in days, or 0 for an invalid tier.
func (d DeliveryTier) Days() int {
	if !d.Valid() {
		return 0
	}
	return deliveryTierDays[d]
}

func (d DeliveryTier) String() string {
	if !d.Valid() {
		return "unknown(" + strconv.Itoa(int(d)) + ")"
	}
	return strconv.Itoa(deliveryTierDays[d])
}

func (d DeliveryTier) Valid() bool {
	return d < deliveryTierCount
}

// ParseDeliveryDays maps a number of days to its tier. Values between tiers are rejected.
func ParseDeliveryDays(days int) (DeliveryTier, bool) {
	for i, v := range deliveryTierDays {
		if v == days {
			return DeliveryTier(i), true
		}
	}
	return 0, false
}

// ParseDeliveryKey parses the textual tier key used by rule sources ("7", "30", ...).
func ParseDeliveryKey(s string) (DeliveryTier, bool) {
	days, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return ParseDeliveryDays(days)
}

// AdvanceTier is the share of the order paid in advance.
type AdvanceTier uint8

const (
	AdvanceNone AdvanceTier = iota
	Advance50
	Advance100

	advanceTierCount
)

var advanceTierNames = [advanceTierCount]string{
	AdvanceNone: "none",
	Advance50:   "50",
	Advance100:  "100",
}

// AdvanceTiers lists every advance payment tier.
func AdvanceTiers() []AdvanceTier {
	return []AdvanceTier{AdvanceNone, Advance50, Advance100}
}

func (a AdvanceTier) String() string {
	if !a.Valid() {
		return "unknown(" + strconv.Itoa(int(a)) + ")"
	}
	return advanceTierNames[a]
}

func (a AdvanceTier) Valid() bool {
	return a < advanceTierCount
}

// ParseAdvancePayment maps "none", "50" or "100" to a tier.
func ParseAdvancePayment(s string) (AdvanceTier, bool) {
	for i, name := range advanceTierNames {
		if name == s {
			return AdvanceTier(i), true
		}
	}
	return 0, false
}
