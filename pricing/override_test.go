package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullOverrides() Overrides {
	return Overrides{
		BasePrice:           f64(1500),
		StartupDiscount:     f64(10),
		FirstOrderDiscount:  f64(20),
		DeliverySurcharge:   map[DeliveryTier]float64{Delivery7: 90, Delivery60: 5},
		BulkDiscountPerPair: f64(60),
		AdvanceDiscount:     f64(30),
		CustomUnitAdjust:    f64(15),
		CustomLineAdjust:    f64(-20),
	}
}

func TestSanitizeUnprivilegedStripsEveryOverride(t *testing.T) {
	order := OrderConfiguration{
		ProductType:  ProductDimensioned,
		Dimension:    "200x100",
		Quantity:     2,
		DeliveryTier: Delivery60,
		AdvanceTier:  AdvanceNone,
		Overrides:    fullOverrides(),
	}
	require.Len(t, order.Overrides.PresentFields(), len(OverrideFieldNames()), "fixture must set every override")

	safe := Sanitize(order, false)

	assert.Empty(t, safe.Overrides.PresentFields())
	assert.Equal(t, Overrides{}, safe.Overrides)
	assert.Equal(t, order.ProductType, safe.ProductType)
	assert.Equal(t, order.Dimension, safe.Dimension)
	assert.Equal(t, order.Quantity, safe.Quantity)
	assert.Equal(t, order.DeliveryTier, safe.DeliveryTier)
	assert.Equal(t, order.AdvanceTier, safe.AdvanceTier)

	// The caller's value is untouched.
	assert.Len(t, order.Overrides.PresentFields(), len(OverrideFieldNames()))
}

func TestSanitizePerField(t *testing.T) {
	all := fullOverrides()
	for _, field := range overrideFields {
		t.Run(field.name, func(t *testing.T) {
			// Keep one field from the full fixture by clearing all the others.
			only := all.clone()
			for _, other := range overrideFields {
				if other.name != field.name {
					other.clear(&only)
				}
			}
			order := OrderConfiguration{Overrides: only}
			require.Equal(t, []string{field.name}, order.Overrides.PresentFields())

			assert.Empty(t, Sanitize(order, false).Overrides.PresentFields())
			assert.Equal(t, only, Sanitize(order, true).Overrides)
		})
	}
}

func TestSanitizePrivilegedPreservesOverrides(t *testing.T) {
	order := OrderConfiguration{Overrides: fullOverrides()}

	safe := Sanitize(order, true)
	assert.Equal(t, order.Overrides, safe.Overrides)

	// The map is copied, so later edits by the caller do not leak into the sanitized value.
	order.Overrides.DeliverySurcharge[Delivery30] = 1
	_, leaked := safe.Overrides.DeliverySurcharge[Delivery30]
	assert.False(t, leaked)
}

func TestSanitizeThenComputeIgnoresUnprivilegedOverrides(t *testing.T) {
	rules := loadReferenceRules(t)
	order := OrderConfiguration{
		ProductType:  ProductDimensioned,
		Dimension:    "200x100",
		Quantity:     2,
		DeliveryTier: Delivery60,
		AdvanceTier:  AdvanceNone,
		Overrides:    fullOverrides(),
	}
	plain := order
	plain.Overrides = Overrides{}

	want, err := ComputePrice(plain, rules)
	require.NoError(t, err)
	got, err := ComputePrice(Sanitize(order, false), rules)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestComputePriceRejectsNonFiniteOverrides(t *testing.T) {
	rules := loadReferenceRules(t)

	tests := []struct {
		name      string
		overrides Overrides
		wantField string
	}{
		{"nan base", Overrides{BasePrice: f64(math.NaN())}, "base_price_override"},
		{"infinite line adjust", Overrides{CustomLineAdjust: f64(math.Inf(-1))}, "custom_line_adjust"},
		{"infinite delivery", Overrides{DeliverySurcharge: map[DeliveryTier]float64{Delivery30: math.Inf(1)}}, "delivery_surcharge_override"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputePrice(OrderConfiguration{
				ProductType:  ProductTableOnly,
				Quantity:     1,
				DeliveryTier: Delivery30,
				AdvanceTier:  AdvanceNone,
				Overrides:    tt.overrides,
			}, rules)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
			assert.ErrorIs(t, err, ErrNotFinite)
		})
	}
}
