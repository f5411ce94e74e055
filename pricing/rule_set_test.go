package pricing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleSetStripsBOM(t *testing.T) {
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, testRuleSetJSON...)

	rules, err := ParseRuleSet("bom.json", withBOM)
	require.NoError(t, err)

	plain, err := ParseRuleSet("plain.json", []byte(testRuleSetJSON))
	require.NoError(t, err)
	assert.Equal(t, plain.Fingerprint(), rules.Fingerprint())
}

func TestParseRuleSetBuildsTierTables(t *testing.T) {
	rules, err := ParseRuleSet("test", []byte(testRuleSetJSON))
	require.NoError(t, err)

	assert.Equal(t, "EUR", rules.Currency)
	assert.Equal(t, []string{"160x80", "200x100"}, rules.DimensionKeys())
	assert.Equal(t, 30.0, rules.FirstOrderDiscount[ProductTableOnly])
	assert.Equal(t, 10.0, rules.DeliverySurcharge[Delivery45])
	assert.Equal(t, 80.0, rules.AdvanceDiscount[Advance100])
}

func TestParseRuleSetErrors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantField string
		wantErr   error
	}{
		{
			name:    "not json",
			content: "dimension=200x100",
			wantErr: ErrMalformed,
		},
		{
			name:    "trailing document",
			content: testRuleSetJSON + "{}",
			wantErr: ErrMalformed,
		},
		{
			name:    "unknown field",
			content: strings.Replace(testRuleSetJSON, `"version": "test",`, `"version": "test", "vatRate": 0.2,`, 1),
			wantErr: ErrMalformed,
		},
		{
			name:      "missing scalar",
			content:   strings.Replace(testRuleSetJSON, `"startupDiscountEUR": 25,`, ``, 1),
			wantField: "startupDiscountEUR",
			wantErr:   ErrMissingField,
		},
		{
			name:      "negative amount",
			content:   strings.Replace(testRuleSetJSON, `"allInOneBaseEUR": 1000`, `"allInOneBaseEUR": -1`, 1),
			wantField: "allInOneBaseEUR",
			wantErr:   ErrOutOfRange,
		},
		{
			name:      "unsupported delivery tier",
			content:   strings.Replace(testRuleSetJSON, `"60": 25`, `"60": 25, "14": 40`, 1),
			wantField: "deliverySurchargeEUR.14",
			wantErr:   ErrUnknownKey,
		},
		{
			name:      "missing product type",
			content:   strings.Replace(testRuleSetJSON, `, "all_in_one": 50}`, `}`, 1),
			wantField: "firstOrderDiscountEUR.all_in_one",
			wantErr:   ErrMissingField,
		},
		{
			name:      "missing advance table",
			content:   strings.Replace(testRuleSetJSON, `"advancePaymentDiscountEUR": {"none": 0, "50": 50, "100": 80},`, ``, 1),
			wantField: "advancePaymentDiscountEUR",
			wantErr:   ErrMissingField,
		},
		{
			name:      "negative dimension base",
			content:   strings.Replace(testRuleSetJSON, `"160x80": 990`, `"160x80": -990`, 1),
			wantField: "dimensionBaseEUR.160x80",
			wantErr:   ErrOutOfRange,
		},
		{
			name:      "no dimensions",
			content:   strings.Replace(testRuleSetJSON, `{"200x100": 1170, "160x80": 990}`, `{}`, 1),
			wantField: "dimensionBaseEUR",
			wantErr:   ErrMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules, err := ParseRuleSet("test.json", []byte(tt.content))
			assert.Nil(t, rules)
			require.Error(t, err)

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "test.json", ce.Source)
			assert.Equal(t, tt.wantField, ce.Field)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseRuleSetFingerprintTracksValues(t *testing.T) {
	a, err := ParseRuleSet("a", []byte(testRuleSetJSON))
	require.NoError(t, err)
	b, err := ParseRuleSet("b", []byte(strings.Replace(testRuleSetJSON, `"bulkDiscountPerPairEUR": 25`, `"bulkDiscountPerPairEUR": 26`, 1)))
	require.NoError(t, err)

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.Fingerprint(), a.Fingerprint())
}

func TestEnumParsing(t *testing.T) {
	for _, p := range ProductTypes() {
		got, ok := ParseProductType(p.String())
		assert.True(t, ok)
		assert.Equal(t, p, got)
	}
	for _, d := range DeliveryTiers() {
		got, ok := ParseDeliveryDays(d.Days())
		assert.True(t, ok)
		assert.Equal(t, d, got)
	}
	for _, a := range AdvanceTiers() {
		got, ok := ParseAdvancePayment(a.String())
		assert.True(t, ok)
		assert.Equal(t, a, got)
	}

	_, ok := ParseDeliveryDays(31)
	assert.False(t, ok, "days between tiers are rejected, not clamped")
	_, ok = ParseProductType("bench")
	assert.False(t, ok)
	_, ok = ParseAdvancePayment("25")
	assert.False(t, ok)
	assert.False(t, DeliveryTier(7).Valid())
}
