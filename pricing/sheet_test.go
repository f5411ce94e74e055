package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceSheetRows() [][]string {
	return [][]string{
		{"key", "value"},
		{"base:200x100", "1170"},
		{"base:160x80", "€ 990"},
		{"base:table_only", "500"},
		{"base:all_in_one", "1000"},
		{"startup_discount", "25"},
		{"first_order:dimensioned", "50"},
		{"first_order:table_only", "30"},
		{"first_order:all_in_one", "50"},
		{},
		{"delivery:7", "75"},
		{"delivery:30", "0"},
		{"delivery:45", "10"},
		{"delivery:60", "25"},
		{"advance_percent:none", "0"},
		{"advance_percent:50", "3%"},
		{"advance_percent:100", "5"},
		{"bulk_per_pair", "25"},
	}
}

func TestParseSheetRows(t *testing.T) {
	rules, err := ParseSheetRows("sheet", referenceSheetRows())
	require.NoError(t, err)

	assert.Equal(t, 990.0, rules.DimensionBase["160x80"])
	assert.Equal(t, 500.0, rules.TableOnlyBase)
	assert.Equal(t, 3.0, rules.AdvancePercent[Advance50])
	assert.Equal(t, 75.0, rules.DeliverySurcharge[Delivery7])
	assert.Equal(t, DefaultCurrency, rules.Currency)
}

func TestParseSheetRowsFormattedValues(t *testing.T) {
	rows := referenceSheetRows()
	rows = append(rows,
		[]string{"base:200x100", "€1,170.00"},
		[]string{"base:all_in_one", "1 000"},
		[]string{"advance_percent:100", "5.00%"},
		[]string{"currency", " chf "},
	)

	rules, err := ParseSheetRows("sheet", rows)
	require.NoError(t, err)
	assert.Equal(t, 1170.0, rules.DimensionBase["200x100"])
	assert.Equal(t, 1000.0, rules.AllInOneBase)
	assert.Equal(t, 5.0, rules.AdvancePercent[Advance100])
	assert.Equal(t, "CHF", rules.Currency)
}

func TestComputeSheetPriceCurrency(t *testing.T) {
	order := OrderConfiguration{
		ProductType:  ProductTableOnly,
		Quantity:     1,
		DeliveryTier: Delivery30,
		AdvanceTier:  AdvanceNone,
	}

	tests := []struct {
		name string
		rows [][]string
		want string
	}{
		{name: "defaults when the sheet names none", rows: referenceSheetRows(), want: DefaultCurrency},
		{name: "sheet currency row", rows: append(referenceSheetRows(), []string{"currency", "USD"}), want: "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules, err := ParseSheetRows("sheet", tt.rows)
			require.NoError(t, err)
			got, err := ComputeSheetPrice(order, rules)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Currency)
		})
	}

	got, err := ComputeSheetPrice(order, &SheetRules{TableOnlyBase: 500})
	require.NoError(t, err)
	assert.Equal(t, DefaultCurrency, got.Currency)
}

func TestParseSheetRowsErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(rows [][]string) [][]string
		wantField string
		wantErr   error
	}{
		{
			name:      "unknown key",
			mutate:    func(rows [][]string) [][]string { return append(rows, []string{"vat", "20"}) },
			wantField: "vat",
			wantErr:   ErrUnknownKey,
		},
		{
			name:      "unsupported delivery tier",
			mutate:    func(rows [][]string) [][]string { return append(rows, []string{"delivery:14", "20"}) },
			wantField: "delivery:14",
			wantErr:   ErrUnknownKey,
		},
		{
			name:      "not a number",
			mutate:    func(rows [][]string) [][]string { return append(rows, []string{"startup_discount", "twenty"}) },
			wantField: "startup_discount",
			wantErr:   ErrMalformed,
		},
		{
			name:      "malformed currency",
			mutate:    func(rows [][]string) [][]string { return append(rows, []string{"currency", "euro"}) },
			wantField: "currency",
			wantErr:   ErrMalformed,
		},
		{
			name:      "percentage above 100",
			mutate:    func(rows [][]string) [][]string { return append(rows, []string{"advance_percent:100", "120"}) },
			wantField: "advance_percent:100",
			wantErr:   ErrOutOfRange,
		},
		{
			name:      "missing value column",
			mutate:    func(rows [][]string) [][]string { return append(rows, []string{"bulk_per_pair"}) },
			wantField: "bulk_per_pair",
			wantErr:   ErrMissingField,
		},
		{
			name: "missing delivery tier",
			mutate: func(rows [][]string) [][]string {
				out := make([][]string, 0, len(rows))
				for _, r := range rows {
					if len(r) > 0 && r[0] == "delivery:45" {
						continue
					}
					out = append(out, r)
				}
				return out
			},
			wantField: "delivery:45",
			wantErr:   ErrMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules, err := ParseSheetRows("sheet", tt.mutate(referenceSheetRows()))
			assert.Nil(t, rules)

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantField, ce.Field)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestComputeSheetPrice(t *testing.T) {
	rules, err := ParseSheetRows("sheet", referenceSheetRows())
	require.NoError(t, err)

	tests := []struct {
		name         string
		order        OrderConfiguration
		wantUnit     int64
		wantSubtotal int64
		wantTotal    int64
	}{
		{
			name: "dimensioned single table",
			order: OrderConfiguration{
				ProductType:  ProductDimensioned,
				Dimension:    "200x100",
				Quantity:     1,
				DeliveryTier: Delivery60,
				AdvanceTier:  AdvanceNone,
			},
			// 1170 - 25 + 25 - 50
			wantUnit:     1120,
			wantSubtotal: 1120,
			wantTotal:    1120,
		},
		{
			name: "advance percent applies to the line before bulk",
			order: OrderConfiguration{
				ProductType:  ProductTableOnly,
				Quantity:     2,
				DeliveryTier: Delivery45,
				AdvanceTier:  Advance50,
			},
			// unit 500-25+10-30 = 455, line 910, minus 3% = 882.7, minus one pair = 857.7
			wantUnit:     455,
			wantSubtotal: 910,
			wantTotal:    858,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeSheetPrice(tt.order, rules)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUnit, got.Unit)
			assert.Equal(t, tt.wantSubtotal, got.Subtotal)
			assert.Equal(t, tt.wantTotal, got.Total)
		})
	}
}

func TestComputeSheetPriceIgnoresOverrides(t *testing.T) {
	rules, err := ParseSheetRows("sheet", referenceSheetRows())
	require.NoError(t, err)
	order := OrderConfiguration{
		ProductType:  ProductAllInOne,
		Quantity:     3,
		DeliveryTier: Delivery7,
		AdvanceTier:  Advance100,
	}

	want, err := ComputeSheetPrice(order, rules)
	require.NoError(t, err)

	order.Overrides = fullOverrides()
	got, err := ComputeSheetPrice(order, rules)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestComputeSheetPriceDiffersFromPrimaryPath(t *testing.T) {
	rules := loadReferenceRules(t)
	sheet, err := ParseSheetRows("sheet", referenceSheetRows())
	require.NoError(t, err)
	order := OrderConfiguration{
		ProductType:  ProductTableOnly,
		Quantity:     2,
		DeliveryTier: Delivery45,
		AdvanceTier:  Advance50,
	}

	primary, err := ComputePrice(order, rules)
	require.NoError(t, err)
	fromSheet, err := ComputeSheetPrice(order, sheet)
	require.NoError(t, err)
	assert.NotEqual(t, primary.Total, fromSheet.Total)
}

func TestComputeSheetPriceValidation(t *testing.T) {
	rules, err := ParseSheetRows("sheet", referenceSheetRows())
	require.NoError(t, err)

	_, err = ComputeSheetPrice(OrderConfiguration{
		ProductType:  ProductDimensioned,
		Dimension:    "300x300",
		Quantity:     1,
		DeliveryTier: Delivery30,
	}, rules)
	assert.ErrorIs(t, err, ErrUnknownDimension)

	_, err = ComputeSheetPrice(OrderConfiguration{ProductType: ProductTableOnly, Quantity: 0}, rules)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = ComputeSheetPrice(OrderConfiguration{ProductType: ProductTableOnly, Quantity: 1}, nil)
	assert.True(t, IsValidationError(err))
}
