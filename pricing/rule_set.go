package pricing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const (
	// fingerprintLength is the number of hex characters kept from the content hash.
	fingerprintLength = 12

	// DefaultCurrency applies when a rule source does not name one.
	DefaultCurrency = "EUR"
)

// RuleSet is a validated table of pricing constants. Values are read-only once built;
// callers share the same instance.
type RuleSet struct {
	Version  string
	Currency string

	DimensionBase       map[string]float64
	TableOnlyBase       float64
	AllInOneBase        float64
	StartupDiscount     float64
	BulkDiscountPerPair float64

	FirstOrderDiscount [productTypeCount]float64
	DeliverySurcharge  [deliveryTierCount]float64
	AdvanceDiscount    [advanceTierCount]float64

	// fingerprint is computed once when the rule set is parsed
	fingerprint string
}

// ruleSetDocument is the on-disk JSON shape of a rule set.
type ruleSetDocument struct {
	Version             string             `json:"version"`
	Currency            string             `json:"currency"`
	DimensionBase       map[string]float64 `json:"dimensionBaseEUR"`
	TableOnlyBase       *float64           `json:"tableOnlyBaseEUR"`
	AllInOneBase        *float64           `json:"allInOneBaseEUR"`
	StartupDiscount     *float64           `json:"startupDiscountEUR"`
	FirstOrderDiscount  map[string]float64 `json:"firstOrderDiscountEUR"`
	DeliverySurcharge   map[string]float64 `json:"deliverySurchargeEUR"`
	AdvanceDiscount     map[string]float64 `json:"advancePaymentDiscountEUR"`
	BulkDiscountPerPair *float64           `json:"bulkDiscountPerPairEUR"`
}

// ParseRuleSet decodes and validates a JSON rule set. source names the origin in errors.
func ParseRuleSet(source string, data []byte) (*RuleSet, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc ruleSetDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, &ConfigError{Source: source, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Source: source, Err: fmt.Errorf("%w: trailing data after rule set", ErrMalformed)}
	}

	rs, field, err := doc.toRuleSet()
	if err != nil {
		return nil, &ConfigError{Source: source, Field: field, Err: err}
	}
	rs.fingerprint = rs.computeFingerprint()
	return rs, nil
}

func (doc *ruleSetDocument) toRuleSet() (*RuleSet, string, error) {
	rs := &RuleSet{
		Version:       doc.Version,
		Currency:      doc.Currency,
		DimensionBase: make(map[string]float64, len(doc.DimensionBase)),
	}
	if rs.Currency == "" {
		rs.Currency = DefaultCurrency
	}

	if len(doc.DimensionBase) == 0 {
		return nil, "dimensionBaseEUR", ErrMissingField
	}
	for _, key := range sortedKeys(doc.DimensionBase) {
		v := doc.DimensionBase[key]
		if key == "" {
			return nil, "dimensionBaseEUR", fmt.Errorf("%w: empty dimension key", ErrUnknownKey)
		}
		if err := checkAmount(v); err != nil {
			return nil, "dimensionBaseEUR." + key, err
		}
		rs.DimensionBase[key] = v
	}

	scalars := []struct {
		field string
		src   *float64
		dst   *float64
	}{
		{"tableOnlyBaseEUR", doc.TableOnlyBase, &rs.TableOnlyBase},
		{"allInOneBaseEUR", doc.AllInOneBase, &rs.AllInOneBase},
		{"startupDiscountEUR", doc.StartupDiscount, &rs.StartupDiscount},
		{"bulkDiscountPerPairEUR", doc.BulkDiscountPerPair, &rs.BulkDiscountPerPair},
	}
	for _, s := range scalars {
		if s.src == nil {
			return nil, s.field, ErrMissingField
		}
		if err := checkAmount(*s.src); err != nil {
			return nil, s.field, err
		}
		*s.dst = *s.src
	}

	if field, err := fillTiers("firstOrderDiscountEUR", doc.FirstOrderDiscount, rs.FirstOrderDiscount[:],
		func(k string) (int, bool) { p, ok := ParseProductType(k); return int(p), ok },
		func(i int) string { return ProductType(i).String() }); err != nil {
		return nil, field, err
	}
	if field, err := fillTiers("deliverySurchargeEUR", doc.DeliverySurcharge, rs.DeliverySurcharge[:],
		func(k string) (int, bool) { d, ok := ParseDeliveryKey(k); return int(d), ok },
		func(i int) string { return DeliveryTier(i).String() }); err != nil {
		return nil, field, err
	}
	if field, err := fillTiers("advancePaymentDiscountEUR", doc.AdvanceDiscount, rs.AdvanceDiscount[:],
		func(k string) (int, bool) { a, ok := ParseAdvancePayment(k); return int(a), ok },
		func(i int) string { return AdvanceTier(i).String() }); err != nil {
		return nil, field, err
	}

	return rs, "", nil
}

// fillTiers copies a string-keyed tier map into an enum-indexed table. Every tier must be
// present and no other key is accepted.
func fillTiers(field string, src map[string]float64, dst []float64, parse func(string) (int, bool), name func(int) string) (string, error) {
	if src == nil {
		return field, ErrMissingField
	}
	seen := make([]bool, len(dst))
	for _, key := range sortedKeys(src) {
		idx, ok := parse(key)
		if !ok {
			return field + "." + key, ErrUnknownKey
		}
		if err := checkAmount(src[key]); err != nil {
			return field + "." + key, err
		}
		dst[idx] = src[key]
		seen[idx] = true
	}
	for i, ok := range seen {
		if !ok {
			return field + "." + name(i), ErrMissingField
		}
	}
	return "", nil
}

func checkAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrNotFinite
	}
	if v < 0 {
		return fmt.Errorf("%w: must not be negative", ErrOutOfRange)
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DimensionKeys returns the offered dimensions in lexical order.
func (rs *RuleSet) DimensionKeys() []string {
	return sortedKeys(rs.DimensionBase)
}

// document converts the rule set back to its canonical JSON shape.
func (rs *RuleSet) document() ruleSetDocument {
	doc := ruleSetDocument{
		Version:             rs.Version,
		Currency:            rs.Currency,
		DimensionBase:       rs.DimensionBase,
		TableOnlyBase:       &rs.TableOnlyBase,
		AllInOneBase:        &rs.AllInOneBase,
		StartupDiscount:     &rs.StartupDiscount,
		BulkDiscountPerPair: &rs.BulkDiscountPerPair,
		FirstOrderDiscount:  make(map[string]float64, productTypeCount),
		DeliverySurcharge:   make(map[string]float64, deliveryTierCount),
		AdvanceDiscount:     make(map[string]float64, advanceTierCount),
	}
	for _, p := range ProductTypes() {
		doc.FirstOrderDiscount[p.String()] = rs.FirstOrderDiscount[p]
	}
	for _, d := range DeliveryTiers() {
		doc.DeliverySurcharge[d.String()] = rs.DeliverySurcharge[d]
	}
	for _, a := range AdvanceTiers() {
		doc.AdvanceDiscount[a.String()] = rs.AdvanceDiscount[a]
	}
	return doc
}

// Fingerprint is a short hash of the canonical encoding. Two rule sets share a fingerprint
// iff their values are equal.
func (rs *RuleSet) Fingerprint() string {
	if rs.fingerprint != "" {
		return rs.fingerprint
	}
	return rs.computeFingerprint()
}

func (rs *RuleSet) computeFingerprint() string {
	// encoding/json sorts map keys, so the encoding is canonical.
	payload, err := json.Marshal(rs.document())
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}
