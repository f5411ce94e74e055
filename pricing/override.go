package pricing

import (
	"math"
)

// overrideField describes one override. Every override requires a privileged caller;
// adding an override means adding a row here.
type overrideField struct {
	name   string
	isSet  func(*Overrides) bool
	clear  func(*Overrides)
	finite func(*Overrides) bool
}

func scalarField(name string, get func(*Overrides) **float64) overrideField {
	return overrideField{
		name:  name,
		isSet: func(o *Overrides) bool { return *get(o) != nil },
		clear: func(o *Overrides) { *get(o) = nil },
		finite: func(o *Overrides) bool {
			v := *get(o)
			return v == nil || isFinite(*v)
		},
	}
}

var overrideFields = []overrideField{
	scalarField("base_price_override", func(o *Overrides) **float64 { return &o.BasePrice }),
	scalarField("startup_discount_override", func(o *Overrides) **float64 { return &o.StartupDiscount }),
	scalarField("first_order_discount_override", func(o *Overrides) **float64 { return &o.FirstOrderDiscount }),
	{
		name:  "delivery_surcharge_override",
		isSet: func(o *Overrides) bool { return len(o.DeliverySurcharge) > 0 },
		clear: func(o *Overrides) { o.DeliverySurcharge = nil },
		finite: func(o *Overrides) bool {
			for _, v := range o.DeliverySurcharge {
				if !isFinite(v) {
					return false
				}
			}
			return true
		},
	},
	scalarField("bulk_discount_override", func(o *Overrides) **float64 { return &o.BulkDiscountPerPair }),
	scalarField("advance_discount_override", func(o *Overrides) **float64 { return &o.AdvanceDiscount }),
	scalarField("custom_unit_adjust", func(o *Overrides) **float64 { return &o.CustomUnitAdjust }),
	scalarField("custom_line_adjust", func(o *Overrides) **float64 { return &o.CustomLineAdjust }),
}

// OverrideFieldNames lists the wire names of every override field.
func OverrideFieldNames() []string {
	names := make([]string, len(overrideFields))
	for i, f := range overrideFields {
		names[i] = f.name
	}
	return names
}

// PresentFields lists the wire names of the overrides that are set.
func (o Overrides) PresentFields() []string {
	var names []string
	for _, f := range overrideFields {
		if f.isSet(&o) {
			names = append(names, f.name)
		}
	}
	return names
}

// Sanitize returns a copy of order safe to pass to ComputePrice. Unprivileged callers lose
// every override; privileged callers keep them unchanged.
func Sanitize(order OrderConfiguration, privileged bool) OrderConfiguration {
	safe := order
	safe.Overrides = order.Overrides.clone()
	if privileged {
		return safe
	}
	for _, f := range overrideFields {
		f.clear(&safe.Overrides)
	}
	return safe
}

func (o Overrides) clone() Overrides {
	c := o
	if o.DeliverySurcharge != nil {
		c.DeliverySurcharge = make(map[DeliveryTier]float64, len(o.DeliverySurcharge))
		for k, v := range o.DeliverySurcharge {
			c.DeliverySurcharge[k] = v
		}
	}
	return c
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
