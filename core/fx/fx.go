// Package fx rescales monetary metrics from the base currency into a display currency.
package fx

import (
	"fmt"
	"strings"

	"github.com/huangsam/kpiroll/schema"
	"github.com/shopspring/decimal"
)

// DefaultUSDRate is the number of INR per USD used when no rate is configured.
var DefaultUSDRate = decimal.RequireFromString("84.5")

// DefaultMonetaryFields lists the monetary metrics converted in trend views.
var DefaultMonetaryFields = []string{
	"live_mrr", "live_arr", "contracted_mrr", "contracted_arr", "target_arr",
	"accrued_mrr", "accrued_mrr_target", "collections_unbilled", "collections_ar",
	"new_business_mrr", "expansion_mrr", "churned_mrr",
}

// DefaultKPIFields lists the monetary KPI card metrics. Their targets convert too.
var DefaultKPIFields = []string{"live_mrr", "live_arr", "contracted_mrr", "contracted_arr"}

// TargetSuffix and ChangeSuffix name the KPI card companions of a base metric.
const (
	TargetSuffix = "_target"
	ChangeSuffix = "_change"
)

// Normalizer converts values stored in Base into other currencies.
// Rates are expressed as Base units per one unit of the target currency.
type Normalizer struct {
	Base  schema.Currency
	Rates map[schema.Currency]decimal.Decimal
}

// DefaultRates returns the rate table with the default USD rate.
func DefaultRates() map[schema.Currency]decimal.Decimal {
	return map[schema.Currency]decimal.Decimal{schema.USD: DefaultUSDRate}
}

// NewNormalizer returns a normalizer over INR with the given rates.
// Rates must be positive.
func NewNormalizer(rates map[schema.Currency]decimal.Decimal) (*Normalizer, error) {
	for c, r := range rates {
		if !r.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive, got %s", c, r)
		}
	}
	return &Normalizer{Base: schema.BaseCurrency, Rates: rates}, nil
}

// ParseCurrency validates a currency code, ignoring case.
func ParseCurrency(s string) (schema.Currency, error) {
	c := schema.Currency(strings.ToUpper(strings.TrimSpace(s)))
	if c == "" {
		return schema.BaseCurrency, nil
	}
	if _, ok := schema.ValidCurrencies[c]; !ok {
		return "", fmt.Errorf("%q: %w", s, schema.ErrUnknownCurrency)
	}
	return c, nil
}

// rate returns the divisor for target. The base currency is always the identity.
func (n *Normalizer) rate(target schema.Currency) (decimal.Decimal, error) {
	if target == n.base() {
		return decimal.NewFromInt(1), nil
	}
	r, ok := n.Rates[target]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no rate from %s to %s: %w", n.base(), target, schema.ErrMissingRate)
	}
	return r, nil
}

func (n *Normalizer) base() schema.Currency {
	if n.Base == "" {
		return schema.BaseCurrency
	}
	return n.Base
}

// Convert returns a copy of values with every listed field divided by the target rate.
// Nil values pass through and unlisted fields are copied unchanged.
// A NaN or infinite listed field fails with ErrNonFiniteValue, whatever the target.
// Converting twice divides twice, so callers convert exactly once.
func (n *Normalizer) Convert(values map[string]*float64, target schema.Currency, fields []string) (map[string]*float64, error) {
	r, err := n.rate(target)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if v := values[f]; v != nil && !schema.IsFinite(*v) {
			return nil, fmt.Errorf("%s is %v: %w", f, *v, schema.ErrNonFiniteValue)
		}
	}
	out := schema.CloneValues(values)
	if target == n.base() {
		return out, nil
	}
	for _, f := range fields {
		v, ok := out[f]
		if !ok || v == nil {
			continue
		}
		converted, _ := decimal.NewFromFloat(*v).Div(r).Float64()
		out[f] = schema.Float(converted)
	}
	return out, nil
}

// ConvertRecords converts a list of aggregated records and stamps them with target.
func (n *Normalizer) ConvertRecords(records []schema.AggregatedRecord, target schema.Currency, fields []string) ([]schema.AggregatedRecord, error) {
	out := make([]schema.AggregatedRecord, 0, len(records))
	for _, rec := range records {
		values, err := n.Convert(rec.Values, target, fields)
		if err != nil {
			return nil, err
		}
		rec.Values = values
		rec.Currency = target
		out = append(out, rec)
	}
	return out, nil
}

// ConvertSnapshot converts the listed KPI card fields. Change companions are percentages
// and stay untouched unless a caller lists them explicitly.
func (n *Normalizer) ConvertSnapshot(s schema.KPISnapshot, target schema.Currency, fields []string) (schema.KPISnapshot, error) {
	values, err := n.Convert(s.Values, target, fields)
	if err != nil {
		return schema.KPISnapshot{}, err
	}
	out := s
	out.Values = values
	return out, nil
}

// WithCompanions expands fields with one extra name per suffix, keeping order.
func WithCompanions(fields []string, suffixes ...string) []string {
	out := make([]string, 0, len(fields)*(len(suffixes)+1))
	for _, f := range fields {
		out = append(out, f)
		for _, s := range suffixes {
			out = append(out, f+s)
		}
	}
	return out
}
