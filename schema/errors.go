package schema

import "errors"

// Sentinel errors surfaced by the bucketing, aggregation and conversion steps.
// Callers should match them with errors.Is since they are always wrapped with context.
var (
	// ErrInvalidRecord means a record lacks a usable date.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrUnknownMetricPolicy means a metric has no rule and the policy table has no fallback.
	ErrUnknownMetricPolicy = errors.New("unknown metric policy")

	// ErrMissingRate means no exchange rate is configured for the target currency.
	ErrMissingRate = errors.New("missing exchange rate")

	// ErrUnknownCurrency means a currency code is not supported at all.
	ErrUnknownCurrency = errors.New("unknown currency")

	// ErrNonFiniteValue means a metric value is NaN or infinite.
	ErrNonFiniteValue = errors.New("non-finite value")
)
