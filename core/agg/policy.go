package agg

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/huangsam/kpiroll/schema"
)

// PolicyTable maps metric names to aggregation policies.
// Fallback applies to metrics without a rule; an empty or none fallback rejects them.
type PolicyTable struct {
	Rules    map[string]schema.Policy
	Fallback schema.Policy
}

// DefaultPolicyTable returns the single shared policy table used by every view.
// Unlisted metrics carry through with the last policy.
func DefaultPolicyTable() PolicyTable {
	rules := make(map[string]schema.Policy)
	for _, m := range []string{
		"live_mrr", "live_arr", "contracted_mrr", "contracted_arr", "target_arr",
		"live_clients", "contracted_clients", "headcount", "mau", "chs", "accounts_at_risk",
	} {
		rules[m] = schema.LastPolicy
	}
	for _, m := range []string{"nrr", "rule_of_80", "gm_percent", "ebitda_percent", "grr"} {
		rules[m] = schema.AveragePolicy
	}
	for _, m := range []string{
		"accrued_mrr", "accrued_mrr_target", "collections_unbilled", "collections_ar",
		"new_business_mrr", "expansion_mrr", "churned_mrr",
	} {
		rules[m] = schema.SumPolicy
	}
	return PolicyTable{Rules: rules, Fallback: schema.LastPolicy}
}

// ParsePolicy validates a policy name. none is accepted only when allowNone is set.
func ParsePolicy(s string, allowNone bool) (schema.Policy, error) {
	p := schema.Policy(strings.ToLower(strings.TrimSpace(s)))
	if allowNone && p == schema.NoPolicy {
		return p, nil
	}
	if _, ok := schema.ValidPolicies[p]; !ok {
		return "", fmt.Errorf("invalid policy %q. Must be one of last, average, sum", s)
	}
	return p, nil
}

// Lookup returns the policy for metric.
func (t PolicyTable) Lookup(metric string) (schema.Policy, error) {
	if p, ok := t.Rules[metric]; ok {
		return p, nil
	}
	if t.Fallback == "" || t.Fallback == schema.NoPolicy {
		return "", fmt.Errorf("metric %q has no policy and no fallback is configured: %w", metric, schema.ErrUnknownMetricPolicy)
	}
	return t.Fallback, nil
}

// Resolve looks up every metric up front so unknown names fail before any aggregation.
func (t PolicyTable) Resolve(metrics []string) (map[string]schema.Policy, error) {
	resolved := make(map[string]schema.Policy, len(metrics))
	for _, m := range metrics {
		p, err := t.Lookup(m)
		if err != nil {
			return nil, err
		}
		resolved[m] = p
	}
	return resolved, nil
}

// WithOverrides returns a copy of the table with rules replaced or added.
// A non-empty fallback replaces the table fallback.
func (t PolicyTable) WithOverrides(overrides map[string]schema.Policy, fallback schema.Policy) (PolicyTable, error) {
	out := PolicyTable{Rules: maps.Clone(t.Rules), Fallback: t.Fallback}
	if out.Rules == nil {
		out.Rules = make(map[string]schema.Policy, len(overrides))
	}
	for metric, p := range overrides {
		if _, ok := schema.ValidPolicies[p]; !ok {
			return PolicyTable{}, fmt.Errorf("metric %q: invalid policy %q", metric, p)
		}
		out.Rules[metric] = p
	}
	if fallback != "" {
		if _, ok := schema.ValidPolicies[fallback]; !ok && fallback != schema.NoPolicy {
			return PolicyTable{}, fmt.Errorf("invalid fallback policy %q", fallback)
		}
		out.Fallback = fallback
	}
	return out, nil
}

// Listing describes the table for display. Metrics in monetary are flagged.
func (t PolicyTable) Listing(monetary []string) schema.PolicyListing {
	defaults := DefaultPolicyTable()
	fallback := t.Fallback
	if fallback == "" {
		fallback = schema.NoPolicy
	}
	listing := schema.PolicyListing{Fallback: fallback}
	for _, metric := range slices.Sorted(maps.Keys(t.Rules)) {
		p := t.Rules[metric]
		listing.Entries = append(listing.Entries, schema.PolicyEntry{
			Metric:    metric,
			Policy:    p,
			Monetary:  slices.Contains(monetary, metric),
			IsDefault: defaults.Rules[metric] == p,
		})
	}
	return listing
}
